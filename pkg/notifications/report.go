package notifications

// Outcome is the result of delivering to one subscription.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
	OutcomeNoTargets Outcome = "no_targets"
)

// ChannelResult records the attempts made for one resolved channel.
type ChannelResult struct {
	ChannelID string `json:"channel_id"`
	Attempts  int    `json:"attempts"`
	Delivered bool   `json:"delivered"`
	Partial   bool   `json:"partial,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SubscriptionResult is one entry of the report detail list.
type SubscriptionResult struct {
	SubscriptionID string          `json:"subscription_id"`
	Outcome        Outcome         `json:"outcome"`
	Channels       []ChannelResult `json:"channels,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Report summarizes one dispatch. Delivered, Failed and NoTargets count
// subscriptions; Total is their sum.
type Report struct {
	EventID   string               `json:"event_id"`
	Total     int                  `json:"total"`
	Delivered int                  `json:"delivered"`
	Failed    int                  `json:"failed"`
	NoTargets int                  `json:"no_targets"`
	Details   []SubscriptionResult `json:"details"`
}

func (r *Report) add(res SubscriptionResult) {
	switch res.Outcome {
	case OutcomeDelivered:
		r.Delivered++
	case OutcomeFailed:
		r.Failed++
	case OutcomeNoTargets:
		r.NoTargets++
	}
	r.Total++
	r.Details = append(r.Details, res)
}
