package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/eventkit/pkg/pg"
)

// PostgresRepository implements Repository on top of PostgreSQL.
// Schema lives in db/migrations (tables events, subscriptions, channels).
type PostgresRepository struct {
	db             pg.DB
	defaultOffsets []int64
}

// NewPostgresRepository creates a repository using the given connection or pool.
// Subscriptions saved without offsets receive defaultOffsets.
func NewPostgresRepository(db pg.DB, defaultOffsets ...int64) *PostgresRepository {
	return &PostgresRepository{db: db, defaultOffsets: defaultOffsets}
}

func (r *PostgresRepository) EventExists(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists)
	if err != nil {
		return false, errors.Join(ErrStorage, err)
	}
	return exists, nil
}

func (r *PostgresRepository) GetEvent(ctx context.Context, eventID string) (Event, error) {
	var e Event
	err := r.db.QueryRow(ctx, `
		SELECT id, name, starts_at, ends_at, location, description, cancelled_at
		FROM events WHERE id = $1`, eventID,
	).Scan(&e.ID, &e.Name, &e.StartsAt, &e.EndsAt, &e.Location, &e.Description, &e.CancelledAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Event{}, ErrNotFound
		}
		return Event{}, errors.Join(ErrStorage, err)
	}
	return e, nil
}

// SaveEvent upserts an event.
func (r *PostgresRepository) SaveEvent(ctx context.Context, e Event) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO events (id, name, starts_at, ends_at, location, description, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			starts_at = EXCLUDED.starts_at,
			ends_at = EXCLUDED.ends_at,
			location = EXCLUDED.location,
			description = EXCLUDED.description,
			cancelled_at = EXCLUDED.cancelled_at,
			updated_at = now()`,
		e.ID, e.Name, e.StartsAt, e.EndsAt, e.Location, e.Description, e.CancelledAt,
	)
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

const subscriptionColumns = `id, event_id, owner_id, selectors, offsets, active`

func (r *PostgresRepository) ListActiveSubscriptions(ctx context.Context, eventID string) ([]Subscription, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE event_id = $1 AND active
		ORDER BY id`, eventID)
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	defer rows.Close()

	subs := make([]Subscription, 0)
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return subs, nil
}

func (r *PostgresRepository) GetSubscription(ctx context.Context, subscriptionID string) (Subscription, error) {
	row := r.db.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, subscriptionID)
	s, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subscription{}, ErrNotFound
		}
		return Subscription{}, err
	}
	return s, nil
}

// SaveSubscription upserts a subscription. Offsets are normalized with the
// repository default offsets, which is how system-wide reminder defaults apply.
func (r *PostgresRepository) SaveSubscription(ctx context.Context, s Subscription) error {
	for _, sel := range s.Selectors {
		if !sel.Valid() {
			return fmt.Errorf("%w: %q/%q", ErrInvalidSelector, sel.Kind, sel.Value)
		}
	}

	selectors, err := json.Marshal(s.Selectors)
	if err != nil {
		return fmt.Errorf("failed to marshal selectors: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO subscriptions (id, event_id, owner_id, selectors, offsets, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			selectors = EXCLUDED.selectors,
			offsets = EXCLUDED.offsets,
			active = EXCLUDED.active,
			updated_at = now()`,
		s.ID, s.EventID, s.OwnerID, selectors, NormalizeOffsets(s.Offsets, r.defaultOffsets), s.Active,
	)
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

const channelColumns = `id, owner_id, kind, targets, tags, secret, active`

func (r *PostgresRepository) ResolveChannels(ctx context.Context, ownerID string, selector Selector) ([]Channel, error) {
	if !selector.Valid() {
		return nil, ErrInvalidSelector
	}

	var (
		rows pgx.Rows
		err  error
	)
	switch selector.Kind {
	case SelectorChannel:
		rows, err = r.db.Query(ctx, `
			SELECT `+channelColumns+` FROM channels
			WHERE id = $1 AND owner_id = $2 AND active`, selector.Value, ownerID)
	default:
		rows, err = r.db.Query(ctx, `
			SELECT `+channelColumns+` FROM channels
			WHERE owner_id = $1 AND active AND $2 = ANY(tags)
			ORDER BY id`, ownerID, selector.Value)
	}
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		var c Channel
		var kind string
		if err := rows.Scan(&c.ID, &c.OwnerID, &kind, &c.Targets, &c.Tags, &c.Secret, &c.Active); err != nil {
			return nil, errors.Join(ErrStorage, err)
		}
		c.Kind = ChannelKind(kind)
		channels = append(channels, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return channels, nil
}

// SaveChannel upserts a delivery channel.
func (r *PostgresRepository) SaveChannel(ctx context.Context, c Channel) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO channels (id, owner_id, kind, targets, tags, secret, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			targets = EXCLUDED.targets,
			tags = EXCLUDED.tags,
			secret = EXCLUDED.secret,
			active = EXCLUDED.active,
			updated_at = now()`,
		c.ID, c.OwnerID, string(c.Kind), c.Targets, c.Tags, c.Secret, c.Active,
	)
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

func scanSubscription(row pgx.Row) (Subscription, error) {
	var (
		s         Subscription
		selectors []byte
	)
	if err := row.Scan(&s.ID, &s.EventID, &s.OwnerID, &selectors, &s.Offsets, &s.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subscription{}, err
		}
		return Subscription{}, errors.Join(ErrStorage, err)
	}
	if len(selectors) > 0 {
		if err := json.Unmarshal(selectors, &s.Selectors); err != nil {
			return Subscription{}, fmt.Errorf("failed to decode selectors of subscription %s: %w", s.ID, err)
		}
	}
	return s, nil
}
