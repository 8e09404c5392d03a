// Package broadcast provides a generic publish/subscribe primitive.
//
// MemoryBroadcaster delivers each message to every subscriber without
// blocking; a subscriber that cannot keep up is dropped and its channel
// closed. Subscriptions end when their context is cancelled.
//
//	b := broadcast.NewMemoryBroadcaster[Notice](16)
//	sub := b.Subscribe(ctx)
//	go func() {
//		for msg := range sub.Receive(ctx) {
//			render(msg.Data)
//		}
//	}()
//	_ = b.Broadcast(ctx, broadcast.Message[Notice]{Data: n})
package broadcast
