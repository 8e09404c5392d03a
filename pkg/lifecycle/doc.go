// Package lifecycle runs one coordinator per live event.
//
// A Coordinator owns the event from creation until it ends or is cancelled.
// On start it announces the event to every active subscription and creates
// the reminder schedules. Afterwards it serializes signals read from an Inbox:
// participants joining or leaving, attribute updates, manual notifications
// and cancellation. Start time changes reschedule every reminder of the
// event. Updates that do not move the start only notify.
//
// Termination happens once, on cancellation, at the end time, or after a
// fatal error. It removes all schedules of the event together with its
// inbox and persisted State, so nothing fires for an event that is over.
//
// The Registry keeps coordinators addressable by event id and guards them
// with a Lease so that only one process coordinates a given event:
//
//	reg, err := lifecycle.NewRegistry(repo, schedules, dispatcher,
//		lifecycle.WithStateStore(lifecycle.NewPostgresStateStore(db)),
//		lifecycle.WithInbox(lifecycle.NewRedisInbox(client, "")),
//		lifecycle.WithLease(lifecycle.NewRedisLease(client, "")),
//	)
//	if err != nil {
//		return err
//	}
//	if err := reg.Start(ctx, eventID); err != nil {
//		return err
//	}
//	err = reg.Signal(ctx, eventID, lifecycle.CancelEvent())
//
// Other services reach coordinators through the task queue: a StartRequest
// payload starts one and a SignalRequest payload is handed to Submit, which
// delivers to whichever process holds the lease. Register StartTask and
// SignalTask on the worker. Signals are ordered per event from the moment
// they reach the inbox.
//
// Shutdown stops coordinators without terminating their events. Recover, run
// at startup and periodically through RecoverTask, resumes them from the
// persisted state without announcing the event again.
package lifecycle
