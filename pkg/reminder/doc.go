// Package reminder sends personal reminders when schedule timers fire.
//
// Handler is registered on the queue worker for schedule.Fire tasks. Each
// invocation re-reads the event and the subscription so that reminders
// reflect the latest start time and content, then dispatches one message to
// that single subscription. Events that are gone or cancelled and
// subscriptions that are inactive end the task quietly.
package reminder
