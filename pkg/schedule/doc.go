// Package schedule keeps the set of pending reminder timers for events.
//
// Every timer is identified by a Key (event, subscription, offset) and stored
// as a keyed task in pkg/queue. The task ID is a name-based UUID derived from
// the key, so creating the same timer twice yields one task and deleting a
// missing timer is a no-op. All timers of an event share the event id as
// their queue group, which is how DeleteAll and Live find them.
//
// When a timer fires, the queue worker hands a Fire payload to whichever
// handler is registered for it (see pkg/reminder).
package schedule
