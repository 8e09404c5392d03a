// Package event defines the event, subscription, selector and channel types
// and the read contract the lifecycle coordinator needs from persistence.
//
// Events and subscriptions are owned by an external management layer; the
// coordinator only reads them. Two Repository implementations are provided:
// MemoryRepository for tests and local runs, PostgresRepository for production
// (schema in db/migrations).
//
// Reminder offsets are per subscription. System-wide defaults are applied when
// a subscription is saved without offsets of its own (see NormalizeOffsets),
// so the scheduling core never needs a separate default mechanism.
package event
