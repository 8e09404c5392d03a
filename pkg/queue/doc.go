// Package queue is a storage-agnostic delayed task queue.
//
// Three components share small repository interfaces:
//
//   - Enqueuer turns a payload into a task, optionally keyed by a caller-chosen
//     ID (WithTaskID) and tagged with a group (WithGroup).
//   - Scheduler keeps exactly one pending instance of each periodic task.
//   - Worker claims due tasks and dispatches them to a Handler by task name.
//
// Keyed tasks make creation idempotent: storing a task whose ID belongs to a
// pending or processing task fails with ErrTaskAlreadyExists, while a
// completed or failed task with that ID is replaced. Together with DeleteTask
// and ListTasksByGroup this lets callers treat the queue as a set of named
// timers.
//
// MemoryStorage serves tests and single-process use; PostgresStorage backs
// production deployments and is safe for concurrent workers.
//
//	storage := queue.NewPostgresStorage(pool)
//	enq, _ := queue.NewEnqueuer(storage)
//	_, err := enq.Enqueue(ctx, Reminder{ID: "r1"},
//		queue.WithTaskID(id),
//		queue.WithScheduledAt(fireAt),
//	)
//
//	w, _ := queue.NewWorker(storage, queue.WithPullInterval(time.Second))
//	w.RegisterHandlers(queue.NewTaskHandler(handleReminder))
//	g.Go(w.Run(ctx))
package queue
