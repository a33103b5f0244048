// Package queue provides the durable, retrying job queue behind asynchronous
// notification delivery.
//
// The package is organised around two components that interact only through
// small repository interfaces:
//
//   - Enqueuer submits one-time tasks; submission never blocks on execution
//   - Worker claims pending tasks and dispatches them to a registered Handler
//
// Two storage backends implement the repositories: RedisStorage, shared
// across process instances and surviving restarts, and MemoryStorage, the
// in-process fallback used when no distributed backend is configured.
// Which one is wired is a one-time startup decision.
//
// # Task lifecycle
//
// pending → processing → completed, or back to pending with exponential
// backoff while retries remain, or failed once MaxRetries is exhausted.
// Failed tasks are moved to a dead letter queue and retained for inspection;
// nothing deletes them automatically. A claim lease (LockedUntil) guarantees
// each task is executed by exactly one worker at a time, and lapsed leases
// are recovered so a crashed worker cannot strand its tasks.
//
// # Delivery semantics
//
// Execution is at-least-once: a worker that crashes after the side effect
// but before CompleteTask causes a re-execution. Every task carries a
// DedupKey (defaulting to the task id) so downstream storage can absorb
// duplicates idempotently.
package queue
