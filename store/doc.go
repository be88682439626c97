// Package store owns every Task record and all of its state transitions.
//
// Two implementations back the same contract:
//
//   - SQLiteStore: crash-durable, safe for concurrent workers and for
//     multiple daemon processes sharing one database file. Claim is a
//     conditional update guarded by the expected prior status, so two
//     workers racing on the same row cannot both succeed.
//   - MemoryStore: process-local and non-durable, guarded by a single
//     mutex. Used for tests and ephemeral workloads.
//
// # The Claim Protocol
//
// Claim atomically selects the oldest eligible task — queued, or
// processing with a lapsed lease left behind by a crashed worker —
// marks it processing, records the claiming worker and a lease expiry,
// and returns it. At most one concurrent caller wins a given task; this
// is the decisive correctness property of the whole engine. Claim is
// non-blocking and returns (nil, nil) when nothing is eligible.
//
// # Failure Reporting
//
// Fail consults the error's category (see the errors package): retryable
// failures count an execution and requeue while the retry budget lasts;
// permanent failures move the task straight to dead. Complete and Fail
// against a task that was deleted mid-flight return NOT_FOUND, which
// workers treat as a benign no-op.
//
// Outcome reports are not bound to the reporting worker. After a lease
// expires and the task is reclaimed, the superseded worker's Complete or
// Fail still lands while the new owner is mid-execution. This window is
// inherent to at-least-once delivery: both workers genuinely ran the
// task, so either outcome is valid, and the later report is absorbed by
// terminal idempotency (completed/dead) or rejected as CONFLICT. Handlers
// must be idempotent for exactly this reason.
package store
