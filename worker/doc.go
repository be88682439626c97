// Package worker runs the pool of execution units that drain the task store.
//
// Each worker loops: claim the oldest eligible task under a lease, dispatch
// it through the handler registry, report the outcome back to the store.
// When the store is empty a worker backs off with capped exponential delays
// and resets to the base poll interval as soon as a claim succeeds.
//
// Shutdown is two-phase: Stop first cancels claiming so no new work starts,
// then waits for in-flight executions up to a drain deadline, after which
// remaining handler contexts are canceled. Workers whose handlers ignore
// even that are abandoned after a short grace so shutdown stays bounded;
// their tasks come back through lease expiry. Outcome reporting uses its
// own context so a completed execution is always recorded, even
// mid-shutdown.
package worker
