// Package service contains the analysis orchestrator: the single entry point
// the API layer talks to.
//
// AnalysisService ties the task registry, the task factory and the task
// runner together:
//
//   - RequestAnalysis normalizes the entity name into a request key, claims the
//     key through the registry's dedup gate and schedules a task only when the
//     claim started new work. Cached results and in-flight tasks are returned
//     without scheduling anything.
//   - PollStatus returns a snapshot of one task.
//   - ListKnownEntities enumerates the keys with a completed result.
//
// Work never runs on the caller's goroutine, and a caller that goes away
// never cancels a task another caller may be waiting on.
package service
