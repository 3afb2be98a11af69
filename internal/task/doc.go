// Package task runs entity analyses in the background. It holds the task
// registry that deduplicates requests by key and enforces the task state
// machine, the analysis pipeline with its stage collaborators, and the
// queue and workers that execute tasks off the request path.
package task
