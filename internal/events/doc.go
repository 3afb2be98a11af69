// Package events carries task lifecycle notifications between the task
// registry and the components that observe it, such as metrics.
//
// The primary components are:
// - TaskEvent: one state transition of a task
// - EventHandler: interface for components that can handle events
// - EventEmitter: interface for components that can emit events
package events
