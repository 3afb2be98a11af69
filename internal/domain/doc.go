// Package domain contains the core entities of the news analysis service:
// request keys, raw news items, per-item analyses and the assembled
// analysis result. It has no dependencies on infrastructure or transport.
//
// Values produced here are treated as immutable once they are attached to a
// completed task; callers copy rather than mutate.
package domain
