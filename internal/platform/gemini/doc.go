// Package gemini implements the analysis, translation and speech stages of the
// pipeline on Google's Gemini API (google.golang.org/genai).
//
// All three adapters share one Client, which owns retry with exponential
// backoff and jitter, and turns blocked or malformed responses into
// ErrContentBlocked and ErrInvalidResponse so they are never retried.
package gemini
