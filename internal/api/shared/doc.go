// Package shared holds the request decoding, validation, response writing
// and trace ID helpers used by the api package and its middleware.
package shared
