// Package api exposes the analysis service over HTTP. It decodes and
// validates requests, maps service errors to status codes, and renders task
// snapshots as JSON.
package api
