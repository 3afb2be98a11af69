// Package config loads application settings from defaults, an optional YAML
// file and NEWSLENS_* environment variables, in increasing order of
// precedence, and validates the result before any component is built.
package config
