// Package config loads, normalizes, and validates castpress configuration.
//
// Configuration is TOML on disk with a fully explicit struct in memory. All
// path fields are expanded (~ and relative) during Load so downstream code
// never re-resolves paths. Components receive the struct (or a section of it)
// through their constructors; nothing reads configuration ad hoc.
package config
