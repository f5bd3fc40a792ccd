// Package notifications delivers pipeline run events as ntfy push
// notifications. When no topic is configured every call is a silent noop,
// so callers never guard their notification sites.
package notifications
