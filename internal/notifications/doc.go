// Package notifications delivers analysis events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when notifications are disabled. Callers
// publish an Event with a loosely typed Payload; the notifier decides whether
// the event warrants a push and how to phrase it.
package notifications
