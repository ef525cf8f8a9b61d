// Package config loads, normalizes, and validates truthx configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files (or YAML when the file extension says so), and
// honours environment fallbacks such as OPENROUTER_API_KEY and SUPABASE_URL.
// The Config type is loaded once at startup and treated as read-only by the
// analysis pipeline.
package config
