// Package main hosts the truthx CLI entrypoint and command graph.
//
// The Cobra command tree runs the HTTP API (serve), one-shot local analyses
// (analyze, text, probe), history queries against the SQLite analysis log,
// dependency checks, and configuration scaffolding. Configuration resolution
// and logger setup live in the shared command context so subcommands only
// render results.
package main
