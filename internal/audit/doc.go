// Package audit records a summary of every completed analysis.
//
// Sinks receive an Entry per analysis. The SQLite Store keeps a local history
// that the API and CLI can list; RESTSink forwards entries to a
// PostgREST-style endpoint (for example a Supabase table). Multi fans an entry
// out to several sinks. Writes are best effort: the analyzer dispatches them in
// the background and only logs failures.
package audit
