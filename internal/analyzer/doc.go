// Package analyzer runs the authenticity pipeline for one request.
//
// An Analyzer is built once from configuration plus collaborator handles and
// is safe for concurrent use. Each call stages at most one temporary copy of
// the uploaded media and removes it before returning. Collaborator failures
// degrade into typed "unknown" sub-results; the only hard error is a request
// that carries neither media nor a text query.
package analyzer
