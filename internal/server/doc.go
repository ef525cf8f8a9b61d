// Package server exposes the analyzer over HTTP.
//
// Routes:
//   - POST /analyze accepts multipart form data with a "video" file and/or a
//     "query" field and returns the report.
//   - GET /health reports liveness and whether the structured probe is
//     available.
//   - GET /api/analyses and GET /api/analyses/{id} read the local history.
//
// Requests pass through recovery, request ID, access logging, CORS, and
// optional bearer-token middleware. Only one server may run per state
// directory; Start holds an advisory lock until Stop.
package server
