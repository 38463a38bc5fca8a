// Package preview serves a staged bundle over HTTP for local checks.
//
// Responses are never cached and carry the cross-origin isolation headers the
// browser app needs for SharedArrayBuffer and wasm workers.
package preview
