// Package version exposes build metadata for grid-pages.
//
// Version, Commit and BuildTime are set with -ldflags "-X ..." by release
// builds and keep placeholder values for local ones.
package version
