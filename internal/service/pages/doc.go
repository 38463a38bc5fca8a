// Package pages runs the pages build: the device pack is regenerated on
// every invocation and the static bundle is assembled unless only the
// manifest was requested.
package pages
