// Package config describes the on-disk layout the pages build works on:
// where device profiles live, where the generated manifest goes, which
// library directories are staged and where the bundle is written.
//
// Default returns the layout of the grid-apps checkout; Load merges an
// optional YAML file over it.
package config
