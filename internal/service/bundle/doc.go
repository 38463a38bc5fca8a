// Package bundle stages the static pages bundle.
//
// Assemble clears the output directory and then, in order: copies the web
// tree, copies library sources under lib/, writes the redirecting index.html,
// replicates the wasm assets to every path the app resolves them from, and
// copies development sourcemaps. Library, asset and sourcemap copies are
// optional and skipped when their source is missing.
package bundle
