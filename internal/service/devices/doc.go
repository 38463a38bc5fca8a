// Package devices builds the device manifest module consumed by the browser app.
//
// It walks <root>/<type>/<name>.json, parses every profile and writes
// `export const devices = {...};` to the manifest file. A profile that fails
// to parse aborts the run before the manifest is touched.
package devices
