// Package device models the device manifest: categories of named device
// profiles whose content is an opaque JSON document.
package device
