// Package fsutil holds the filesystem primitives the bundle is staged with.
//
// Copies always dereference symbolic links, so a staged tree contains only
// regular files and directories and stays valid after it leaves the build host.
package fsutil
