// Package logger wraps zap with a global sugared console logger.
//
// Informational messages go to stdout while warnings and errors go to stderr,
// so a failed build surfaces on the error channel of the calling process.
// Loggers travel through context.Context (ToContext/FromContext/WithName/WithKV)
// and the package-level helpers (Info, InfoKV, ErrorKV, ...) always log through
// the logger found in the provided context.
package logger
