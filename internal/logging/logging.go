// Package logging provides the bracketed-tag debug logging convention used
// throughout rfbterm.
package logging

import (
	"log"
	"os"
)

var debugEnabled = os.Getenv("RFBTERM_DEBUG") != ""

// Debugf logs a [DEBUG]-tagged line, gated on RFBTERM_DEBUG.
func Debugf(format string, args ...any) {
	if !debugEnabled {
		return
	}
	log.Printf("[DEBUG] "+format, args...)
}

// Infof logs an [INFO]-tagged line unconditionally.
func Infof(format string, args ...any) {
	log.Printf("[INFO] "+format, args...)
}

// Warnf logs a [WARN]-tagged line unconditionally.
func Warnf(format string, args ...any) {
	log.Printf("[WARN] "+format, args...)
}

// Errorf logs an [ERROR]-tagged line unconditionally.
func Errorf(format string, args ...any) {
	log.Printf("[ERROR] "+format, args...)
}
