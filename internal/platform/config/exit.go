package config

import (
	"fmt"
	"os"
)

// Exitf prints a formatted message to stderr and terminates the
// process with status 1. Meant for the cmd mains when flag or
// environment parsing fails before logging is set up.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
