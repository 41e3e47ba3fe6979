package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path"
)

// Name is the command name used when no other name is known.
const Name = "exodash"

// Prefix is the log prefix for the command, like "[exodash model info] ".
//
// Empty name is replaced with Name.
func Prefix(name string) string {
	if name == "" {
		name = Name
	}
	return fmt.Sprintf("[%s] ", name)
}

// New creates a logger of the command which writes to w.
func New(w io.Writer, name string) *log.Logger {
	return log.New(w, Prefix(name), log.LstdFlags)
}

// Default is the logger of the process, named after the executable.
func Default() *log.Logger {
	return New(os.Stderr, path.Base(os.Args[0]))
}

// Null discards everything, but is prefixed as same as loggers of commands.
func Null() *log.Logger {
	return New(io.Discard, Name)
}
