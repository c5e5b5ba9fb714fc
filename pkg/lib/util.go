package lib

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

// NewID generates a UUID version 4 string (RFC 4122)
func NewID() string {
	return uuid.NewString()
}

// Expand replaces ${VAR} and $VAR references in s. Keys present in vars win over
// the process environment.
func Expand(s string, vars map[string]string) string {
	return os.Expand(s, func(key string) string {
		if v, ok := vars[key]; ok {
			return v
		}
		return os.Getenv(key)
	})
}

// ExpandAll applies Expand to every element of args.
func ExpandAll(args []string, vars map[string]string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		out = append(out, Expand(a, vars))
	}
	return out
}

// CommandLine joins a command the way it shows up in a process table.
func CommandLine(command []string) string {
	return strings.TrimSpace(strings.Join(command, " "))
}
