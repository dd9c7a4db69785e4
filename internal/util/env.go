// Package util holds small environment parsing helpers used by the
// entrypoint.
package util

import (
	"log/slog"
	"os"
	"strings"
)

var boolWords = map[string]bool{
	"true": true, "1": true, "yes": true, "on": true,
	"false": false, "0": false, "no": false, "off": false,
}

// BoolEnv reads a boolean environment variable, returning fallback when the
// variable is unset or not a recognized boolean word
// (true/false, 1/0, yes/no, on/off, case-insensitive).
func BoolEnv(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, ok := boolWords[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		slog.Warn("BoolEnv: unrecognized value, using fallback", "key", key, "value", raw, "fallback", fallback)
		return fallback
	}
	return v
}
