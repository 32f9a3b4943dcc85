package env

import (
	"os"
	"strings"
)

const defaultInstanceID = "local"

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// InstanceID identifies the running replica in logs and lock owners.
// WORKER_ID wins over HOSTNAME.
func InstanceID() string {
	for _, key := range []string{"WORKER_ID", "HOSTNAME"} {
		if id := Get(key, ""); id != "" {
			return id
		}
	}
	return defaultInstanceID
}
