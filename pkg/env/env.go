package env

import "os"

// Get reads an environment variable, treating unset and empty the same.
func Get(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
