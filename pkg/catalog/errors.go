package catalog

import "fmt"

// ConfigurationError reports a malformed or missing catalog entry. It is fatal: no model is built from a catalog
// that fails validation
type ConfigurationError struct {
	Field  string
	Reason string
}

func (err *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid catalog configuration (%v): %v", err.Field, err.Reason)
}
