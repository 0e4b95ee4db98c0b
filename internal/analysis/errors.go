package analysis

import (
	"fmt"
	"strings"
)

// MissingColumnsError reports required columns absent from the input schema.
// It is a precondition violation raised before any row is processed.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("analysis: missing required columns: %s", strings.Join(e.Missing, ", "))
}
