// Package extractor reads values out of JSON response bodies returned by the
// benchmark server.
package extractor

import (
	"errors"
)

// Logger interface for warning output.
type Logger interface {
	Warn(format string, args ...interface{})
}

// ErrInvalidJSON is returned when a body is not a valid JSON document.
var ErrInvalidJSON = errors.New("invalid JSON")

// Extractor defines one named value to pull out of a response body.
type Extractor struct {
	// JSONPath is a JSON path expression (e.g., "$.cpu_load", "stats.cpu").
	JSONPath string

	// Variable is the key the extracted value is stored under.
	Variable string
}

// ExtractAll applies all extractors to the response body and returns extracted key-value pairs.
// It logs warnings for extraction failures but continues processing.
// The logger parameter can be nil to suppress warnings.
func ExtractAll(body []byte, extractors []Extractor, logger Logger) map[string]string {
	result := make(map[string]string)

	if len(extractors) == 0 {
		return result
	}

	for _, extractor := range extractors {
		if extractor.JSONPath == "" {
			continue
		}
		result[extractor.Variable] = findJSONPath(body, extractor.JSONPath, logger)
	}

	return result
}
