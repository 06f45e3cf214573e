package extractor

import (
	"github.com/tidwall/gjson"
)

// Document is a validated JSON body that supports typed lookups with
// fallback paths.
type Document struct {
	body []byte
}

// Parse validates body and wraps it for lookups.
func Parse(body []byte) (Document, error) {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return Document{}, ErrInvalidJSON
	}
	return Document{body: body}, nil
}

// Number returns the first path that holds a JSON number.
func (d Document) Number(paths ...string) (float64, bool) {
	for _, path := range paths {
		res := gjson.GetBytes(d.body, normalizePath(path))
		if res.Type == gjson.Number {
			return res.Float(), true
		}
	}
	return 0, false
}

// Int returns the first path that holds a JSON number, truncated to int64.
func (d Document) Int(paths ...string) (int64, bool) {
	for _, path := range paths {
		res := gjson.GetBytes(d.body, normalizePath(path))
		if res.Type == gjson.Number {
			return res.Int(), true
		}
	}
	return 0, false
}

// String returns the first path that exists, rendered as a string.
func (d Document) String(paths ...string) (string, bool) {
	for _, path := range paths {
		res := gjson.GetBytes(d.body, normalizePath(path))
		if res.Exists() {
			return res.String(), true
		}
	}
	return "", false
}

// Value decodes the whole document into plain Go values.
func (d Document) Value() interface{} {
	return gjson.ParseBytes(d.body).Value()
}

// findJSONPath extracts a value from JSON using gjson with support for $.field and field syntax.
func findJSONPath(body []byte, path string, logger Logger) string {
	path = normalizePath(path)

	result := gjson.GetBytes(body, path)

	if !result.Exists() {
		if logger != nil {
			logger.Warn("JSONPath not found: %s", path)
		}
		return ""
	}

	return result.String()
}

// normalizePath strips a leading $. and maps a bare $ to the whole document.
func normalizePath(path string) string {
	if len(path) > 0 && path[0] == '$' {
		if len(path) > 1 && path[1] == '.' {
			return path[2:]
		} else if len(path) == 1 {
			return "@this"
		}
	}
	return path
}
