package fixture

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Response is a fully read HTTP response.
type Response struct {
	Method     string
	Path       string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", r.Method, r.Path, err)
	}
	return nil
}

// Field resolves a dotted path such as "data.items.0.id" inside a JSON body.
// Numeric segments index arrays.
func (r *Response) Field(path string) (any, error) {
	var doc any
	if err := r.JSON(&doc); err != nil {
		return nil, err
	}

	current := doc
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[segment]
			if !ok {
				return nil, fmt.Errorf("field %q: no key %q in response", path, segment)
			}
			current = v
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("field %q: invalid index %q for array of %d", path, segment, len(node))
			}
			current = node[idx]
		default:
			return nil, fmt.Errorf("field %q: %q is not an object or array", path, segment)
		}
	}
	return current, nil
}

// FieldString is Field rendered the way it appears in a feature file:
// strings unquoted, numbers without trailing zeros, null as "null".
func (r *Response) FieldString(path string) (string, error) {
	v, err := r.Field(path)
	if err != nil {
		return "", err
	}
	return FormatValue(v), nil
}

// FormatValue renders a decoded JSON value as plain text.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
