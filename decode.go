package buildwatch

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultStatusField is the JSON field holding the status label.
const DefaultStatusField = "status"

// DecodeStatusRecord parses a status response body into a [StatusRecord].
//
// field selects the label with dot notation, so "build.state" reads
// {"build": {"state": "running"}}. An empty field means [DefaultStatusField].
// Every failure wraps [ErrMalformedResponse].
func DecodeStatusRecord(body []byte, field string) (StatusRecord, error) {
	if field == "" {
		field = DefaultStatusField
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return StatusRecord{}, fmt.Errorf("%w: invalid JSON: %v", ErrMalformedResponse, err)
	}

	value, ok := lookupJSONPath(data, strings.Split(field, "."))
	if !ok {
		return StatusRecord{}, fmt.Errorf("%w: field %q missing", ErrMalformedResponse, field)
	}

	label, ok := value.(string)
	if !ok {
		return StatusRecord{}, fmt.Errorf("%w: field %q is %T, want string", ErrMalformedResponse, field, value)
	}

	status := Status(label)
	if err := status.Validate(); err != nil {
		return StatusRecord{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return StatusRecord{Status: status}, nil
}

// lookupJSONPath walks decoded JSON objects along parts.
func lookupJSONPath(data interface{}, parts []string) (interface{}, bool) {
	current := data
	for _, part := range parts {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
