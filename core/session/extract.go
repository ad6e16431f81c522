package session

import (
	"encoding/json"
	"math"
	"strconv"
)

// identityExtractor pulls an Identity out of one expected response envelope.
type identityExtractor func(body map[string]interface{}) (Identity, bool)

// extractors are tried in order: a {data: {...}} wrapper, a {user: {...}}
// wrapper, then the flat object itself. The ordering is part of the contract
// with the remote API and must not change.
var extractors = []identityExtractor{
	func(body map[string]interface{}) (Identity, bool) { return decodeIdentity(subObject(body, "data")) },
	func(body map[string]interface{}) (Identity, bool) { return decodeIdentity(subObject(body, "user")) },
	func(body map[string]interface{}) (Identity, bool) { return decodeIdentity(body) },
}

// ExtractIdentity normalizes a profile response body into an Identity.
// A body is only recognizable if it carries an "id" or "email" field in one
// of the known envelopes.
func ExtractIdentity(raw json.RawMessage) (Identity, bool) {
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return Identity{}, false
	}
	for _, extract := range extractors {
		if ident, ok := extract(body); ok {
			return ident, true
		}
	}
	return Identity{}, false
}

func decodeIdentity(obj map[string]interface{}) (Identity, bool) {
	if obj == nil {
		return Identity{}, false
	}
	ident := identityFields(obj)
	if ident.ID == "" && ident.Email == "" {
		return Identity{}, false
	}
	return ident, true
}

// identityFields maps known identity keys, tolerating numeric IDs.
func identityFields(obj map[string]interface{}) Identity {
	ident := Identity{
		ID:         stringField(obj, "id"),
		Email:      stringField(obj, "email"),
		Role:       stringField(obj, "role"),
		SchoolID:   stringField(obj, "school_id"),
		SchoolName: stringField(obj, "school_name"),
	}
	ident.DisplayName = stringField(obj, "name")
	if ident.DisplayName == "" {
		ident.DisplayName = stringField(obj, "display_name")
	}
	return ident
}

func subObject(body map[string]interface{}, key string) map[string]interface{} {
	if sub, ok := body[key].(map[string]interface{}); ok {
		return sub
	}
	return nil
}

func stringField(obj map[string]interface{}, key string) string {
	switch val := obj[key].(type) {
	case string:
		return val
	case float64:
		if val == math.Trunc(val) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	}
	return ""
}
