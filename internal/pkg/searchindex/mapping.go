package searchindex

import (
	"encoding/json"
	"fmt"
)

// StaticMappingFields extracts the top-level field names from a mapping
// definition string such as ProductMapping. Used as a fallback when the
// live mapping cannot be fetched.
func StaticMappingFields(mapping string) (map[string]bool, error) {
	var parsed struct {
		Mappings struct {
			Properties map[string]json.RawMessage `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.Unmarshal([]byte(mapping), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse mapping: %w", err)
	}
	fields := make(map[string]bool, len(parsed.Mappings.Properties))
	for name := range parsed.Mappings.Properties {
		fields[name] = true
	}
	return fields, nil
}
