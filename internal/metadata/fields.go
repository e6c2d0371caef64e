package metadata

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/jsonx"
)

// ParseFields rebuilds the field map of a serialized block. Each line is split
// at its first ": "; values that are valid JSON are kept as JSON, anything
// else becomes a JSON string. Titles keep their order.
func ParseFields(text string) (*jsonx.Object, error) {
	obj := jsonx.NewObject()
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		title, value, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, fmt.Errorf("line %d: missing \": \" separator in %q", i+1, line)
		}
		if json.Valid([]byte(value)) {
			obj.Set(title, json.RawMessage(value))
			continue
		}
		if err := obj.SetValue(title, value); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	return obj, nil
}
