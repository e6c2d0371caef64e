package cdxj

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/jsonx"
)

// Line is one parsed index line.
type Line struct {
	URLKey    string
	Timestamp string
	JSON      []byte
}

// Key is the lookup key: urlkey and timestamp joined by a space.
func (l Line) Key() string {
	return l.URLKey + " " + l.Timestamp
}

// ParseLine splits a line into its two key tokens and the JSON block. The
// JSON must be an object; the line terminator is ignored.
func ParseLine(data []byte) (Line, error) {
	data = bytes.TrimRight(data, "\r\n")
	parts := bytes.SplitN(data, []byte(" "), 3)
	if len(parts) != 3 || len(parts[0]) == 0 || len(parts[1]) == 0 {
		return Line{}, fmt.Errorf("expected \"<urlkey> <timestamp> <json>\"")
	}
	js := bytes.TrimSpace(parts[2])
	if len(js) == 0 || js[0] != '{' {
		return Line{}, fmt.Errorf("JSON block is not an object")
	}
	if !json.Valid(js) {
		return Line{}, fmt.Errorf("invalid JSON block")
	}
	return Line{URLKey: string(parts[0]), Timestamp: string(parts[1]), JSON: js}, nil
}

// FormatLine renders "<urlkey> <timestamp> <json>\n".
func FormatLine(urlKey, timestamp string, obj *jsonx.Object) ([]byte, error) {
	js, err := obj.Bytes()
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.Grow(len(urlKey) + len(timestamp) + len(js) + 3)
	b.WriteString(urlKey)
	b.WriteByte(' ')
	b.WriteString(timestamp)
	b.WriteByte(' ')
	b.Write(js)
	b.WriteByte('\n')
	return []byte(b.String()), nil
}
