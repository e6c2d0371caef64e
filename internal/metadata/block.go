// Package metadata models the per-record classification block written into
// sidecar metadata records.
package metadata

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/jsonx"
)

// Block field titles, in serialization order.
const (
	TitlePayloadType    = "Identified-Payload-Type"
	TitlePreservationID = "Preservation-Identifier"
	TitleCharset        = "Charset-Detected"
	TitleLanguages      = "Languages-Detected"
	TitleSoft404        = "Soft-404-Detected"

	// TitleLanguagesLegacy is accepted when reading older sidecars.
	TitleLanguagesLegacy = "Languages-cld2"
)

// textMime matches mime types worth running text detectors on.
var textMime = regexp.MustCompile(`(text|html|xml)`)

// Charset is a detected character encoding.
type Charset struct {
	Encoding   string      `json:"encoding"`
	Confidence jsonx.Float `json:"confidence"`
}

// LanguageScore is one detected language.
type LanguageScore struct {
	Name     string      `json:"name"`
	Code     string      `json:"code"`
	Coverage int         `json:"text-covered"`
	Score    jsonx.Float `json:"score"`
}

// Languages is the language detection result for a payload.
type Languages struct {
	Reliable  bool            `json:"reliable"`
	TextBytes int             `json:"text-bytes"`
	Languages []LanguageScore `json:"languages"`
}

// Block holds the classification of one payload. Nil or empty fields are omitted.
type Block struct {
	// PayloadTypes maps detector name to detected mime type.
	PayloadTypes   map[string]string
	PreservationID string
	Charset        *Charset
	Languages      *Languages
	Soft404        *float64
}

// IsEmpty reports whether no field is set.
func (b *Block) IsEmpty() bool {
	return len(b.PayloadTypes) == 0 && b.PreservationID == "" && b.Charset == nil &&
		b.Languages == nil && b.Soft404 == nil
}

// IsTextual reports whether any payload type looks like text.
func (b *Block) IsTextual() bool {
	for _, mime := range b.PayloadTypes {
		if textMime.MatchString(mime) {
			return true
		}
	}
	return false
}

// Serialize renders the block as "Title: value" lines joined by "\n" in the
// fixed field order. The preservation identifier is written raw; every
// other value is JSON. Map keys are sorted so equal blocks serialize
// byte-identically.
func (b *Block) Serialize() (string, error) {
	var lines []string
	add := func(title string, v any) error {
		raw, err := jsonx.Marshal(v)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", title, err)
		}
		lines = append(lines, title+": "+string(raw))
		return nil
	}

	if len(b.PayloadTypes) > 0 {
		if err := add(TitlePayloadType, b.PayloadTypes); err != nil {
			return "", err
		}
	}
	if b.PreservationID != "" {
		lines = append(lines, TitlePreservationID+": "+b.PreservationID)
	}
	if b.Charset != nil {
		if err := add(TitleCharset, b.Charset); err != nil {
			return "", err
		}
	}
	if b.Languages != nil {
		if err := add(TitleLanguages, b.Languages); err != nil {
			return "", err
		}
	}
	if b.Soft404 != nil {
		if err := add(TitleSoft404, jsonx.Float(*b.Soft404)); err != nil {
			return "", err
		}
	}
	return strings.Join(lines, "\n"), nil
}

// TextIsTextual reports whether a serialized block describes a textual payload.
// Only the payload-type line is consulted.
func TextIsTextual(text string) bool {
	first, _, _ := strings.Cut(text, "\n")
	value, ok := strings.CutPrefix(first, TitlePayloadType+": ")
	if !ok {
		return false
	}
	var types map[string]string
	if err := json.Unmarshal([]byte(value), &types); err != nil {
		return false
	}
	b := Block{PayloadTypes: types}
	return b.IsTextual()
}
