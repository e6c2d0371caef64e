package cdxj

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/language"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/jsonx"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/metadata"
)

// Keys written into merged lines.
const (
	KeyMimeDetected   = "mime-detected"
	KeyPreservationID = "preservation-id"
	KeyCharset        = "charset"
	KeyLanguages      = "languages"
	KeySoft404        = "soft-404-detected"
)

// DefaultMimePreference picks the magic-byte result over the signature one.
var DefaultMimePreference = []string{"filetype", "mimetype"}

// Field is one key/value set on a matched original line.
type Field struct {
	Key   string
	Value json.RawMessage
}

// InjectedFields derives the fields to add to original lines from one
// metadata index object. Values without the expected shape are left out.
// A nil mimePreference means DefaultMimePreference.
func InjectedFields(meta *jsonx.Object, mimePreference []string) []Field {
	if mimePreference == nil {
		mimePreference = DefaultMimePreference
	}
	var fields []Field
	add := func(key string, raw json.RawMessage) {
		fields = append(fields, Field{Key: key, Value: raw})
	}

	if raw, ok := meta.Get(metadata.TitlePayloadType); ok {
		if mime, ok := pickMime(raw, mimePreference); ok {
			add(KeyMimeDetected, mime)
		}
	}
	if raw, ok := meta.Get(metadata.TitlePreservationID); ok && !isEmptyValue(raw) {
		add(KeyPreservationID, raw)
	}
	if raw, ok := meta.Get(metadata.TitleCharset); ok {
		var cs struct {
			Encoding json.RawMessage `json:"encoding"`
		}
		if json.Unmarshal(raw, &cs) == nil && len(cs.Encoding) > 0 && !isEmptyValue(cs.Encoding) {
			add(KeyCharset, cs.Encoding)
		}
	}
	raw, ok := meta.Get(metadata.TitleLanguages)
	if !ok {
		raw, ok = meta.Get(metadata.TitleLanguagesLegacy)
	}
	if ok {
		if codes := alpha3Codes(raw); codes != "" {
			js, _ := jsonx.Marshal(codes)
			add(KeyLanguages, js)
		}
	}
	if raw, ok := meta.Get(metadata.TitleSoft404); ok {
		add(KeySoft404, raw)
	}
	return fields
}

func pickMime(raw json.RawMessage, preference []string) (json.RawMessage, bool) {
	types, err := jsonx.ParseObject(raw)
	if err != nil || types.Len() == 0 {
		return nil, false
	}
	for _, name := range preference {
		if v, ok := types.Get(name); ok && !isEmptyValue(v) {
			return v, true
		}
	}
	v, _ := types.Get(types.Keys()[0])
	return v, true
}

// alpha3Codes returns the ISO 639-3 codes of the detected languages, comma
// joined. Codes without a three-letter form are dropped.
func alpha3Codes(raw json.RawMessage) string {
	var langs struct {
		Languages []struct {
			Code string `json:"code"`
		} `json:"languages"`
	}
	if err := json.Unmarshal(raw, &langs); err != nil {
		return ""
	}
	var codes []string
	for _, l := range langs.Languages {
		if code := ISO3(l.Code); code != "" {
			codes = append(codes, code)
		}
	}
	return strings.Join(codes, ",")
}

// ISO3 maps a language code to its ISO 639-3 form, or "" when unknown.
func ISO3(code string) string {
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	iso := base.ISO3()
	if len(iso) != 3 || iso == "und" {
		return ""
	}
	return iso
}

func isEmptyValue(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", `""`:
		return true
	}
	return false
}
