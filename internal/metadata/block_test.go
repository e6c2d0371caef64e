package metadata

import (
	"strings"
	"testing"
)

func fullBlock() *Block {
	p := 0.08195022044249829
	return &Block{
		PayloadTypes:   map[string]string{"mimetype": "text/html", "filetype": "text/html"},
		PreservationID: "fmt/471",
		Charset:        &Charset{Encoding: "ascii", Confidence: 1},
		Languages: &Languages{
			Reliable:  true,
			TextBytes: 1208,
			Languages: []LanguageScore{{Name: "English", Code: "en", Coverage: 99, Score: 1154}},
		},
		Soft404: &p,
	}
}

func TestSerialize_FieldOrderAndFormat(t *testing.T) {
	text, err := fullBlock().Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	want := strings.Join([]string{
		`Identified-Payload-Type: {"filetype": "text/html", "mimetype": "text/html"}`,
		`Preservation-Identifier: fmt/471`,
		`Charset-Detected: {"encoding": "ascii", "confidence": 1.0}`,
		`Languages-Detected: {"reliable": true, "text-bytes": 1208, "languages": [{"name": "English", "code": "en", "text-covered": 99, "score": 1154.0}]}`,
		`Soft-404-Detected: 0.08195022044249829`,
	}, "\n")
	if text != want {
		t.Errorf("Serialize() =\n%s\nwant\n%s", text, want)
	}
}

func TestSerialize_Deterministic(t *testing.T) {
	first, _ := fullBlock().Serialize()
	for i := 0; i < 20; i++ {
		again, _ := fullBlock().Serialize()
		if again != first {
			t.Fatalf("serialization changed between runs:\n%s\n%s", first, again)
		}
	}
}

func TestSerialize_OmitsAbsentFields(t *testing.T) {
	b := &Block{PayloadTypes: map[string]string{"mimetype": "image/png"}}
	text, err := b.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if text != `Identified-Payload-Type: {"mimetype": "image/png"}` {
		t.Errorf("Serialize() = %q", text)
	}

	empty := &Block{}
	if !empty.IsEmpty() {
		t.Error("IsEmpty() = false for empty block")
	}
	if text, _ := empty.Serialize(); text != "" {
		t.Errorf("empty Serialize() = %q", text)
	}
}

func TestIsTextual(t *testing.T) {
	tests := []struct {
		types map[string]string
		want  bool
	}{
		{map[string]string{"mimetype": "text/plain"}, true},
		{map[string]string{"mimetype": "application/xhtml+xml"}, true},
		{map[string]string{"filetype": "image/jpeg", "mimetype": "image/jpeg"}, false},
		{nil, false},
	}

	for _, tt := range tests {
		b := &Block{PayloadTypes: tt.types}
		if got := b.IsTextual(); got != tt.want {
			t.Errorf("IsTextual(%v) = %v, want %v", tt.types, got, tt.want)
		}
		text, _ := b.Serialize()
		if got := TextIsTextual(text); got != tt.want {
			t.Errorf("TextIsTextual(%q) = %v, want %v", text, got, tt.want)
		}
	}
}

func TestParseFields(t *testing.T) {
	text, _ := fullBlock().Serialize()

	obj, err := ParseFields(text)
	if err != nil {
		t.Fatalf("ParseFields() error = %v", err)
	}
	wantKeys := []string{TitlePayloadType, TitlePreservationID, TitleCharset, TitleLanguages, TitleSoft404}
	keys := obj.Keys()
	if len(keys) != len(wantKeys) {
		t.Fatalf("Keys() = %v", keys)
	}
	for i := range wantKeys {
		if keys[i] != wantKeys[i] {
			t.Errorf("key %d = %q, want %q", i, keys[i], wantKeys[i])
		}
	}

	puid, _ := obj.Get(TitlePreservationID)
	if string(puid) != `"fmt/471"` {
		t.Errorf("raw PUID should become a JSON string, got %s", puid)
	}
	charset, _ := obj.Get(TitleCharset)
	if string(charset) != `{"encoding": "ascii", "confidence": 1.0}` {
		t.Errorf("charset = %s", charset)
	}
}

func TestParseFields_MissingSeparator(t *testing.T) {
	_, err := ParseFields("Charset-Detected: {}\nbroken line")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error should name the line: %v", err)
	}
}
