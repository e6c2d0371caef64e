package detect

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/h2non/filetype"
)

const octetStream = "application/octet-stream"

// Signature identifies formats from their byte signatures and maps the
// result to a PRONOM identifier.
type Signature struct{}

// Name implements FormatIdentifier.
func (Signature) Name() string { return NameSignature }

// Identify implements FormatIdentifier.
func (Signature) Identify(payload []byte) (Format, error) {
	mime := baseMime(mimetype.Detect(payload).String())
	if mime == "" || mime == octetStream {
		return Format{}, nil
	}
	return Format{Mime: mime, PUID: PUID(mime, payload)}, nil
}

// Magic matches leading magic bytes. It knows binary formats only.
type Magic struct{}

// Name implements FormatIdentifier.
func (Magic) Name() string { return NameMagic }

// Identify implements FormatIdentifier.
func (Magic) Identify(payload []byte) (Format, error) {
	kind, err := filetype.Match(payload)
	if err != nil {
		return Format{}, err
	}
	if kind == filetype.Unknown {
		return Format{}, nil
	}
	mime := baseMime(kind.MIME.Value)
	if mime == octetStream {
		return Format{}, nil
	}
	return Format{Mime: mime}, nil
}

// baseMime drops parameters and lowercases.
func baseMime(s string) string {
	base, _, _ := strings.Cut(s, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
