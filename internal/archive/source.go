// Package archive turns WARC/ARC records into capture records with their HTTP
// payload decoded.
package archive

import (
	"io"
	"os"
	"strings"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/errors"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/warc"
)

// Capture is one archived capture with its decoded payload.
type Capture struct {
	Type          string
	URL           string
	Date          string
	RecordID      string
	WarcinfoID    string
	ContentType   string
	HTTPStatus    int // 0 when the record carries no HTTP response
	Payload       []byte
	PayloadDigest string
	Legacy        bool // read from an ARC file
}

// Source yields captures from one archive file.
type Source struct {
	path string
	f    *os.File
	r    *warc.Reader
}

// Open opens the archive at path. The caller must Close it.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, errors.NewIO(path, err)
	}
	r, err := warc.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.NewFormat(path, 0, err.Error())
	}
	return &Source{path: path, f: f, r: r}, nil
}

// Close releases the file.
func (s *Source) Close() error {
	s.r.Close()
	return s.f.Close()
}

// Next returns the next capture, or io.EOF.
func (s *Source) Next() (*Capture, error) {
	rec, err := s.r.Next()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		var fe *warc.FormatError
		if errors.As(err, &fe) {
			return nil, errors.NewFormat(s.path, fe.Offset, fe.Msg)
		}
		return nil, errors.NewIO(s.path, err)
	}
	return FromRecord(rec), nil
}

// FromRecord builds a Capture from a raw record. HTTP-bearing blocks are
// parsed; anything else becomes the payload as-is.
func FromRecord(rec *warc.Record) *Capture {
	c := &Capture{
		Type:          rec.Type(),
		URL:           rec.Header.Get(warc.HeaderTargetURI),
		Date:          rec.Header.Get(warc.HeaderDate),
		RecordID:      rec.Header.Get(warc.HeaderRecordID),
		WarcinfoID:    rec.Header.Get(warc.HeaderWarcinfoID),
		ContentType:   rec.Header.Get(warc.HeaderContentType),
		PayloadDigest: rec.Header.Get(warc.HeaderPayloadDigest),
		Legacy:        rec.Format == warc.FormatARC,
	}

	c.Payload = rec.Block
	if isHTTP(c) {
		if status, body, ok := ParseHTTPResponse(rec.Block); ok {
			c.HTTPStatus = status
			c.Payload = body
		}
	}

	if c.PayloadDigest == "" && len(c.Payload) > 0 {
		c.PayloadDigest = warc.SHA1Digest(c.Payload)
	}
	return c
}

func isHTTP(c *Capture) bool {
	if c.Type != warc.TypeResponse && c.Type != warc.TypeRevisit {
		return false
	}
	ct := strings.ToLower(c.ContentType)
	if strings.HasPrefix(ct, "application/http") {
		return true
	}
	u := strings.ToLower(c.URL)
	return ct == "" && (strings.HasPrefix(u, "http:") || strings.HasPrefix(u, "https:"))
}
