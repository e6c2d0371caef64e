// Package warc reads and writes WARC 1.0/1.1 records and reads ARC v1 files,
// plain or as concatenated gzip members.
package warc

import (
	"crypto/sha1"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record types.
const (
	TypeWarcinfo = "warcinfo"
	TypeResponse = "response"
	TypeResource = "resource"
	TypeRequest  = "request"
	TypeRevisit  = "revisit"
	TypeMetadata = "metadata"
)

// Common header names.
const (
	HeaderType          = "WARC-Type"
	HeaderRecordID      = "WARC-Record-ID"
	HeaderDate          = "WARC-Date"
	HeaderTargetURI     = "WARC-Target-URI"
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
	HeaderPayloadDigest = "WARC-Payload-Digest"
	HeaderBlockDigest   = "WARC-Block-Digest"
	HeaderWarcinfoID    = "WARC-Warcinfo-ID"
	HeaderConcurrentTo  = "WARC-Concurrent-To"
	HeaderFilename      = "WARC-Filename"
)

// Format is the container flavor a record was read from.
type Format int

const (
	FormatWARC Format = iota
	FormatARC
)

func (f Format) String() string {
	if f == FormatARC {
		return "arc"
	}
	return "warc"
}

// Field is a single named header value.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered list of fields. Lookups are case-insensitive.
type Header []Field

// Get returns the first value for name, or "".
func (h Header) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Has reports whether name is present.
func (h Header) Has(name string) bool {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Set replaces the first value for name, or appends it.
func (h *Header) Set(name, value string) {
	for i, f := range *h {
		if strings.EqualFold(f.Name, name) {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, Field{Name: name, Value: value})
}

// Add appends a field, keeping any existing ones.
func (h *Header) Add(name, value string) {
	*h = append(*h, Field{Name: name, Value: value})
}

// Record is one archive record with its content block held in memory.
type Record struct {
	Format Format
	Header Header
	Block  []byte
	// Offset is the byte offset of the record in the (decompressed) stream.
	Offset int64
}

// Type returns the WARC-Type header.
func (r *Record) Type() string {
	return r.Header.Get(HeaderType)
}

// NewRecordID returns a fresh <urn:uuid:...> record id.
func NewRecordID() string {
	return "<urn:uuid:" + uuid.NewString() + ">"
}

// FormatDate renders t as a WARC-Date.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// SHA1Digest returns the labelled base32 SHA-1 digest used in WARC digest headers.
func SHA1Digest(b []byte) string {
	sum := sha1.Sum(b)
	return "sha1:" + base32.StdEncoding.EncodeToString(sum[:])
}

// NewWarcinfoRecord builds a warcinfo record whose application/warc-fields
// body holds fields in order. Empty values are dropped.
func NewWarcinfoRecord(filename string, fields Header) *Record {
	var b strings.Builder
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\r\n", f.Name, f.Value)
	}
	h := Header{
		{HeaderType, TypeWarcinfo},
		{HeaderRecordID, NewRecordID()},
		{HeaderDate, FormatDate(time.Now())},
	}
	if filename != "" {
		h.Add(HeaderFilename, filename)
	}
	h.Add(HeaderContentType, "application/warc-fields")
	return &Record{Header: h, Block: []byte(b.String())}
}

// NewMetadataRecord builds a metadata record about targetURI. Extra headers
// are appended after the standard ones.
func NewMetadataRecord(targetURI, date string, block []byte, extra Header) *Record {
	h := Header{
		{HeaderType, TypeMetadata},
		{HeaderRecordID, NewRecordID()},
		{HeaderTargetURI, targetURI},
		{HeaderDate, date},
	}
	h = append(h, extra...)
	h.Add(HeaderContentType, "application/warc-fields")
	return &Record{Header: h, Block: block}
}
