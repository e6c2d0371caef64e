package warc

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strconv"
)

// Writer writes WARC/1.1 records, one gzip member per record when compressing.
type Writer struct {
	w    io.Writer
	gzip bool
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer, gzip bool) *Writer {
	return &Writer{w: w, gzip: gzip}
}

// WriteRecord serializes rec. Content-Length and WARC-Block-Digest are
// filled from the block; rec itself is not modified.
func (w *Writer) WriteRecord(rec *Record) error {
	h := make(Header, len(rec.Header))
	copy(h, rec.Header)
	if !h.Has(HeaderBlockDigest) {
		h.Set(HeaderBlockDigest, SHA1Digest(rec.Block))
	}
	h.Set(HeaderContentLength, strconv.Itoa(len(rec.Block)))

	var buf bytes.Buffer
	buf.WriteString("WARC/1.1\r\n")
	for _, f := range h {
		fmt.Fprintf(&buf, "%s: %s\r\n", f.Name, f.Value)
	}
	buf.WriteString("\r\n")
	buf.Write(rec.Block)
	buf.WriteString("\r\n\r\n")

	if !w.gzip {
		_, err := w.w.Write(buf.Bytes())
		return err
	}

	zw := gzip.NewWriter(w.w)
	if _, err := zw.Write(buf.Bytes()); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
