package archive

import (
	"bufio"
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"net/http"
	"strings"
)

const readChunk = 32 << 10

// ReadUpTo reads from r until limit bytes are collected or the reader is
// exhausted. A single Read is never assumed to fill the request. limit < 0
// means no limit. On error the bytes read so far are returned with it.
func ReadUpTo(r io.Reader, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, readChunk)
	for limit < 0 || int64(buf.Len()) < limit {
		want := len(chunk)
		if limit >= 0 {
			if remaining := limit - int64(buf.Len()); remaining < int64(want) {
				want = int(remaining)
			}
		}
		n, err := r.Read(chunk[:want])
		buf.Write(chunk[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return buf.Bytes(), err
		}
	}
	return buf.Bytes(), nil
}

// ParseHTTPResponse splits an HTTP response block into status and body.
// Transfer coding is removed and gzip/deflate content coding is undone when
// it decodes cleanly. A truncated body yields the bytes received.
func ParseHTTPResponse(block []byte) (int, []byte, bool) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(block)), nil)
	if err != nil {
		return 0, nil, false
	}
	defer resp.Body.Close()

	// Partial bodies are still worth classifying
	body, _ := ReadUpTo(resp.Body, -1)

	if decoded, ok := decodeContent(resp.Header.Get("Content-Encoding"), body); ok {
		body = decoded
	}
	return resp.StatusCode, body, true
}

func decodeContent(encoding string, body []byte) ([]byte, bool) {
	var r io.ReadCloser
	var err error
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		r, err = gzip.NewReader(bytes.NewReader(body))
	case "deflate":
		// Servers disagree on zlib-wrapped vs raw deflate
		r, err = zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			r, err = flate.NewReader(bytes.NewReader(body)), nil
		}
	default:
		return nil, false
	}
	if err != nil {
		return nil, false
	}
	defer r.Close()

	out, err := ReadUpTo(r, -1)
	if err != nil || len(out) == 0 {
		return nil, false
	}
	return out, true
}
