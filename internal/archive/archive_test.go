package archive

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/errors"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/warc"
)

func TestReadUpTo(t *testing.T) {
	data := strings.Repeat("abcdefgh", 10000)

	tests := []struct {
		name  string
		limit int64
		want  int
	}{
		{"unlimited", -1, len(data)},
		{"limited", 100, 100},
		{"limit beyond data", int64(len(data) + 5), len(data)},
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// One byte per Read forces the loop to keep going
			got, err := ReadUpTo(iotest.OneByteReader(strings.NewReader(data)), tt.limit)
			if err != nil {
				t.Fatalf("ReadUpTo() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestReadUpTo_ErrorKeepsPartial(t *testing.T) {
	r := iotest.TimeoutReader(iotest.OneByteReader(strings.NewReader("abc")))

	got, err := ReadUpTo(r, -1)
	if err == nil {
		t.Fatal("expected error")
	}
	if string(got) != "a" {
		t.Errorf("partial = %q, want %q", got, "a")
	}
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	zw.Close()
	return buf.Bytes()
}

func TestParseHTTPResponse(t *testing.T) {
	gz := gzipBytes(t, "<html>zipped</html>")

	tests := []struct {
		name       string
		block      []byte
		wantOK     bool
		wantStatus int
		wantBody   string
	}{
		{
			name:       "plain",
			block:      []byte("HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nContent-Length: 13\r\n\r\n<html></html>"),
			wantOK:     true,
			wantStatus: 200,
			wantBody:   "<html></html>",
		},
		{
			name:       "chunked",
			block:      []byte("HTTP/1.1 404 Not Found\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n"),
			wantOK:     true,
			wantStatus: 404,
			wantBody:   "hello",
		},
		{
			name:       "gzip content encoding",
			block:      append([]byte("HTTP/1.1 200 OK\r\nContent-Encoding: gzip\r\n\r\n"), gz...),
			wantOK:     true,
			wantStatus: 200,
			wantBody:   "<html>zipped</html>",
		},
		{
			name:       "bogus gzip falls back to raw",
			block:      []byte("HTTP/1.1 200 OK\r\nContent-Encoding: gzip\r\n\r\nnot gzip"),
			wantOK:     true,
			wantStatus: 200,
			wantBody:   "not gzip",
		},
		{
			name:       "truncated body",
			block:      []byte("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\npartial"),
			wantOK:     true,
			wantStatus: 200,
			wantBody:   "partial",
		},
		{
			name:   "not http",
			block:  []byte("just some bytes"),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body, ok := ParseHTTPResponse(tt.block)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if string(body) != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestFromRecord(t *testing.T) {
	httpBlock := []byte("HTTP/1.1 200 OK\r\nContent-Type: text/html\r\n\r\n<p>hi</p>")

	t.Run("warc response with digest header", func(t *testing.T) {
		rec := &warc.Record{
			Header: warc.Header{
				{Name: warc.HeaderType, Value: warc.TypeResponse},
				{Name: warc.HeaderTargetURI, Value: "http://example.com/"},
				{Name: warc.HeaderDate, Value: "2022-01-01T00:00:00Z"},
				{Name: warc.HeaderRecordID, Value: "<urn:uuid:1>"},
				{Name: warc.HeaderWarcinfoID, Value: "<urn:uuid:0>"},
				{Name: warc.HeaderContentType, Value: "application/http; msgtype=response"},
				{Name: warc.HeaderPayloadDigest, Value: "sha1:FIXED"},
			},
			Block: httpBlock,
		}
		c := FromRecord(rec)
		if c.HTTPStatus != 200 || string(c.Payload) != "<p>hi</p>" {
			t.Errorf("status/payload = %d/%q", c.HTTPStatus, c.Payload)
		}
		if c.PayloadDigest != "sha1:FIXED" {
			t.Errorf("digest = %q, want header value", c.PayloadDigest)
		}
		if c.RecordID != "<urn:uuid:1>" || c.WarcinfoID != "<urn:uuid:0>" || c.Legacy {
			t.Errorf("ids/legacy = %q/%q/%v", c.RecordID, c.WarcinfoID, c.Legacy)
		}
	})

	t.Run("arc response gets computed digest", func(t *testing.T) {
		rec := &warc.Record{
			Format: warc.FormatARC,
			Header: warc.Header{
				{Name: warc.HeaderType, Value: warc.TypeResponse},
				{Name: warc.HeaderTargetURI, Value: "http://example.com/"},
				{Name: warc.HeaderContentType, Value: "application/http; msgtype=response"},
			},
			Block: httpBlock,
		}
		c := FromRecord(rec)
		if c.PayloadDigest != warc.SHA1Digest([]byte("<p>hi</p>")) {
			t.Errorf("digest = %q", c.PayloadDigest)
		}
		if !c.Legacy {
			t.Error("expected Legacy for ARC record")
		}
	})

	t.Run("resource keeps block as payload", func(t *testing.T) {
		rec := &warc.Record{
			Header: warc.Header{
				{Name: warc.HeaderType, Value: warc.TypeResource},
				{Name: warc.HeaderTargetURI, Value: "http://example.com/a.txt"},
				{Name: warc.HeaderContentType, Value: "text/plain"},
			},
			Block: []byte("HTTP/1.1 200 OK\r\n\r\nnot parsed"),
		}
		c := FromRecord(rec)
		if c.HTTPStatus != 0 || !bytes.Equal(c.Payload, rec.Block) {
			t.Errorf("resource block should not be parsed as HTTP: %d %q", c.HTTPStatus, c.Payload)
		}
	})
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.warc.gz"))
	if !errors.Is(err, errors.ErrFileNotFound) {
		t.Errorf("expected FILE_NOT_FOUND, got %v", err)
	}
}

func TestSource_Next(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.warc.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := warc.NewWriter(f, true)
	rec := &warc.Record{
		Header: warc.Header{
			{Name: warc.HeaderType, Value: warc.TypeResponse},
			{Name: warc.HeaderRecordID, Value: warc.NewRecordID()},
			{Name: warc.HeaderTargetURI, Value: "http://example.com/"},
			{Name: warc.HeaderDate, Value: "2022-01-01T00:00:00Z"},
			{Name: warc.HeaderContentType, Value: "application/http; msgtype=response"},
		},
		Block: []byte("HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\nhello"),
	}
	if err := w.WriteRecord(rec); err != nil {
		t.Fatal(err)
	}
	f.Close()

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	c, err := src.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if string(c.Payload) != "hello" || c.URL != "http://example.com/" {
		t.Errorf("capture = %+v", c)
	}
	if _, err := src.Next(); err != io.EOF {
		t.Errorf("second Next() = %v, want io.EOF", err)
	}
}

func TestSource_FormatError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.warc")
	if err := os.WriteFile(path, []byte("WARC/1.0\r\nContent-Length: 99\r\n\r\nshort"), 0600); err != nil {
		t.Fatal(err)
	}
	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	_, err = src.Next()
	if !errors.Is(err, errors.ErrFormat) {
		t.Errorf("expected FORMAT_ERROR, got %v", err)
	}
}
