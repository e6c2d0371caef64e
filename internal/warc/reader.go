package warc

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Reader reads records sequentially from a WARC or ARC stream. Gzip input is
// detected by its magic bytes and may hold one member per record.
type Reader struct {
	br       *bufio.Reader
	gz       *gzip.Reader
	format   Format
	detected bool
	offset   int64
}

// FormatError reports malformed framing at a stream offset.
type FormatError struct {
	Offset int64
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed record at offset %d: %s", e.Offset, e.Msg)
}

// NewReader wraps r. The container flavor is decided by the first record.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	rd := &Reader{br: br}

	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		rd.gz = gz
		rd.br = bufio.NewReader(gz)
	}
	return rd, nil
}

// Format returns the container flavor. Only meaningful after the first Next.
func (r *Reader) Format() Format {
	return r.format
}

// Close releases the gzip reader, if any. It does not close the underlying reader.
func (r *Reader) Close() error {
	if r.gz != nil {
		return r.gz.Close()
	}
	return nil
}

// Next returns the next record, or io.EOF when the stream is exhausted.
func (r *Reader) Next() (*Record, error) {
	for {
		line, err := r.readLine()
		if err != nil && err != io.EOF {
			return nil, err
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			if err == io.EOF {
				return nil, io.EOF
			}
			continue
		}
		start := r.offset - int64(len(line))

		if !r.detected {
			r.detected = true
			if strings.HasPrefix(trimmed, "WARC/") {
				r.format = FormatWARC
			} else {
				r.format = FormatARC
			}
		}

		if r.format == FormatWARC {
			return r.readWARC(trimmed, start)
		}
		return r.readARC(trimmed, start)
	}
}

func (r *Reader) readWARC(versionLine string, start int64) (*Record, error) {
	if !strings.HasPrefix(versionLine, "WARC/") {
		return nil, &FormatError{start, fmt.Sprintf("expected WARC version line, got %q", truncate(versionLine))}
	}

	var h Header
	for {
		line, err := r.readLine()
		if err == io.EOF && line == "" {
			return nil, &FormatError{start, "unexpected end of headers"}
		}
		if err != nil && err != io.EOF {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		// Continuation lines fold onto the previous value
		if (line[0] == ' ' || line[0] == '\t') && len(h) > 0 {
			h[len(h)-1].Value += " " + strings.TrimSpace(line)
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, &FormatError{start, fmt.Sprintf("bad header line %q", truncate(line))}
		}
		h.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	length, err := strconv.ParseInt(h.Get(HeaderContentLength), 10, 64)
	if err != nil || length < 0 {
		return nil, &FormatError{start, "missing or invalid Content-Length"}
	}
	block, err := r.readBlock(length)
	if err != nil {
		return nil, &FormatError{start, err.Error()}
	}

	return &Record{Format: FormatWARC, Header: h, Block: block, Offset: start}, nil
}

// readARC converts one ARC v1/v2 record to its WARC equivalent.
func (r *Reader) readARC(headerLine string, start int64) (*Record, error) {
	fields := strings.Fields(headerLine)
	if len(fields) < 5 {
		return nil, &FormatError{start, fmt.Sprintf("bad ARC header %q", truncate(headerLine))}
	}
	length, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
	if err != nil || length < 0 {
		return nil, &FormatError{start, "invalid ARC record length"}
	}
	block, err := r.readBlock(length)
	if err != nil {
		return nil, &FormatError{start, err.Error()}
	}

	url, ip, date, mime := fields[0], fields[1], arcDate(fields[2]), fields[3]

	var h Header
	if strings.HasPrefix(url, "filedesc://") {
		h = Header{
			{HeaderType, TypeWarcinfo},
			{HeaderDate, date},
			{HeaderFilename, strings.TrimPrefix(url, "filedesc://")},
			{HeaderContentType, mime},
		}
	} else {
		contentType := mime
		lower := strings.ToLower(url)
		if strings.HasPrefix(lower, "http:") || strings.HasPrefix(lower, "https:") {
			contentType = "application/http; msgtype=response"
		}
		h = Header{
			{HeaderType, TypeResponse},
			{HeaderTargetURI, url},
			{HeaderDate, date},
			{"WARC-IP-Address", ip},
			{HeaderContentType, contentType},
		}
	}
	h.Add(HeaderContentLength, strconv.FormatInt(length, 10))

	return &Record{Format: FormatARC, Header: h, Block: block, Offset: start}, nil
}

// readBlock reads exactly n bytes.
func (r *Reader) readBlock(n int64) ([]byte, error) {
	block := make([]byte, n)
	read, err := io.ReadFull(r.br, block)
	r.offset += int64(read)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return nil, fmt.Errorf("truncated block: got %d of %d bytes", read, n)
	}
	if err != nil {
		return nil, err
	}
	return block, nil
}

func (r *Reader) readLine() (string, error) {
	line, err := r.br.ReadString('\n')
	r.offset += int64(len(line))
	return line, err
}

// arcDate turns a 14-digit ARC date into a WARC-Date. Anything else passes through.
func arcDate(s string) string {
	if t, err := time.Parse("20060102150405", s); err == nil {
		return FormatDate(t)
	}
	return s
}

func truncate(s string) string {
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
