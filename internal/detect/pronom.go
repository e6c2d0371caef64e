package detect

import (
	"bytes"
	"regexp"
)

// puidByMime maps mime types to PRONOM identifiers when no finer version
// check applies.
var puidByMime = map[string]string{
	"text/html":                "fmt/96",
	"application/xhtml+xml":    "fmt/102",
	"text/plain":               "x-fmt/111",
	"text/xml":                 "fmt/101",
	"application/xml":          "fmt/101",
	"application/json":         "fmt/817",
	"text/css":                 "x-fmt/224",
	"text/csv":                 "x-fmt/18",
	"image/gif":                "fmt/4",
	"image/png":                "fmt/13",
	"image/jpeg":               "fmt/41",
	"image/svg+xml":            "fmt/92",
	"image/x-icon":             "x-fmt/418",
	"image/vnd.microsoft.icon": "x-fmt/418",
	"image/tiff":               "fmt/353",
	"image/bmp":                "fmt/119",
	"application/pdf":          "fmt/18",
	"application/zip":          "x-fmt/263",
	"application/gzip":         "x-fmt/266",
	"application/x-gzip":       "x-fmt/266",
	"audio/mpeg":               "fmt/134",
	"video/mp4":                "fmt/199",
	"application/rtf":          "fmt/355",
	"text/rtf":                 "fmt/355",
}

var (
	doctypeRe = regexp.MustCompile(`(?i)<!doctype\s+html([^>]*)>`)
	pdfRe     = regexp.MustCompile(`^%PDF-(\d\.\d)`)
)

// htmlDoctypes maps public identifier fragments to PUIDs. Order matters:
// XHTML 1.1 must be tried before XHTML 1.0.
var htmlDoctypes = []struct {
	fragment string
	puid     string
}{
	{"xhtml 1.1", "fmt/103"},
	{"xhtml 1.0", "fmt/102"},
	{"html 4.01", "fmt/100"},
	{"html 4.0", "fmt/99"},
	{"html 3.2", "fmt/98"},
	{"html 2.0", "fmt/97"},
}

var pdfVersions = map[string]string{
	"1.0": "fmt/14",
	"1.1": "fmt/15",
	"1.2": "fmt/16",
	"1.3": "fmt/17",
	"1.4": "fmt/18",
	"1.5": "fmt/19",
	"1.6": "fmt/20",
	"1.7": "fmt/276",
	"2.0": "fmt/1129",
}

// PUID returns the PRONOM identifier for a payload of the given mime type,
// refined by version markers in the payload. Empty when unknown.
func PUID(mime string, payload []byte) string {
	switch mime {
	case "text/html", "application/xhtml+xml":
		if m := doctypeRe.FindSubmatch(head(payload, 2048)); m != nil {
			public := bytes.ToLower(m[1])
			if len(bytes.TrimSpace(public)) == 0 {
				return "fmt/471"
			}
			for _, d := range htmlDoctypes {
				if bytes.Contains(public, []byte(d.fragment)) {
					return d.puid
				}
			}
		}
	case "image/gif":
		if bytes.HasPrefix(payload, []byte("GIF87a")) {
			return "fmt/3"
		}
		return "fmt/4"
	case "image/jpeg":
		switch {
		case bytes.Contains(head(payload, 32), []byte("JFIF\x00\x01\x01")):
			return "fmt/43"
		case bytes.Contains(head(payload, 32), []byte("JFIF\x00\x01\x02")):
			return "fmt/44"
		case bytes.Contains(head(payload, 32), []byte("Exif\x00")):
			return "fmt/645"
		}
	case "application/pdf":
		if m := pdfRe.FindSubmatch(head(payload, 16)); m != nil {
			if puid, ok := pdfVersions[string(m[1])]; ok {
				return puid
			}
		}
	}
	return puidByMime[mime]
}

func head(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
