package detect

import (
	"strings"

	"github.com/saintfish/chardet"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/jsonx"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/metadata"
)

// Chardet detects encodings statistically. Pure 7-bit input short-circuits
// to ascii.
type Chardet struct {
	det *chardet.Detector
}

// NewChardet returns a text (not HTML-aware) charset detector.
func NewChardet() *Chardet {
	return &Chardet{det: chardet.NewTextDetector()}
}

// DetectCharset implements CharsetDetector.
func (c *Chardet) DetectCharset(payload []byte) (*metadata.Charset, error) {
	if isASCII(payload) {
		return &metadata.Charset{Encoding: "ascii", Confidence: 1}, nil
	}
	res, err := c.det.DetectBest(payload)
	if err == chardet.NotDetectedError {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &metadata.Charset{
		Encoding:   strings.ToLower(res.Charset),
		Confidence: jsonx.Float(float64(res.Confidence) / 100),
	}, nil
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}
