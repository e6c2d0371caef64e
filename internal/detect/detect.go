// Package detect holds the content detectors used by the classifier.
// Every detector works on an in-memory payload and may be swapped for a fake.
package detect

import (
	"github.com/unt-libraries/warc-metadata-sidecar/internal/config"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/metadata"
)

// Detector names, also used as config keys and payload-type map keys.
const (
	NameSignature = "mimetype"
	NameMagic     = "filetype"
	NameCharset   = "charset"
	NameLanguage  = "language"
	NameSoft404   = "soft404"
)

// Format is a format identification result. An empty Mime means no match.
type Format struct {
	Mime string
	PUID string
}

// FormatIdentifier names the format of a payload.
type FormatIdentifier interface {
	Name() string
	Identify(payload []byte) (Format, error)
}

// CharsetDetector guesses the character encoding of a textual payload.
// A nil result means nothing was detected.
type CharsetDetector interface {
	DetectCharset(payload []byte) (*metadata.Charset, error)
}

// TextHint tells the language detector how to read a payload.
type TextHint struct {
	HTML    bool
	Charset string // detected encoding name, may be empty
}

// LanguageDetector reports the languages of a textual payload.
// A nil result means no language could be determined.
type LanguageDetector interface {
	DetectLanguages(payload []byte, hint TextHint) (*metadata.Languages, error)
}

// Soft404Classifier returns the probability that an HTML page is an error page
// served with a 200 status.
type Soft404Classifier interface {
	Soft404(payload []byte) (float64, error)
}

// Set is the detector configuration of one classifier. Nil members are skipped.
type Set struct {
	Formats  []FormatIdentifier
	Charset  CharsetDetector
	Language LanguageDetector
	Soft404  Soft404Classifier
}

// NewSet builds the default detectors, leaving out any disabled in cfg.
func NewSet(cfg *config.Config) Set {
	var s Set
	if cfg.DetectorEnabled(NameSignature) {
		s.Formats = append(s.Formats, Signature{})
	}
	if cfg.DetectorEnabled(NameMagic) {
		s.Formats = append(s.Formats, Magic{})
	}
	if cfg.DetectorEnabled(NameCharset) {
		s.Charset = NewChardet()
	}
	if cfg.DetectorEnabled(NameLanguage) {
		s.Language = &Whatlang{MinCoverage: cfg.LanguageMinCoverage}
	}
	if cfg.DetectorEnabled(NameSoft404) {
		s.Soft404 = Heuristic404{}
	}
	return s
}
