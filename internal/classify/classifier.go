// Package classify decides what metadata to record for each capture, reusing
// earlier results for payloads already seen in the run.
package classify

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/archive"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/detect"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/errors"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/metadata"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/warc"
)

// Result is the metadata chosen for one capture.
type Result struct {
	Text    string
	Cached  bool
	Textual bool
}

// Stats counts classifier outcomes.
type Stats struct {
	Classified     int `json:"classified"`
	Skipped        int `json:"skipped"`
	CacheHits      int `json:"cache_hits"`
	Textual        int `json:"textual"`
	NonTextual     int `json:"non_textual"`
	DetectorErrors int `json:"detector_errors"`
}

// Classifier runs detectors over captures. It is not safe for concurrent use.
type Classifier struct {
	det      detect.Set
	cache    DigestCache
	logger   *log.Logger
	maxBytes int64
	stats    Stats
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger used for detector failures and per-record debug lines.
func WithLogger(l *log.Logger) Option {
	return func(c *Classifier) { c.logger = l }
}

// WithMaxPayloadBytes caps the bytes given to detectors. 0 means no cap.
func WithMaxPayloadBytes(n int64) Option {
	return func(c *Classifier) { c.maxBytes = n }
}

// New returns a classifier. A nil cache gets a fresh MemoryCache.
func New(det detect.Set, cache DigestCache, opts ...Option) *Classifier {
	c := &Classifier{det: det, cache: cache}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewMemoryCache()
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c
}

// Stats returns the counters so far.
func (c *Classifier) Stats() Stats {
	return c.stats
}

// Classify returns the metadata for rec, or ok=false when the capture gets
// no metadata record.
func (c *Classifier) Classify(rec *archive.Capture) (*Result, bool) {
	if Skip(rec) {
		c.stats.Skipped++
		return nil, false
	}

	if text, ok := c.cache.Lookup(rec.PayloadDigest); ok {
		if text == "" {
			c.stats.Skipped++
			return nil, false
		}
		c.stats.CacheHits++
		return c.count(&Result{Text: text, Cached: true, Textual: metadata.TextIsTextual(text)}), true
	}

	block := c.detectBlock(rec)
	text, err := block.Serialize()
	if err != nil {
		c.logger.Warn("serialize metadata", "url", rec.URL, "err", err)
		text = ""
	}
	c.cache.Insert(rec.PayloadDigest, text)

	if text == "" {
		c.stats.Skipped++
		return nil, false
	}
	c.logger.Debug("classified", "url", rec.URL)
	return c.count(&Result{Text: text, Textual: block.IsTextual()}), true
}

func (c *Classifier) count(res *Result) *Result {
	c.stats.Classified++
	if res.Textual {
		c.stats.Textual++
	} else {
		c.stats.NonTextual++
	}
	return res
}

// Skip reports whether a capture is out of scope: not a response, resource or
// revisit, a DNS record, or an empty payload.
func Skip(rec *archive.Capture) bool {
	if len(rec.Payload) == 0 {
		return true
	}
	switch rec.Type {
	case warc.TypeResponse, warc.TypeResource, warc.TypeRevisit:
	default:
		return true
	}
	if strings.HasPrefix(rec.URL, "dns:") || strings.Contains(strings.ToLower(rec.ContentType), "text/dns") {
		return true
	}
	return false
}

func (c *Classifier) detectBlock(rec *archive.Capture) *metadata.Block {
	payload := rec.Payload
	if c.maxBytes > 0 && int64(len(payload)) > c.maxBytes {
		payload = payload[:c.maxBytes]
	}

	block := &metadata.Block{}
	for _, f := range c.det.Formats {
		var res detect.Format
		ok := c.run(f.Name(), rec.URL, func() (err error) {
			res, err = f.Identify(payload)
			return err
		})
		if !ok || res.Mime == "" {
			continue
		}
		if block.PayloadTypes == nil {
			block.PayloadTypes = make(map[string]string)
		}
		block.PayloadTypes[f.Name()] = res.Mime
		if block.PreservationID == "" {
			block.PreservationID = res.PUID
		}
	}

	if block.IsTextual() {
		hint := detect.TextHint{HTML: hasHTML(block)}
		if c.det.Charset != nil {
			c.run(detect.NameCharset, rec.URL, func() (err error) {
				block.Charset, err = c.det.Charset.DetectCharset(payload)
				return err
			})
			if block.Charset != nil {
				hint.Charset = block.Charset.Encoding
			}
		}
		if c.det.Language != nil {
			c.run(detect.NameLanguage, rec.URL, func() (err error) {
				block.Languages, err = c.det.Language.DetectLanguages(payload, hint)
				return err
			})
		}
	}

	if c.det.Soft404 != nil && rec.HTTPStatus == 200 && hasHTML(block) {
		c.run(detect.NameSoft404, rec.URL, func() error {
			p, err := c.det.Soft404.Soft404(payload)
			if err != nil {
				return err
			}
			block.Soft404 = &p
			return nil
		})
	}
	return block
}

// run calls fn, turning errors and panics into a logged detection error.
func (c *Classifier) run(name, url string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.fail(name, url, fmt.Errorf("panic: %v", r))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		c.fail(name, url, err)
		return false
	}
	return true
}

func (c *Classifier) fail(name, url string, err error) {
	c.stats.DetectorErrors++
	c.logger.Warn("detector failed", "url", url, "err", errors.NewDetection(name, err))
}

func hasHTML(b *metadata.Block) bool {
	for _, mime := range b.PayloadTypes {
		if strings.Contains(mime, "html") {
			return true
		}
	}
	return false
}
