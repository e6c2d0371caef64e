package detect

import (
	"math"
	"sort"
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/jsonx"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/metadata"
)

const (
	// segmentBytes is the minimum size a text segment is grown to before detection.
	segmentBytes = 200
	maxLanguages = 3
)

// Whatlang detects languages per text segment and aggregates them into at
// most three languages with the share of text each covers.
type Whatlang struct {
	// MinCoverage drops languages covering less than this percentage.
	MinCoverage int
}

type langTally struct {
	lang       whatlanggo.Lang
	bytes      int
	confidence float64 // byte-weighted sum
}

// DetectLanguages implements LanguageDetector.
func (w *Whatlang) DetectLanguages(payload []byte, hint TextHint) (*metadata.Languages, error) {
	text := ExtractText(payload, hint)

	tallies := map[whatlanggo.Lang]*langTally{}
	total := 0
	for _, seg := range segments(text) {
		info := whatlanggo.Detect(seg)
		if info.Lang < 0 || info.Confidence <= 0 || info.Lang.Iso6393() == "" {
			continue
		}
		n := len(seg)
		total += n
		t, ok := tallies[info.Lang]
		if !ok {
			t = &langTally{lang: info.Lang}
			tallies[info.Lang] = t
		}
		t.bytes += n
		t.confidence += info.Confidence * float64(n)
	}
	if total == 0 {
		return nil, nil
	}

	ranked := make([]*langTally, 0, len(tallies))
	for _, t := range tallies {
		ranked = append(ranked, t)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].bytes != ranked[j].bytes {
			return ranked[i].bytes > ranked[j].bytes
		}
		return ranked[i].lang.String() < ranked[j].lang.String()
	})

	info := whatlanggo.Detect(text)
	out := &metadata.Languages{
		Reliable:  info.IsReliable(),
		TextBytes: len(strings.TrimSpace(text)),
	}
	for _, t := range ranked {
		if len(out.Languages) == maxLanguages {
			break
		}
		coverage := t.bytes * 100 / total
		if coverage < w.MinCoverage {
			continue
		}
		code := t.lang.Iso6391()
		if code == "" {
			code = t.lang.Iso6393()
		}
		out.Languages = append(out.Languages, metadata.LanguageScore{
			Name:     t.lang.String(),
			Code:     code,
			Coverage: coverage,
			Score:    jsonx.Float(math.Round(t.confidence / float64(t.bytes) * 1000)),
		})
	}
	if len(out.Languages) == 0 {
		return nil, nil
	}
	return out, nil
}

// segments splits text on line breaks and joins short lines until each
// segment holds at least segmentBytes.
func segments(text string) []string {
	var out []string
	var cur strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(line)
		if cur.Len() >= segmentBytes {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
