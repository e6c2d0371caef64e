package detect

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/htmlindex"
)

// DecodeText converts payload to UTF-8 using the named charset when it is
// known, then replaces invalid sequences.
func DecodeText(payload []byte, charset string) string {
	name := strings.ToLower(strings.TrimSpace(charset))
	if name != "" && name != "ascii" && name != "utf-8" {
		if enc, err := htmlindex.Get(name); err == nil {
			if decoded, err := enc.NewDecoder().Bytes(payload); err == nil {
				payload = decoded
			}
		}
	}
	if utf8.Valid(payload) {
		return string(payload)
	}
	return strings.ToValidUTF8(string(payload), " ")
}

// ExtractText returns the human-readable text of a payload. Markup, scripts
// and styles are removed from HTML. Control and unassigned code points become
// spaces; line breaks are kept.
func ExtractText(payload []byte, hint TextHint) string {
	text := DecodeText(payload, hint.Charset)
	if hint.HTML {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
		if err == nil {
			doc.Find("script, style, noscript, template").Remove()
			text = blockText(doc)
		}
	}
	return cleanText(text)
}

// blockText joins the text of the document, putting block-level elements on
// their own lines so segments do not run together.
func blockText(doc *goquery.Document) string {
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6, br, tr, td, th, title, section, article").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	return doc.Text()
}

func cleanText(s string) string {
	var b bytes.Buffer
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteRune(r)
		case r == utf8.RuneError, unicode.IsControl(r):
			b.WriteByte(' ')
		case !unicode.IsPrint(r) && !unicode.IsSpace(r):
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
