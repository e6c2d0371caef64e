package detect

import (
	"bytes"
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// errorPhrases are signals that a page reports a missing resource.
var errorPhrases = []string{
	"404",
	"not found",
	"page not found",
	"cannot be found",
	"could not be found",
	"can't be found",
	"does not exist",
	"doesn't exist",
	"no longer available",
	"no longer exists",
	"has been removed",
	"page you requested",
	"page you are looking for",
}

// Heuristic404 scores HTML pages with a small logistic model over title,
// heading and body signals.
type Heuristic404 struct{}

// Weights of the logistic model.
const (
	soft404Bias       = -3.0
	soft404Title404   = 3.0
	soft404TitleText  = 2.0
	soft404Heading    = 2.0
	soft404Body       = 1.0
	soft404ShortBody  = 0.75
	soft404LongBody   = -2.0
	soft404ShortWords = 60
	soft404LongWords  = 500
)

// Soft404 implements Soft404Classifier.
func (Heuristic404) Soft404(payload []byte) (float64, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	doc.Find("script, style, noscript, template").Remove()

	title := strings.ToLower(doc.Find("title").First().Text())
	headings := strings.ToLower(doc.Find("h1, h2").Text())
	body := strings.ToLower(doc.Find("body").Text())
	words := len(strings.Fields(body))

	z := soft404Bias
	if strings.Contains(title, "404") {
		z += soft404Title404
	}
	if containsAny(title, errorPhrases[1:]) {
		z += soft404TitleText
	}
	if containsAny(headings, errorPhrases) {
		z += soft404Heading
	}
	if containsAny(body, errorPhrases[1:]) {
		z += soft404Body
	}
	switch {
	case words < soft404ShortWords:
		z += soft404ShortBody
	case words > soft404LongWords:
		z += soft404LongBody
	}
	return 1 / (1 + math.Exp(-z)), nil
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
