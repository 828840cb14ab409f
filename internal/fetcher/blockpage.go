package fetcher

import (
	"bytes"
	"strings"
)

// Phrases that mark an HTTP-successful response as an anti-bot interstitial
// rather than article content.
var httpBlockPhrases = []string{
	"cloudflare",
	"attention required",
	"verify you are human",
	"are you a robot",
	"just a moment",
	"checking your browser",
}

// The rendering path sees a wider variety of challenge pages, so it checks a
// superset of the HTTP phrases.
var browserBlockPhrases = append([]string{
	"access denied",
	"request blocked",
	"incapsula",
	"to continue, please verify",
	"bot detection",
	"captcha",
}, httpBlockPhrases...)

// BlockDetector recognizes anti-bot block pages by phrase matching.
type BlockDetector struct {
	phrases [][]byte
}

// NewBlockDetector builds a detector for the HTTP fetch path.
func NewBlockDetector() *BlockDetector {
	return newBlockDetector(httpBlockPhrases)
}

// NewBrowserBlockDetector builds a detector with the browser-path superset.
func NewBrowserBlockDetector() *BlockDetector {
	return newBlockDetector(browserBlockPhrases)
}

func newBlockDetector(phrases []string) *BlockDetector {
	lowered := make([][]byte, 0, len(phrases))
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		lowered = append(lowered, bytes.ToLower([]byte(p)))
	}
	return &BlockDetector{phrases: lowered}
}

// Hit reports whether html contains any block-page phrase, case-insensitive.
func (d *BlockDetector) Hit(html string) bool {
	if html == "" {
		return false
	}
	lower := bytes.ToLower([]byte(html))
	for _, p := range d.phrases {
		if bytes.Contains(lower, p) {
			return true
		}
	}
	return false
}
