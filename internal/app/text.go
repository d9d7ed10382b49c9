package app

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var (
	urlRe   = regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+`)
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	spaceRe = regexp.MustCompile(`[ \t\f\v]+`)
	blankRe = regexp.MustCompile(`\n{3,}`)
)

// bodyText picks the plain-text part, falling back to a text rendering of the
// HTML part.
func bodyText(text, html string) string {
	if strings.TrimSpace(text) != "" {
		return normalizeNewlines(text)
	}
	if strings.TrimSpace(html) == "" {
		return ""
	}
	return htmlToText(html)
}

func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return stripTags(html)
	}
	doc.Find("script,style,head,noscript").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p,div,tr,li,h1,h2,h3,h4,h5,h6,blockquote,table").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	return normalizeNewlines(doc.Text())
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string { return normalizeNewlines(tagRe.ReplaceAllString(s, " ")) }

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRe.ReplaceAllString(l, " "))
	}
	return strings.TrimSpace(blankRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

// cleanCandidate strips URLs and e-mail addresses, collapses whitespace and
// surrounding quote marks.
func cleanCandidate(s string) string {
	s = urlRe.ReplaceAllString(s, " ")
	s = emailRe.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(strings.Trim(s, "\"'“”«»‘’ "))
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
