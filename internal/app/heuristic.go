package app

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const minReviewRunes = 10

var (
	quotedRes = []*regexp.Regexp{
		regexp.MustCompile(`"([^"\n]{2,1000})"`),
		regexp.MustCompile(`“([^”\n]{2,1000})”`),
		regexp.MustCompile(`«([^»\n]{2,1000})»`),
	}
	labeledRe = regexp.MustCompile(`(?im)^[ \t>*\-]*(?:avis|review|commentaire|comment|message)[ \t]*:[ \t]*(.+)$`)
	authorRe  = regexp.MustCompile(`(?im)^[ \t>*\-]*(?:auteur|author|reviewer|par|by|client|customer)[ \t]*:[ \t]*(.{1,80})$`)

	// "5 étoiles", "4/5 stars", "5-star", "3 ★"; the digit must stand alone,
	// so "4.5 stars" and "15 stars" give nothing
	ratingStarRe = regexp.MustCompile(`(?i)(?:^|[^\d.,])([1-5])(?:[.,]0)?[ \t]*(?:(?:/|out of|sur)[ \t]*(\d+))?[ \t\-]*(?:étoiles?|etoiles?|stars?|★|⭐)`)
	// "note: 4/5", "rating = 5", "rated 4 out of 5"; "10/10" and "45/100"
	// fail on the digit that follows
	ratingKeyRe = regexp.MustCompile(`(?i)\b(?:note|rating|score|rated)[ \t]*[:=]?[ \t]*([1-5])(?:[.,]0)?(?:[ \t]*(?:/|out of|sur)[ \t]*(\d+))?[.,]?(?:[^\d.,]|$)`)
	glyphRunRe  = regexp.MustCompile(`[★⭐]{1,10}`)
)

// Extraction is the structured review pulled out of a message.
type Extraction struct {
	Text       string
	Rating     *int
	Author     *string
	ReviewDate *string
	Stage      string // heuristic|llm
}

// ExtractHeuristic parses body without any external call. ok is false when no
// candidate of at least minReviewRunes survives cleaning.
func ExtractHeuristic(body string) (Extraction, bool) {
	text := bestQuoted(body)
	if text == "" {
		text = bestLabeled(body)
	}
	if utf8.RuneCountInString(text) < minReviewRunes {
		return Extraction{}, false
	}
	ex := Extraction{Text: text, Rating: findRating(body), Stage: "heuristic"}
	if m := authorRe.FindStringSubmatch(body); m != nil {
		if a := cleanCandidate(m[1]); a != "" {
			ex.Author = &a
		}
	}
	return ex, true
}

func bestQuoted(body string) string {
	var best string
	for _, re := range quotedRes {
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			if c := cleanCandidate(m[1]); utf8.RuneCountInString(c) > utf8.RuneCountInString(best) {
				best = c
			}
		}
	}
	if utf8.RuneCountInString(best) < minReviewRunes {
		return ""
	}
	return best
}

func bestLabeled(body string) string {
	for _, m := range labeledRe.FindAllStringSubmatch(body, -1) {
		if c := cleanCandidate(m[1]); utf8.RuneCountInString(c) >= minReviewRunes {
			return c
		}
	}
	return ""
}

func findRating(body string) *int {
	body = strings.ReplaceAll(body, "\uFE0F", "") // emoji presentation selector
	for _, re := range []*regexp.Regexp{ratingStarRe, ratingKeyRe} {
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			if m[2] != "" && m[2] != "5" {
				continue // "4/10" is not a five-point rating
			}
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 5 {
				return &n
			}
		}
	}
	if run := glyphRunRe.FindString(body); run != "" {
		n := utf8.RuneCountInString(strings.TrimSpace(run))
		if n >= 1 && n <= 5 {
			return &n
		}
	}
	return nil
}
