package app

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"review_inbox/internal/adapters/observability"
	"review_inbox/internal/domain"
)

const DefaultExcerptMax = 4000

const extractionPrompt = `You extract customer reviews from notification e-mails sent by review platforms.
Reply with one JSON object and nothing else:
{"reviewText": string, "rating": integer 1-5 or null, "reviewerName": string or null, "reviewDate": string or null}
reviewText is the customer's own words, without platform boilerplate. If the e-mail holds no review, reply {"reviewText": ""}.`

// ContentExtractor runs the cheap heuristic first and only calls the language
// model when that fails. A nil model disables the fallback.
type ContentExtractor struct {
	model      domain.LanguageModel
	excerptMax int
	timeout    time.Duration
}

func NewContentExtractor(m domain.LanguageModel, excerptMax int, timeout time.Duration) *ContentExtractor {
	if excerptMax <= 0 {
		excerptMax = DefaultExcerptMax
	}
	return &ContentExtractor{model: m, excerptMax: excerptMax, timeout: timeout}
}

// Extract returns false when neither stage produced a review. It never fails
// harder than that: model errors, timeouts and garbage output are all "no".
func (x *ContentExtractor) Extract(ctx context.Context, subject, body string) (Extraction, bool) {
	if ex, ok := ExtractHeuristic(body); ok {
		observability.ObserveExtraction("heuristic")
		return ex, true
	}
	if x.model == nil {
		observability.ObserveExtraction("none")
		return Extraction{}, false
	}

	lctx := ctx
	if x.timeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}
	user := "Subject: " + strings.TrimSpace(subject) + "\n\n" + truncateRunes(body, x.excerptMax)
	out, err := x.model.Complete(lctx, extractionPrompt, user)
	if err != nil {
		log.Warn().Err(err).Msg("language model extraction failed")
		observability.ObserveExtraction("none")
		return Extraction{}, false
	}
	ex, ok := ParseModelOutput(out)
	if !ok {
		log.Warn().Int("len", len(out)).Msg("language model output unusable")
		observability.ObserveExtraction("none")
		return Extraction{}, false
	}
	observability.ObserveExtraction("llm")
	return ex, true
}

type modelReview struct {
	ReviewText   string          `json:"reviewText"`
	Rating       json.RawMessage `json:"rating"`
	ReviewerName *string         `json:"reviewerName"`
	ReviewDate   *string         `json:"reviewDate"`
}

// ParseModelOutput takes the first JSON object literal in out, tolerating
// prose and code fences around it, and missing keys inside it.
func ParseModelOutput(out string) (Extraction, bool) {
	obj, ok := firstJSONObject(out)
	if !ok {
		return Extraction{}, false
	}
	var mr modelReview
	if err := json.Unmarshal([]byte(obj), &mr); err != nil {
		return Extraction{}, false
	}
	text := cleanCandidate(mr.ReviewText)
	if text == "" {
		return Extraction{}, false
	}
	ex := Extraction{Text: text, Rating: parseModelRating(mr.Rating), Stage: "llm"}
	if mr.ReviewerName != nil {
		if n := strings.TrimSpace(*mr.ReviewerName); n != "" {
			ex.Author = &n
		}
	}
	if mr.ReviewDate != nil {
		if d := strings.TrimSpace(*mr.ReviewDate); d != "" {
			ex.ReviewDate = &d
		}
	}
	return ex, true
}

// parseModelRating accepts 5, 4.0 and "5"; anything outside 1..5 is dropped.
func parseModelRating(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return nil
	}
	n := int(f)
	if float64(n) != f || n < 1 || n > 5 {
		return nil
	}
	return &n
}

// firstJSONObject returns the first balanced {...} that parses as JSON.
func firstJSONObject(s string) (string, bool) {
	for start := 0; start < len(s); start++ {
		i := strings.IndexByte(s[start:], '{')
		if i < 0 {
			return "", false
		}
		start += i
		end, ok := matchBrace(s, start)
		if !ok {
			continue
		}
		if cand := s[start : end+1]; json.Valid([]byte(cand)) {
			return cand, true
		}
	}
	return "", false
}

// matchBrace finds the brace closing the one at s[start], skipping braces
// inside JSON strings.
func matchBrace(s string, start int) (int, bool) {
	depth, inStr, esc := 0, false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
