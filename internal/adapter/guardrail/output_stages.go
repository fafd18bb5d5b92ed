package guardrail

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// Grounding flags answer content not backed by the retrieved chunks. It
// measures the share of the answer's content words that appear in any
// retrieved chunk; below the threshold the answer is rejected as
// hallucinated.
type Grounding struct {
	Threshold float64
}

func (Grounding) Name() string { return "grounding" }

func (g Grounding) Check(_ context.Context, in port.CheckInput) (domain.Verdict, error) {
	words := contentWords(in.Text)
	if len(words) == 0 {
		return pass(), nil
	}
	if len(in.Context) == 0 {
		return reject("answer has no supporting retrieved content"), nil
	}

	vocabulary := make(map[string]struct{})
	for _, chunk := range in.Context {
		for _, w := range contentWords(chunk) {
			vocabulary[w] = struct{}{}
		}
	}

	matched := 0
	for _, w := range words {
		if _, ok := vocabulary[w]; ok {
			matched++
		}
	}

	overlap := float64(matched) / float64(len(words))
	if overlap < g.Threshold {
		return reject(fmt.Sprintf("answer is not grounded in the retrieved content (overlap %.2f)", overlap)), nil
	}
	return pass(), nil
}

var stopwords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {}, "have": {}, "will": {},
	"your": {}, "about": {}, "which": {}, "there": {}, "their": {}, "would": {},
	"could": {}, "should": {}, "been": {}, "were": {}, "they": {}, "them": {},
	"then": {}, "than": {}, "when": {}, "what": {}, "also": {}, "into": {},
	"only": {}, "over": {}, "such": {}, "some": {}, "more": {}, "most": {},
	"very": {}, "just": {}, "like": {}, "each": {}, "other": {}, "these": {},
	"those": {}, "because": {}, "where": {}, "while": {}, "does": {}, "here": {},
	"based": {}, "provided": {}, "according": {}, "information": {}, "document": {},
	"context": {}, "answer": {}, "question": {},
}

// contentWords lowercases the text and keeps words of four or more
// letters that are not stopwords. Template filler words are excluded so
// boilerplate phrasing does not count as grounding.
func contentWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 4 {
			continue
		}
		if _, ok := stopwords[f]; ok {
			continue
		}
		words = append(words, f)
	}
	return words
}

var (
	htmlTags   = regexp.MustCompile(`<[^>]+>`)
	urlPattern = regexp.MustCompile(`https?://\S+`)
	multiSpace = regexp.MustCompile(`[ \t]{2,}`)
)

// OutputSafety rejects disallowed answer content and sanitizes the
// rest: HTML tags are stripped, URLs redacted, repeated character runs
// and space runs collapsed. A changed answer yields a Modify verdict.
type OutputSafety struct{}

func (OutputSafety) Name() string { return "safety" }

func (OutputSafety) Check(_ context.Context, in port.CheckInput) (domain.Verdict, error) {
	if disallowedPattern.MatchString(in.Text) {
		return reject("answer contains disallowed content"), nil
	}

	sanitized := htmlTags.ReplaceAllString(in.Text, "")
	sanitized = urlPattern.ReplaceAllString(sanitized, "[URL removed]")
	sanitized = collapseRuns(sanitized, 10)
	sanitized = multiSpace.ReplaceAllString(sanitized, " ")
	sanitized = strings.TrimSpace(sanitized)

	if sanitized != in.Text {
		return domain.Verdict{Status: domain.VerdictModify, NewValue: sanitized, Reason: "answer sanitized"}, nil
	}
	return pass(), nil
}

// collapseRuns shortens any run of one repeated rune longer than max to
// three repetitions.
func collapseRuns(s string, max int) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run > max {
			if run == max+1 {
				// Trim the completed run down to three.
				out := b.String()
				trimmed := strings.TrimRight(out, string(prev))
				b.Reset()
				b.WriteString(trimmed)
				b.WriteString(strings.Repeat(string(prev), 3))
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
