package guardrail

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"docrag/internal/domain"
	"docrag/internal/port"
)

var (
	injectionPattern = regexp.MustCompile(`(?i)(ignore\s+(all\s+|any\s+)?(previous|prior|above)\s+instructions|disregard\s+(the|your)\s+(system|previous|prior)|reveal\s+(the|your)\s+system\s+prompt|you\s+are\s+now\s+(a|an|in)\b|pretend\s+(you|to)\s+have\s+no\s+(rules|restrictions|guidelines))`)

	disallowedPattern = regexp.MustCompile(`(?i)\b(how\s+to\s+(build|make)\s+(a\s+)?(bomb|explosive|weapon)|synthesi[sz]e\s+(meth|ricin|nerve\s+agent)|hurt\s+(yourself|myself|himself|herself))\b`)
)

// longestRun returns the length of the longest run of one repeated rune.
func longestRun(s string) int {
	var prev rune
	run, max := 0, 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run > max {
			max = run
		}
	}
	return max
}

// InputSafety screens the query for disallowed content, prompt
// injection markers and degenerate spam input.
type InputSafety struct{}

func (InputSafety) Name() string { return "safety" }

func (InputSafety) Check(_ context.Context, in port.CheckInput) (domain.Verdict, error) {
	switch {
	case disallowedPattern.MatchString(in.Text):
		return reject("inappropriate content detected, please rephrase the question"), nil
	case injectionPattern.MatchString(in.Text):
		return reject("invalid request format, please ask a straightforward question"), nil
	case longestRun(in.Text) > 14:
		return reject("query looks like spam or nonsensical text, please ask a clear question"), nil
	}
	return pass(), nil
}

// Length enforces [1, Max] characters and trims surrounding whitespace.
type Length struct {
	Max int
}

func (Length) Name() string { return "length" }

func (l Length) Check(_ context.Context, in port.CheckInput) (domain.Verdict, error) {
	trimmed := strings.TrimSpace(in.Text)
	if trimmed == "" {
		return reject("query is empty"), nil
	}
	if l.Max > 0 && utf8.RuneCountInString(in.Text) > l.Max {
		return reject(fmt.Sprintf("query exceeds %d characters, please summarize", l.Max)), nil
	}
	if trimmed != in.Text {
		return domain.Verdict{Status: domain.VerdictModify, NewValue: trimmed}, nil
	}
	return pass(), nil
}

var languageScripts = map[string]*unicode.RangeTable{
	"en": unicode.Latin,
	"es": unicode.Latin,
	"fr": unicode.Latin,
	"de": unicode.Latin,
	"it": unicode.Latin,
	"pt": unicode.Latin,
	"ru": unicode.Cyrillic,
	"uk": unicode.Cyrillic,
	"ar": unicode.Arabic,
	"zh": unicode.Han,
	"ja": unicode.Hiragana,
	"ko": unicode.Hangul,
}

// Language rejects queries whose dominant script matches none of the
// allowed languages. With no languages configured it always passes.
type Language struct {
	allowed []*unicode.RangeTable
}

func NewLanguage(codes []string) (Language, error) {
	var allowed []*unicode.RangeTable
	for _, code := range codes {
		table, ok := languageScripts[strings.ToLower(code)]
		if !ok {
			return Language{}, &domain.GuardrailConfigError{Stage: "language", Reason: "unsupported language code: " + code}
		}
		allowed = append(allowed, table)
	}
	return Language{allowed: allowed}, nil
}

func (Language) Name() string { return "language" }

func (l Language) Check(_ context.Context, in port.CheckInput) (domain.Verdict, error) {
	if len(l.allowed) == 0 {
		return pass(), nil
	}

	var letters, matched int
	for _, r := range in.Text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		for _, table := range l.allowed {
			if unicode.Is(table, r) {
				matched++
				break
			}
		}
	}
	if letters == 0 {
		return pass(), nil
	}
	if float64(matched)/float64(letters) < 0.5 {
		return reject("query language is not supported"), nil
	}
	return pass(), nil
}

func pass() domain.Verdict {
	return domain.Verdict{Status: domain.VerdictPass}
}

func reject(reason string) domain.Verdict {
	return domain.Verdict{Status: domain.VerdictReject, Reason: reason}
}
