package textutil

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinSentenceLen is the shortest span kept by Sentences; anything at or
// below it is treated as a fragment.
const MinSentenceLen = 10

var (
	stripPolicyOnce sync.Once
	stripPolicy     *bluemonday.Policy

	urlRe      = regexp.MustCompile(`https?://\S+|www\.\S+`)
	symbolRe   = regexp.MustCompile(`[^\p{L}\p{N}\s.,!?;:()\-]`)
	dateLongRe = regexp.MustCompile(`\d{1,2}\s+de\s+\p{L}+\s+de\s+\d{4}`)
	dateMidRe  = regexp.MustCompile(`\d{1,2}\s+de\s+\p{L}+,?\s+\d{4}`)
	dateAbbrRe = regexp.MustCompile(`[A-Z][a-z]{2}\s+\d{1,2},\s+\d{4}`)
	ellipsisRe = regexp.MustCompile(`\.{2,}`)
	ctrlRe     = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)
	spaceRe    = regexp.MustCompile(`\s+`)

	asciiFold = transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)
)

func htmlStripPolicy() *bluemonday.Policy {
	stripPolicyOnce.Do(func() {
		stripPolicy = bluemonday.StrictPolicy()
	})
	return stripPolicy
}

// Normalize lower-cases s and strips diacritics, leaving plain ASCII. The
// result is a stable key for caching and duplicate detection. Idempotent:
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ToLower(s)
	folded, _, err := transform.String(asciiFold, s)
	if err != nil {
		return s
	}
	return folded
}

// Clean sanitises raw provider output: HTML tags, URLs, date patterns
// ("12 de março de 2024", "Oct 28, 2020"), emoji, ellipsis runs and control
// characters are removed and whitespace is collapsed. Best effort, never
// fails; empty input yields empty output.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = htmlStripPolicy().Sanitize(s)
	s = urlRe.ReplaceAllString(s, "")
	s = symbolRe.ReplaceAllString(s, "")
	s = dateLongRe.ReplaceAllString(s, "")
	s = dateMidRe.ReplaceAllString(s, "")
	s = dateAbbrRe.ReplaceAllString(s, "")
	s = ellipsisRe.ReplaceAllString(s, ".")
	s = ctrlRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Sentences cleans text and splits it into sentences. A boundary is a
// terminal punctuation mark followed by whitespace and an upper-case letter.
// Fragments of MinSentenceLen characters or fewer are dropped.
func Sentences(text string) []string {
	text = Clean(text)
	if text == "" {
		return nil
	}

	var out []string
	rs := []rune(text)
	start := 0
	for i := 0; i < len(rs); i++ {
		if !isTerminal(rs[i]) {
			continue
		}
		// consume any run of terminal punctuation
		j := i + 1
		for j < len(rs) && isTerminal(rs[j]) {
			j++
		}
		k := j
		for k < len(rs) && unicode.IsSpace(rs[k]) {
			k++
		}
		if k > j && k < len(rs) && unicode.IsUpper(rs[k]) {
			if s := strings.TrimSpace(string(rs[start:j])); len(s) > MinSentenceLen {
				out = append(out, s)
			}
			start = k
			i = k - 1
		} else {
			i = j - 1
		}
	}
	if s := strings.TrimSpace(string(rs[start:])); len(s) > MinSentenceLen {
		out = append(out, s)
	}
	return out
}

// Join concatenates sentences with single spaces and guarantees the result
// ends in terminal punctuation.
func Join(sentences []string) string {
	if len(sentences) == 0 {
		return ""
	}
	text := strings.Join(sentences, " ")
	if text == "" {
		return ""
	}
	last := []rune(text)[len([]rune(text))-1]
	if !isTerminal(last) {
		text += "."
	}
	return text
}

// Truncate limits text to maxChars, cutting on sentence boundaries where
// possible.
func Truncate(text string, maxChars int) string {
	if text == "" || len(text) <= maxChars {
		return text
	}
	var kept []string
	size := 0
	for _, s := range Sentences(text) {
		if size+len(s)+1 > maxChars {
			break
		}
		kept = append(kept, s)
		size += len(s) + 1
	}
	return Join(kept)
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
