// Package analysis classifies questions and extracts the structure the
// selection policy and fusion engine consume: a coarse category, a
// specialized type, entities, temporal context and decomposed sub-questions.
// Detection is keyword and pattern based; no language model is involved.
package analysis

import (
	"log"
	"regexp"
	"strings"
	"unicode"

	"github.com/oraculo-ai/oraculo/internal/textutil"
)

// Category is the coarse question intent driving the fusion strategy.
// Values follow the interrogative that triggered them.
type Category string

const (
	CategoryWhich   Category = "qual"
	CategoryWho     Category = "quem"
	CategoryHowMany Category = "quanto"
	CategoryWhere   Category = "onde"
	CategoryWhen    Category = "quando"
	CategoryHow     Category = "como"
	CategoryWhy     Category = "porque"
	CategoryGeneral Category = "geral"
)

// Factual reports whether answers should favour precision over breadth:
// the fusion engine uses only the single top-ranked source.
func (c Category) Factual() bool {
	switch c {
	case CategoryWhich, CategoryWho, CategoryHowMany, CategoryWhere, CategoryWhen:
		return true
	}
	return false
}

// Explanatory reports whether the question asks how or why, where fusion
// pools sentences from several sources.
func (c Category) Explanatory() bool {
	return c == CategoryHow || c == CategoryWhy
}

// Specialized question types used by the source selection policy.
const (
	SpecCalculation = "calculo"
	SpecConversion  = "conversao"
	SpecComparison  = "comparacao"
	SpecDefinition  = "definicao"
	SpecList        = "lista"
	SpecCause       = "causa"
	SpecProcess     = "processo"
	SpecHistorical  = "historico"
	SpecLocation    = "localizacao"
	SpecScientific  = "cientifico"
	SpecGeneral     = "geral"
)

// Temporal context values.
const (
	TemporalCurrent    = "atual"
	TemporalHistorical = "historico"
	TemporalNeutral    = "neutro"
)

// Analysis is the structure handed to the selection policy and the engine.
// Consumers treat it as a read-only bag; absent fields degrade gracefully.
type Analysis struct {
	Question     string
	Category     Category
	Specialized  string
	Temporal     string
	Entities     map[string][]string
	SubQuestions []string
}

var specializedPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{SpecCalculation, regexp.MustCompile(`(?i)\d+\s*[\+\-\*/\^]\s*\d+|quanto\s+(é|e)|calcule|some|multiplique|calculate`)},
	{SpecConversion, regexp.MustCompile(`(?i)convert|converta|transforme|de\s+\w+\s+para\s+\w+`)},
	{SpecComparison, regexp.MustCompile(`(?i)diferença|diferenca|comparar|compare|versus|vs\.|melhor|maior|menor`)},
	{SpecDefinition, regexp.MustCompile(`(?i)o que (é|e)|what is|definição de|definicao de|defina|significado de|conceito de|meaning of`)},
	{SpecList, regexp.MustCompile(`(?i)liste|listar|quais (são|sao)|enumere|principais|list of`)},
	{SpecCause, regexp.MustCompile(`(?i)por que|porque|motivo|razão|razao|causa|why`)},
	{SpecProcess, regexp.MustCompile(`(?i)como funciona|como (é|e) feito|how does|processo|etapas|passo a passo|step by step`)},
	{SpecHistorical, regexp.MustCompile(`(?i)quando|when|história|historia|origem|descoberto|inventado|criado|invented`)},
	{SpecLocation, regexp.MustCompile(`(?i)onde|where|localização|localizacao|fica|localizado|encontrar`)},
	{SpecScientific, regexp.MustCompile(`(?i)teoria|theory|quântic|quantic|molécul|molecul|algoritmo|algorithm|célula|celula`)},
}

var (
	currentWords    = []string{"atual", "hoje", "agora", "atualmente", "recente", "ultimo", "ultima", "today", "current", "latest"}
	historicalWords = []string{"historia", "antigamente", "passado", "origem", "quando foi", "descoberto", "history", "origin"}

	dateEntityRe = regexp.MustCompile(`\b(1[0-9]{3}|20[0-9]{2})\b|\d{1,2}\s+de\s+\p{L}+`)
)

// Analyzer produces Analysis values. Safe for concurrent use.
type Analyzer struct {
	logger *log.Logger
}

func NewAnalyzer(logger *log.Logger) *Analyzer {
	if logger == nil {
		logger = log.New(log.Writer(), "[ANALYSIS] ", log.LstdFlags)
	}
	return &Analyzer{logger: logger}
}

// Analyze runs the full pipeline over one question.
func (a *Analyzer) Analyze(question string) Analysis {
	an := Analysis{
		Question:     question,
		Category:     DetectCategory(question),
		Specialized:  detectSpecialized(question),
		Temporal:     detectTemporal(question),
		Entities:     extractEntities(question),
		SubQuestions: Decompose(question),
	}
	a.logger.Printf("question %q -> category=%s specialized=%s temporal=%s subquestions=%d",
		question, an.Category, an.Specialized, an.Temporal, len(an.SubQuestions))
	return an
}

// DetectCategory maps the leading interrogative (Portuguese or English) to a
// category, defaulting to CategoryGeneral.
func DetectCategory(question string) Category {
	q := " " + textutil.Normalize(question) + " "

	// multi-word forms first so "how many" does not read as "how"
	switch {
	case containsAny(q, " how many ", " how much "):
		return CategoryHowMany
	case containsAny(q, " por que ", " porque ", " why "):
		return CategoryWhy
	}
	for _, probe := range []struct {
		words []string
		cat   Category
	}{
		{[]string{" qual ", " quais ", " which ", " what "}, CategoryWhich},
		{[]string{" quem ", " who "}, CategoryWho},
		{[]string{" onde ", " where "}, CategoryWhere},
		{[]string{" quando ", " when "}, CategoryWhen},
		{[]string{" como ", " how "}, CategoryHow},
		{[]string{" quanto ", " quantos ", " quantas "}, CategoryHowMany},
	} {
		if containsAny(q, probe.words...) {
			return probe.cat
		}
	}
	return CategoryGeneral
}

func detectSpecialized(question string) string {
	for _, p := range specializedPatterns {
		if p.re.MatchString(question) {
			return p.name
		}
	}
	return SpecGeneral
}

func detectTemporal(question string) string {
	q := textutil.Normalize(question)
	current := containsAny(q, currentWords...)
	historical := containsAny(q, historicalWords...)
	switch {
	case current && !historical:
		return TemporalCurrent
	case historical && !current:
		return TemporalHistorical
	}
	return TemporalNeutral
}

// extractEntities pulls capitalized token runs (proper-noun guesses) and
// date mentions. Runs starting a sentence are kept too; the policy only
// needs candidate terms, not a parse.
func extractEntities(question string) map[string][]string {
	entities := map[string][]string{}

	words := strings.Fields(question)
	var run []string
	flush := func() {
		if len(run) > 0 {
			entities["MISC"] = append(entities["MISC"], strings.Join(run, " "))
			run = nil
		}
	}
	for i, w := range words {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if i > 0 && len([]rune(trimmed)) > 2 && startsUpper(trimmed) {
			run = append(run, trimmed)
			continue
		}
		flush()
	}
	flush()

	for _, m := range dateEntityRe.FindAllString(question, -1) {
		entities["DATE"] = append(entities["DATE"], m)
	}
	return entities
}

// Decompose splits a compound question on its first coordinating
// conjunction. A trailing stub like "quando?" is completed with the
// head nouns of the first part.
func Decompose(question string) []string {
	lower := strings.ToLower(question)
	sep := ""
	for _, conj := range []string{" e ", " and "} {
		if strings.Contains(lower, conj) {
			sep = conj
			break
		}
	}
	if sep == "" {
		return []string{question}
	}

	idx := strings.Index(lower, sep)
	first := strings.TrimSpace(question[:idx])
	second := strings.TrimSpace(question[idx+len(sep):])
	second = strings.TrimRight(second, "?")
	if first == "" || second == "" {
		return []string{question}
	}

	if len(strings.Fields(second)) <= 2 {
		// interrogative stub; borrow the subject from the first part
		if subject := trailingSubject(first); subject != "" {
			second = second + " " + subject
		}
	}
	return []string{
		strings.TrimRight(first, "?") + "?",
		second + "?",
	}
}

func trailingSubject(part string) string {
	words := strings.Fields(strings.TrimRight(part, "?"))
	var nouns []string
	for _, w := range words {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if len([]rune(trimmed)) > 2 && !isStopword(trimmed) {
			nouns = append(nouns, trimmed)
		}
	}
	if len(nouns) == 0 {
		return ""
	}
	if len(nouns) > 2 {
		nouns = nouns[len(nouns)-2:]
	}
	return strings.Join(nouns, " ")
}

var stopwords = map[string]struct{}{
	"que": {}, "quem": {}, "qual": {}, "quais": {}, "onde": {}, "quando": {},
	"como": {}, "porque": {}, "por": {}, "para": {}, "com": {}, "uma": {},
	"the": {}, "who": {}, "what": {}, "when": {}, "where": {}, "how": {},
	"why": {}, "was": {}, "were": {}, "did": {}, "does": {}, "and": {},
}

func isStopword(w string) bool {
	_, ok := stopwords[textutil.Normalize(w)]
	return ok
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}
