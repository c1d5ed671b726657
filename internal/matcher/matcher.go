// Package matcher maps a module descriptor to its anchor line in a
// requirement document. Matching runs in strictly ordered rounds: isolated
// heading match of the module name, isolated match of other descriptor
// terms, bounded substring containment past the header region, and finally
// whole-document containment. A fuzzy similarity fallback is available for
// callers that want a best-effort anchor after a miss.
package matcher

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/quarrylabs/reqspan/internal/core/domain"
	"github.com/quarrylabs/reqspan/internal/docindex"
)

// NotFoundOffset is added to the document length to form the sentinel anchor
// for modules that could not be located.
const NotFoundOffset = 999

var enumeratorPrefix = regexp.MustCompile(`^[\d一二三四五六七八九十]+\s*[\.、]\s*`)

// Config holds the matching thresholds.
type Config struct {
	// MinTermLength is the shortest candidate term considered at all.
	MinTermLength int

	// MinPartialMatchLength is the shortest term allowed to match by
	// substring containment rather than full equality.
	MinPartialMatchLength int

	// FuzzyThreshold is the minimum similarity ratio accepted by FuzzyAnchor.
	FuzzyThreshold float64

	// TitleRemainderLength is the longest suffix a line may carry beyond a
	// module token and still count as that module's title line.
	TitleRemainderLength int

	// GenericKeywords are descriptor keywords too generic to anchor on.
	GenericKeywords []string
}

// DefaultConfig returns the matching thresholds used in production.
func DefaultConfig() Config {
	return Config{
		MinTermLength:         3,
		MinPartialMatchLength: 5,
		FuzzyThreshold:        0.45,
		TitleRemainderLength:  3,
		GenericKeywords:       []string{"功能", "模块", "系统", "页面", "按钮", "评分", "提交", "关闭"},
	}
}

// Tokens carries the derived identifiers for one module within a batch.
type Tokens struct {
	// Canonical is the alias-resolved module name.
	Canonical string

	// Normalized is the comparison form of the canonical name.
	Normalized string

	// AnchorTokens are the normalized identifiers for this module itself.
	AnchorTokens []string

	// OtherTokens are the normalized identifiers of every other module in
	// the batch, used as stop markers during boundary search.
	OtherTokens []string
}

// Matcher locates module anchors. The alias table and config are immutable
// after construction, so a Matcher is safe for concurrent use.
type Matcher struct {
	cfg       Config
	normalize func(string) string
	aliases   map[string][]string
	generic   map[string]bool
}

// New creates a matcher. The alias table maps a canonical module name to its
// alternate spellings and may be nil; matching then relies solely on the
// descriptor's own name, keywords and phrases.
func New(normalize func(string) string, aliases map[string][]string, cfg Config) *Matcher {
	generic := make(map[string]bool, len(cfg.GenericKeywords))
	for _, kw := range cfg.GenericKeywords {
		generic[kw] = true
	}
	return &Matcher{
		cfg:       cfg,
		normalize: normalize,
		aliases:   aliases,
		generic:   generic,
	}
}

// IsStrongKeyword reports whether a keyword is specific enough to anchor on:
// at least MinTermLength runes and not a generic term.
func (m *Matcher) IsStrongKeyword(keyword string) bool {
	stripped := strings.TrimSpace(keyword)
	if utf8.RuneCountInString(stripped) < m.cfg.MinTermLength {
		return false
	}
	return !m.generic[stripped]
}

// MapToCanonical resolves a module name against the alias table. Resolution
// priority: full equality, prefix match leaving at most two trailing runes,
// then bounded containment for canonical names of five or more runes.
func (m *Matcher) MapToCanonical(name string) (string, bool) {
	normalized := m.normalize(name)
	if normalized == "" || len(m.aliases) == 0 {
		return "", false
	}

	ordered := m.orderedCanonicals()

	for _, canonical := range ordered {
		if m.normalize(canonical) == normalized {
			return canonical, true
		}
		for _, alias := range m.aliases[canonical] {
			if m.normalize(alias) == normalized {
				return canonical, true
			}
		}
	}

	for _, canonical := range ordered {
		if c := m.normalize(canonical); c != "" && prefixRemainder(normalized, c) <= 2 {
			return canonical, true
		}
		for _, alias := range m.aliases[canonical] {
			if a := m.normalize(alias); a != "" && prefixRemainder(normalized, a) <= 2 {
				return canonical, true
			}
		}
	}

	for _, canonical := range ordered {
		c := m.normalize(canonical)
		if utf8.RuneCountInString(c) < 5 {
			continue
		}
		if i := strings.Index(normalized, c); i >= 0 {
			before := utf8.RuneCountInString(normalized[:i])
			after := utf8.RuneCountInString(normalized[i+len(c):])
			if before <= 1 && after <= 1 {
				return canonical, true
			}
		}
	}

	return "", false
}

// Aliases returns the alias spellings registered for a canonical name, and
// whether the name is canonical at all.
func (m *Matcher) Aliases(canonical string) ([]string, bool) {
	aliases, ok := m.aliases[canonical]
	return aliases, ok
}

func (m *Matcher) orderedCanonicals() []string {
	names := make([]string, 0, len(m.aliases))
	for name := range m.aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// prefixRemainder returns the rune count left after stripping the prefix, or
// a large value when s does not start with prefix.
func prefixRemainder(s, prefix string) int {
	if !strings.HasPrefix(s, prefix) {
		return int(^uint(0) >> 1)
	}
	return utf8.RuneCountInString(s[len(prefix):])
}

// Tokens derives the match tokens for one descriptor within a batch. Other
// modules contribute their normalized names, strong keywords and
// heading-stripped exact phrases as stop markers.
func (m *Matcher) Tokens(desc domain.ModuleDescriptor, all []domain.ModuleDescriptor) Tokens {
	canonical := desc.Name
	if mapped, ok := m.MapToCanonical(desc.Name); ok {
		canonical = mapped
	}
	normalized := m.normalize(canonical)

	anchorTokens := []string{normalized}
	for _, alias := range m.aliases[canonical] {
		if a := m.normalize(alias); a != "" && !contains(anchorTokens, a) {
			anchorTokens = append(anchorTokens, a)
		}
	}

	var otherTokens []string
	addOther := func(token string) {
		if token != "" && token != normalized && !contains(otherTokens, token) {
			otherTokens = append(otherTokens, token)
		}
	}

	for _, other := range all {
		if other.Name == desc.Name {
			continue
		}
		otherCanonical := other.Name
		if mapped, ok := m.MapToCanonical(other.Name); ok {
			otherCanonical = mapped
		}
		addOther(m.normalize(otherCanonical))
		for _, alias := range m.aliases[otherCanonical] {
			addOther(m.normalize(alias))
		}
		for _, kw := range other.Keywords {
			if m.IsStrongKeyword(kw) {
				addOther(m.normalize(kw))
			}
		}
		for _, phrase := range other.ExactPhrases {
			if text, ok := docindex.HeadingText(phrase); ok {
				addOther(m.normalize(text))
			} else {
				addOther(m.normalize(phrase))
			}
		}
	}

	return Tokens{
		Canonical:    canonical,
		Normalized:   normalized,
		AnchorTokens: anchorTokens,
		OtherTokens:  otherTokens,
	}
}

// IsModuleTitleLine reports whether a normalized line is a title line for any
// of the given module tokens: equality, or a token prefix whose remainder is
// within the configured tolerance.
func (m *Matcher) IsModuleTitleLine(normalizedLine string, tokens []string) bool {
	if normalizedLine == "" {
		return false
	}
	for _, token := range tokens {
		if token == "" {
			continue
		}
		if normalizedLine == token {
			return true
		}
		if strings.HasPrefix(normalizedLine, token) {
			remaining := utf8.RuneCountInString(normalizedLine[len(token):])
			if remaining <= m.cfg.TitleRemainderLength {
				return true
			}
		}
	}
	return false
}

// FindAnchor locates the line where a module's description begins. When no
// round matches, the returned line is len(lines)+NotFoundOffset and found is
// false.
func (m *Matcher) FindAnchor(idx *docindex.Index, desc domain.ModuleDescriptor) (int, bool) {
	canonical := desc.Name
	if mapped, ok := m.MapToCanonical(desc.Name); ok {
		canonical = mapped
	}

	if line, ok := m.isolatedMatch(idx, m.normalize(canonical), 0); ok {
		return line, true
	}

	terms := m.candidateTerms(canonical, desc)
	for _, term := range terms {
		if line, ok := m.isolatedMatch(idx, m.normalize(term), idx.HeaderEnd); ok {
			return line, true
		}
	}

	if line, ok := m.containmentMatch(idx, canonical, terms, idx.HeaderEnd, m.cfg.MinPartialMatchLength); ok {
		return line, true
	}
	if line, ok := m.containmentMatch(idx, canonical, terms, 0, 0); ok {
		return line, true
	}

	return len(idx.Lines) + NotFoundOffset, false
}

// candidateTerms orders the non-name match candidates longest first: alias
// spellings, then strong keywords, then exact phrases.
func (m *Matcher) candidateTerms(canonical string, desc domain.ModuleDescriptor) []string {
	var terms []string
	terms = append(terms, m.aliases[canonical]...)
	for _, kw := range desc.Keywords {
		if m.IsStrongKeyword(kw) {
			terms = append(terms, kw)
		}
	}
	terms = append(terms, desc.ExactPhrases...)

	filtered := terms[:0]
	for _, term := range terms {
		stripped := strings.TrimSpace(term)
		if utf8.RuneCountInString(stripped) < m.cfg.MinTermLength {
			continue
		}
		filtered = append(filtered, stripped)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return utf8.RuneCountInString(filtered[i]) > utf8.RuneCountInString(filtered[j])
	})
	return filtered
}

// isolatedMatch finds the earliest line at or after from where the term
// appears as an isolated heading: markdown heading text equality, full-line
// equality, or a line-start match with a blank neighbour.
func (m *Matcher) isolatedMatch(idx *docindex.Index, term string, from int) (int, bool) {
	if term == "" {
		return 0, false
	}
	for i := from; i < len(idx.Lines); i++ {
		stripped := strings.TrimSpace(idx.Lines[i])
		if text, ok := docindex.HeadingText(stripped); ok {
			if m.normalize(text) == term {
				return i, true
			}
		}

		normalizedLine := idx.NormalizedLines[i]
		if normalizedLine == term {
			return i, true
		}
		if strings.HasPrefix(normalizedLine, term) && m.hasBlankNeighbour(idx, i) {
			return i, true
		}
	}
	return 0, false
}

func (m *Matcher) hasBlankNeighbour(idx *docindex.Index, line int) bool {
	prevBlank := line == 0 || strings.TrimSpace(idx.Lines[line-1]) == ""
	nextBlank := line+1 >= len(idx.Lines) || strings.TrimSpace(idx.Lines[line+1]) == ""
	return prevBlank || nextBlank
}

// containmentMatch scans lines at or after from for candidate terms,
// preferring exact heading or full-line equality over substring containment.
// minPartial is the shortest term allowed to match by containment; the final
// whole-document round passes zero so even short names can still anchor.
func (m *Matcher) containmentMatch(idx *docindex.Index, canonical string, terms []string, from, minPartial int) (int, bool) {
	type hit struct {
		line  int
		exact bool
	}
	var hits []hit

	allTerms := append([]string{canonical}, terms...)
	for _, term := range allTerms {
		normalized := m.normalize(strings.TrimSpace(term))
		if normalized == "" {
			continue
		}
		for i := from; i < len(idx.Lines); i++ {
			stripped := strings.TrimSpace(idx.Lines[i])
			if text, ok := docindex.HeadingText(stripped); ok && m.normalize(text) == normalized {
				hits = append(hits, hit{line: i, exact: true})
				continue
			}
			normalizedLine := idx.NormalizedLines[i]
			if normalizedLine == normalized {
				hits = append(hits, hit{line: i, exact: true})
			} else if utf8.RuneCountInString(normalized) >= minPartial &&
				strings.Contains(normalizedLine, normalized) {
				hits = append(hits, hit{line: i, exact: false})
			}
		}
	}

	if len(hits) == 0 {
		return 0, false
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].line != hits[j].line {
			return hits[i].line < hits[j].line
		}
		return hits[i].exact && !hits[j].exact
	})
	return hits[0].line, true
}

// FuzzyAnchor computes an edit-distance similarity ratio between the module
// name and every normalized line, accepting the best-scoring line when its
// ratio clears the configured threshold. Only intended as a fallback after
// FindAnchor reports not found.
func (m *Matcher) FuzzyAnchor(idx *docindex.Index, name string) (int, bool) {
	target := m.normalize(name)
	if target == "" {
		return 0, false
	}

	bestLine := -1
	bestRatio := 0.0
	for i, line := range idx.NormalizedLines {
		if line == "" {
			continue
		}
		ratio := similarity(target, line)
		if ratio > bestRatio {
			bestRatio = ratio
			bestLine = i
		}
	}

	if bestLine >= 0 && bestRatio >= m.cfg.FuzzyThreshold {
		return bestLine, true
	}
	return 0, false
}

// similarity maps Levenshtein distance onto [0, 1].
func similarity(a, b string) float64 {
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	if la == 0 && lb == 0 {
		return 1
	}
	longest := max(la, lb)
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// CollectPhrase returns the first document line containing one of the anchor
// terms, with any leading enumerator stripped. Used to backfill descriptors
// that arrived without exact phrases.
func (m *Matcher) CollectPhrase(anchors []string, lines []string) string {
	for _, term := range anchors {
		stripped := strings.TrimSpace(term)
		if stripped == "" || utf8.RuneCountInString(stripped) < m.cfg.MinTermLength {
			continue
		}
		for _, line := range lines {
			if strings.Contains(line, stripped) {
				return cleanPhraseLine(line)
			}
		}
	}

	for _, anchor := range anchors {
		normalized := m.normalize(anchor)
		if normalized == "" {
			continue
		}
		for _, line := range lines {
			if strings.Contains(m.normalize(line), normalized) {
				return cleanPhraseLine(line)
			}
		}
	}
	return ""
}

func cleanPhraseLine(line string) string {
	cleaned := strings.TrimSpace(line)
	if stripped := enumeratorPrefix.ReplaceAllString(cleaned, ""); stripped != "" {
		return stripped
	}
	return cleaned
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
