// Package validator filters and deduplicates the module proposals decoded
// from a model response before any positional matching runs. Hallucinated
// modules, prompt boilerplate, and sub-condition names are dropped with a
// warning; duplicate proposals for the same document position are merged.
package validator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/quarrylabs/reqspan/internal/core/domain"
	"github.com/quarrylabs/reqspan/internal/docindex"
	"github.com/quarrylabs/reqspan/internal/logger"
	"github.com/quarrylabs/reqspan/internal/matcher"
)

// Config tunes the validation and dedup passes.
type Config struct {
	// PromptPhrases are instruction-sheet fragments that mark a proposal as
	// echoed prompt text rather than document content.
	PromptPhrases []string

	// AllowedNameKeywords exempt a module name from the sub-condition
	// filter.
	AllowedNameKeywords []string

	// PositionTolerance is the maximum anchor distance, in lines, at which
	// two proposals sharing a canonical key count as the same module.
	PositionTolerance int

	// MaxKeywords caps the merged keyword list per module.
	MaxKeywords int

	// MinMentionLength is the minimum rune length for a keyword or phrase
	// to count as a document mention.
	MinMentionLength int
}

// DefaultConfig returns the production validation settings.
func DefaultConfig() Config {
	return Config{
		PromptPhrases: []string{
			"功能模块定义", "提取要求", "输出格式", "重要要求", "关键词提取",
		},
		AllowedNameKeywords: []string{
			"判断条件", "状态", "详情", "设置", "弹窗", "卡片", "信息",
		},
		PositionTolerance: 5,
		MaxKeywords:       4,
		MinMentionLength:  3,
	}
}

// genericWords never count as a document mention on their own.
var genericWords = map[string]bool{
	"模块": true, "功能": true, "系统": true, "定义": true,
	"要求": true, "格式": true, "管理器": true, "管理": true,
}

var nameSplitPattern = regexp.MustCompile(`[模块功能系统定义要求格式管理]`)

// subConditionPatterns match state-description names like 存在有效数据 or
// 无工作日数据 that describe a condition inside a module, not a module.
var subConditionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(存在|无|有|没有).*数据$`),
	regexp.MustCompile(`^(存在|无|有|没有).*$`),
}

// Validator is immutable after construction.
type Validator struct {
	cfg       Config
	normalize func(string) string
	matcher   *matcher.Matcher
}

// New creates a validator sharing the matcher's normalize discipline.
func New(normalize func(string) string, m *matcher.Matcher, cfg Config) *Validator {
	return &Validator{cfg: cfg, normalize: normalize, matcher: m}
}

// Validate keeps only modules with a verbatim footprint in the document: the
// name itself, a non-generic name fragment, a strong keyword, or an exact
// phrase. Proposals echoing prompt boilerplate are always dropped.
func (v *Validator) Validate(modules []domain.ModuleDescriptor, doc string) []domain.ModuleDescriptor {
	var kept []domain.ModuleDescriptor

	for _, module := range modules {
		name := strings.TrimSpace(module.Name)
		if name == "" {
			continue
		}

		if v.isPromptEcho(name) {
			logger.Warn("dropping prompt-echo module %q", name)
			continue
		}

		ok := strings.Contains(doc, name) ||
			v.nameFragmentInDoc(name, doc) ||
			v.keywordInDoc(module.Keywords, doc) ||
			v.phraseInDoc(module.ExactPhrases, doc)
		if !ok {
			logger.Warn("dropping module %q: no verbatim mention in document", name)
			continue
		}
		kept = append(kept, module)
	}

	if len(kept) < len(modules) {
		logger.Info("validation kept %d/%d modules", len(kept), len(modules))
	}
	return kept
}

// FilterSubConditions drops modules whose name reads as a data-state
// condition, unless the name carries an allow-listed module keyword.
func (v *Validator) FilterSubConditions(modules []domain.ModuleDescriptor) []domain.ModuleDescriptor {
	var kept []domain.ModuleDescriptor

	for _, module := range modules {
		name := strings.TrimSpace(module.Name)
		if name == "" {
			continue
		}

		if v.hasAllowedKeyword(name) {
			kept = append(kept, module)
			continue
		}

		dropped := false
		for _, pattern := range subConditionPatterns {
			if pattern.MatchString(name) {
				logger.Info("dropping sub-condition module %q", name)
				dropped = true
				break
			}
		}
		if !dropped {
			kept = append(kept, module)
		}
	}

	if len(kept) < len(modules) {
		logger.Info("sub-condition filter kept %d/%d modules", len(kept), len(modules))
	}
	return kept
}

type mergeEntry struct {
	desc     domain.ModuleDescriptor
	position int
}

// Dedup merges proposals that resolve to the same canonical key and anchor
// within PositionTolerance lines of each other; same key at distant anchors
// stays distinct. Merging keeps the longer description, the earliest anchor,
// and the union of document-confirmed keywords and phrases. The result is
// sorted by anchor position.
func (v *Validator) Dedup(modules []domain.ModuleDescriptor, idx *docindex.Index) []domain.ModuleDescriptor {
	if len(modules) == 0 {
		return nil
	}

	doc := strings.Join(idx.Lines, "\n")
	normalizedDoc := v.normalize(doc)

	grouped := make(map[string]*mergeEntry)
	var order []string

	for _, module := range modules {
		rawName := strings.TrimSpace(module.Name)
		if rawName == "" {
			continue
		}

		name := rawName
		canonical, isCanonical := v.matcher.MapToCanonical(rawName)
		if isCanonical {
			name = canonical
		}
		key := v.normalize(name)

		probe := module
		probe.Name = name
		position, _ := v.matcher.FindAnchor(idx, probe)

		entry, exists := grouped[key]
		switch {
		case !exists:
			entry = v.newEntry(module, name, position)
			grouped[key] = entry
			order = append(order, key)
		case abs(entry.position-position) <= v.cfg.PositionTolerance:
			logger.Debug("merging duplicate module %q at lines %d/%d", name, entry.position, position)
			v.merge(entry, module, position)
		default:
			// Same key far apart in the document: a genuine second
			// occurrence, distinguished by position.
			positionKey := fmt.Sprintf("%s@%d", key, position)
			if distant, ok := grouped[positionKey]; ok {
				v.merge(distant, module, position)
				entry = distant
			} else {
				entry = v.newEntry(module, name, position)
				grouped[positionKey] = entry
				order = append(order, positionKey)
			}
			if isCanonical {
				entry.desc.Name = canonical
			}
			if entry.desc.SectionHint == "" {
				entry.desc.SectionHint = firstNonEmpty(strings.TrimSpace(module.SectionHint), name)
			}
		}

		v.absorbKeywords(entry, module.Keywords, normalizedDoc)
		v.absorbPhrases(entry, module.ExactPhrases, doc)
	}

	entries := make([]*mergeEntry, 0, len(order))
	for _, key := range order {
		entry := grouped[key]
		v.finalize(entry, idx)
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].position < entries[j].position
	})

	result := make([]domain.ModuleDescriptor, 0, len(entries))
	for _, entry := range entries {
		result = append(result, entry.desc)
	}
	return result
}

func (v *Validator) newEntry(module domain.ModuleDescriptor, name string, position int) *mergeEntry {
	return &mergeEntry{
		desc: domain.ModuleDescriptor{
			Name:        name,
			Description: strings.TrimSpace(module.Description),
			SectionHint: firstNonEmpty(strings.TrimSpace(module.SectionHint), name),
			IsMain:      module.IsMain,
			Parent:      module.Parent,
		},
		position: position,
	}
}

func (v *Validator) merge(entry *mergeEntry, module domain.ModuleDescriptor, position int) {
	desc := strings.TrimSpace(module.Description)
	if desc != "" && len(desc) > len(entry.desc.Description) {
		entry.desc.Description = desc
	}
	entry.position = min(entry.position, position)
	if entry.desc.IsMain == nil {
		entry.desc.IsMain = module.IsMain
	}
	if entry.desc.Parent == "" {
		entry.desc.Parent = module.Parent
	}
}

func (v *Validator) absorbKeywords(entry *mergeEntry, keywords []string, normalizedDoc string) {
	for _, keyword := range keywords {
		clean := strings.TrimSpace(keyword)
		if !v.matcher.IsStrongKeyword(clean) {
			continue
		}
		if !strings.Contains(normalizedDoc, v.normalize(clean)) {
			continue
		}
		if !containsString(entry.desc.Keywords, clean) {
			entry.desc.Keywords = append(entry.desc.Keywords, clean)
		}
	}
}

func (v *Validator) absorbPhrases(entry *mergeEntry, phrases []string, doc string) {
	for _, phrase := range phrases {
		clean := strings.TrimSpace(phrase)
		if clean == "" || !strings.Contains(doc, clean) {
			continue
		}
		if !containsString(entry.desc.ExactPhrases, clean) {
			entry.desc.ExactPhrases = append(entry.desc.ExactPhrases, clean)
		}
	}
}

// finalize backfills the fields downstream matching depends on: a non-empty
// description, at least one exact phrase lifted from the document, and a
// bounded keyword list with a usable fallback.
func (v *Validator) finalize(entry *mergeEntry, idx *docindex.Index) {
	if entry.desc.Description == "" {
		entry.desc.Description = entry.desc.Name
	}

	aliases, isCanonical := v.matcher.Aliases(entry.desc.Name)
	if isCanonical {
		entry.desc.SectionHint = entry.desc.Name
	}

	if len(entry.desc.ExactPhrases) == 0 {
		anchors := append([]string{entry.desc.Name}, aliases...)
		if phrase := v.matcher.CollectPhrase(anchors, idx.Lines); phrase != "" {
			entry.desc.ExactPhrases = []string{phrase}
		}
	}

	var unique []string
	for _, keyword := range entry.desc.Keywords {
		clean := strings.TrimSpace(keyword)
		if !v.matcher.IsStrongKeyword(clean) {
			continue
		}
		if !containsString(unique, clean) && len(unique) < v.cfg.MaxKeywords {
			unique = append(unique, clean)
		}
	}
	if len(unique) == 0 {
		fallback := entry.desc.Name
		for _, alias := range aliases {
			if v.matcher.IsStrongKeyword(alias) {
				fallback = alias
				break
			}
		}
		if fallback == entry.desc.Name && len(aliases) > 0 {
			fallback = aliases[0]
		}
		unique = append(unique, fallback)
	}
	entry.desc.Keywords = unique
}

func (v *Validator) isPromptEcho(name string) bool {
	for _, phrase := range v.cfg.PromptPhrases {
		if strings.Contains(name, phrase) {
			return true
		}
	}
	return false
}

func (v *Validator) hasAllowedKeyword(name string) bool {
	for _, keyword := range v.cfg.AllowedNameKeywords {
		if strings.Contains(name, keyword) {
			return true
		}
	}
	return false
}

// nameFragmentInDoc splits the raw name on structural filler characters and
// checks whether any specific fragment occurs in the document.
func (v *Validator) nameFragmentInDoc(name, doc string) bool {
	for _, part := range nameSplitPattern.Split(name, -1) {
		fragment := strings.TrimSpace(part)
		if utf8.RuneCountInString(fragment) < v.cfg.MinMentionLength {
			continue
		}
		if genericWords[fragment] {
			continue
		}
		if strings.Contains(doc, fragment) {
			return true
		}
	}
	return false
}

func (v *Validator) keywordInDoc(keywords []string, doc string) bool {
	for _, keyword := range keywords {
		clean := strings.TrimSpace(keyword)
		if utf8.RuneCountInString(clean) < v.cfg.MinMentionLength {
			continue
		}
		if strings.Contains(doc, clean) {
			return true
		}
	}
	return false
}

func (v *Validator) phraseInDoc(phrases []string, doc string) bool {
	for _, phrase := range phrases {
		clean := strings.TrimSpace(phrase)
		if utf8.RuneCountInString(clean) < v.cfg.MinMentionLength {
			continue
		}
		if strings.Contains(doc, clean) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
