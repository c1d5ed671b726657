// Package hierarchy classifies modules as main or sub and records parent
// links, from anchor positions and markdown heading levels. Descriptor
// fields supplied by the upstream model take precedence when valid; the
// rule-based pass fills only the gaps.
package hierarchy

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/quarrylabs/reqspan/internal/core/domain"
	"github.com/quarrylabs/reqspan/internal/docindex"
)

// Config holds the sub-module classification rules.
type Config struct {
	// SubModuleKeywords mark a name as a probable sub-feature unit.
	SubModuleKeywords []string

	// ShortSubModuleKeywords is the narrower set applied to short names.
	ShortSubModuleKeywords []string

	// ShortNameLength is the rune count at or below which a name counts as
	// short for the narrow keyword check.
	ShortNameLength int

	// MaxDistance is the furthest a parent anchor may precede a sub-module
	// anchor, in lines.
	MaxDistance int
}

// DefaultConfig returns the classification rules used in production.
func DefaultConfig() Config {
	return Config{
		SubModuleKeywords: []string{
			"弹窗", "半弹窗", "对话框", "设置", "配置",
			"规则", "定义", "算法", "说明", "解释",
			"详情", "信息", "卡片", "列表", "表单",
		},
		ShortSubModuleKeywords: []string{"弹窗", "设置", "规则", "定义", "解释", "详情"},
		ShortNameLength:        6,
		MaxDistance:            100,
	}
}

// Info is the resolved hierarchy for one module batch.
type Info struct {
	// MainModules holds the names classified as main.
	MainModules map[string]bool

	// ParentOf maps a sub-module name to its parent module name.
	ParentOf map[string]string
}

// Parent returns the parent of a module, if it has one.
func (info Info) Parent(name string) (string, bool) {
	parent, ok := info.ParentOf[name]
	return parent, ok
}

// IsMain reports whether a module was classified as main.
func (info Info) IsMain(name string) bool {
	return info.MainModules[name]
}

// Resolver builds hierarchy info. Immutable after construction.
type Resolver struct {
	cfg       Config
	normalize func(string) string
}

// New creates a resolver.
func New(normalize func(string) string, cfg Config) *Resolver {
	return &Resolver{cfg: cfg, normalize: normalize}
}

// Resolve classifies the batch. Anchors maps module name to anchor line;
// modules with anchors beyond the document are treated as main.
func (r *Resolver) Resolve(modules []domain.ModuleDescriptor, anchors map[string]int, idx *docindex.Index) Info {
	info := Info{
		MainModules: make(map[string]bool),
		ParentOf:    make(map[string]string),
	}

	ordered := make([]domain.ModuleDescriptor, len(modules))
	copy(ordered, modules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return anchorOf(anchors, ordered[i].Name) < anchorOf(anchors, ordered[j].Name)
	})

	known := make(map[string]bool, len(ordered))
	for _, module := range ordered {
		known[module.Name] = true
	}

	// Model-provided classification wins when it is self-consistent.
	decided := make(map[string]bool, len(ordered))
	for _, module := range ordered {
		if module.IsMain == nil {
			continue
		}
		if *module.IsMain {
			info.MainModules[module.Name] = true
			decided[module.Name] = true
		} else if module.Parent != "" && known[module.Parent] {
			info.ParentOf[module.Name] = module.Parent
			decided[module.Name] = true
		}
	}

	// First rule pass: collect the obvious mains so parent search sees the
	// full set.
	for _, module := range ordered {
		if decided[module.Name] || info.MainModules[module.Name] {
			continue
		}
		level := docindex.TitleLevel(lineAt(idx, anchorOf(anchors, module.Name)))
		switch {
		case level == 2:
			info.MainModules[module.Name] = true
		case level == 0 && !r.hasSubKeyword(module.Name):
			info.MainModules[module.Name] = true
		}
	}

	// Second rule pass: classify the remaining candidates as sub where the
	// evidence supports it, else promote to main.
	for i, module := range ordered {
		if decided[module.Name] || info.MainModules[module.Name] {
			continue
		}
		if _, ok := info.ParentOf[module.Name]; ok {
			continue
		}

		anchor := anchorOf(anchors, module.Name)
		if r.isSubModule(module.Name, anchor, idx, info, anchors) {
			if parent := r.findParent(ordered, i, anchor, idx, info, anchors); parent != "" {
				info.ParentOf[module.Name] = parent
				continue
			}
		}
		info.MainModules[module.Name] = true
	}

	return info
}

func (r *Resolver) hasSubKeyword(name string) bool {
	for _, keyword := range r.cfg.SubModuleKeywords {
		if strings.Contains(name, keyword) {
			return true
		}
	}
	return false
}

func (r *Resolver) isSubModule(name string, anchor int, idx *docindex.Index, info Info, anchors map[string]int) bool {
	level := docindex.TitleLevel(lineAt(idx, anchor))

	switch level {
	case 3:
		if r.hasSubKeyword(name) {
			return true
		}
		if utf8.RuneCountInString(name) <= r.cfg.ShortNameLength {
			for _, keyword := range r.cfg.ShortSubModuleKeywords {
				if strings.Contains(name, keyword) {
					return true
				}
			}
		}
		return false
	case 0:
		if !r.hasSubKeyword(name) {
			return false
		}
		// A plain-text sub-candidate needs a main module close enough
		// behind it, either a level-2 heading or an already classified main.
		searchBack := min(anchor, r.cfg.MaxDistance*2)
		for line := anchor - 1; line >= max(0, anchor-searchBack); line-- {
			if docindex.TitleLevel(lineAt(idx, line)) == 2 {
				return true
			}
		}
		for mainName := range info.MainModules {
			mainAnchor := anchorOf(anchors, mainName)
			if mainAnchor < anchor && anchor-mainAnchor <= r.cfg.MaxDistance*2 {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// findParent picks the nearest preceding main-module anchor within the
// distance bound, preferring modules anchored on level-2 headings, then
// falls back to a direct document scan for a matching level-2 heading.
func (r *Resolver) findParent(ordered []domain.ModuleDescriptor, index, anchor int, idx *docindex.Index, info Info, anchors map[string]int) string {
	bestParent := ""
	bestDistance := int(^uint(0) >> 1)

	for j := index - 1; j >= 0; j-- {
		prev := ordered[j]
		if _, isSub := info.ParentOf[prev.Name]; isSub {
			continue
		}
		prevAnchor := anchorOf(anchors, prev.Name)
		distance := anchor - prevAnchor
		if distance < 0 || distance > r.cfg.MaxDistance {
			continue
		}
		prevLevel := docindex.TitleLevel(lineAt(idx, prevAnchor))
		if prevLevel == 2 || info.MainModules[prev.Name] {
			if distance < bestDistance {
				bestParent = prev.Name
				bestDistance = distance
			}
		}
	}
	if bestParent != "" {
		return bestParent
	}

	for line := anchor - 1; line >= max(0, anchor-r.cfg.MaxDistance); line-- {
		text := lineAt(idx, line)
		if docindex.TitleLevel(text) != 2 {
			continue
		}
		heading, _ := docindex.HeadingText(text)
		normalizedHeading := r.normalize(heading)
		for _, module := range ordered {
			if r.normalize(module.Name) == normalizedHeading {
				return module.Name
			}
		}
	}

	for mainName := range info.MainModules {
		mainAnchor := anchorOf(anchors, mainName)
		distance := anchor - mainAnchor
		if distance <= 0 || distance > r.cfg.MaxDistance {
			continue
		}
		if distance < bestDistance {
			bestParent = mainName
			bestDistance = distance
		}
	}
	return bestParent
}

func anchorOf(anchors map[string]int, name string) int {
	if anchor, ok := anchors[name]; ok {
		return anchor
	}
	return int(^uint(0) >> 1)
}

func lineAt(idx *docindex.Index, line int) string {
	if line < 0 || line >= len(idx.Lines) {
		return ""
	}
	return idx.Lines[line]
}
