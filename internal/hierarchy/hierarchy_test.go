package hierarchy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/reqspan/internal/core/domain"
	"github.com/quarrylabs/reqspan/internal/docindex"
	"github.com/quarrylabs/reqspan/internal/textnorm"
)

func newResolver() *Resolver {
	return New(textnorm.Normalize, DefaultConfig())
}

func buildIndex(t *testing.T, lines ...string) *docindex.Index {
	t.Helper()
	return docindex.Build(strings.Join(lines, "\n"), textnorm.Normalize, docindex.DefaultConfig())
}

func boolPtr(b bool) *bool { return &b }

func TestFindParent_LastResortPicksNearestMain(t *testing.T) {
	r := newResolver()
	idx := buildIndex(t, "- 文档正文", "- 文档正文")

	// No preceding module in the ordered batch and no matching level-2
	// heading, so the parent must come from the classified-mains fallback.
	// The nearest preceding anchor wins regardless of map iteration order.
	sub := domain.ModuleDescriptor{Name: "评分弹窗"}
	info := Info{
		MainModules: map[string]bool{"睡眠评分": true, "心率监测": true, "数据同步": true},
		ParentOf:    map[string]string{},
	}
	anchors := map[string]int{"睡眠评分": 2, "心率监测": 44, "数据同步": 10, "评分弹窗": 50}

	for range 20 {
		parent := r.findParent([]domain.ModuleDescriptor{sub}, 0, 50, idx, info, anchors)
		assert.Equal(t, "心率监测", parent)
	}
}

func TestResolve_LevelTwoHeadingIsMain(t *testing.T) {
	idx := buildIndex(t, "## 睡眠评分", "- content", "## 心率监测", "- content")
	modules := []domain.ModuleDescriptor{
		{Name: "睡眠评分"},
		{Name: "心率监测"},
	}
	anchors := map[string]int{"睡眠评分": 0, "心率监测": 2}

	info := newResolver().Resolve(modules, anchors, idx)

	assert.True(t, info.IsMain("睡眠评分"))
	assert.True(t, info.IsMain("心率监测"))
	assert.Empty(t, info.ParentOf)
}

func TestResolve_LevelThreeWithSubKeywordGetsParent(t *testing.T) {
	idx := buildIndex(t,
		"## 睡眠评分",
		"- content",
		"### 睡眠评分设置弹窗",
		"- sub content",
		"## 心率监测",
	)
	modules := []domain.ModuleDescriptor{
		{Name: "睡眠评分"},
		{Name: "睡眠评分设置弹窗"},
		{Name: "心率监测"},
	}
	anchors := map[string]int{"睡眠评分": 0, "睡眠评分设置弹窗": 2, "心率监测": 4}

	info := newResolver().Resolve(modules, anchors, idx)

	assert.True(t, info.IsMain("睡眠评分"))
	parent, ok := info.Parent("睡眠评分设置弹窗")
	require.True(t, ok)
	assert.Equal(t, "睡眠评分", parent)
}

func TestResolve_LevelThreeWithoutKeywordStaysMain(t *testing.T) {
	idx := buildIndex(t,
		"## 睡眠评分",
		"- content",
		"### 全新独立特性板块区",
		"- content",
	)
	modules := []domain.ModuleDescriptor{
		{Name: "睡眠评分"},
		{Name: "全新独立特性板块区"},
	}
	anchors := map[string]int{"睡眠评分": 0, "全新独立特性板块区": 2}

	info := newResolver().Resolve(modules, anchors, idx)

	assert.True(t, info.IsMain("全新独立特性板块区"))
	assert.Empty(t, info.ParentOf)
}

func TestResolve_PlainTextSubFollowsNearbyMain(t *testing.T) {
	idx := buildIndex(t,
		"## 睡眠评分",
		"- content",
		"- content",
		"评分规则说明",
		"- sub content",
	)
	modules := []domain.ModuleDescriptor{
		{Name: "睡眠评分"},
		{Name: "评分规则说明"},
	}
	anchors := map[string]int{"睡眠评分": 0, "评分规则说明": 3}

	info := newResolver().Resolve(modules, anchors, idx)

	parent, ok := info.Parent("评分规则说明")
	require.True(t, ok)
	assert.Equal(t, "睡眠评分", parent)
}

func TestResolve_PlainTextWithoutKeywordIsMain(t *testing.T) {
	idx := buildIndex(t, "独立评估板块", "- content")
	modules := []domain.ModuleDescriptor{{Name: "独立评估板块"}}
	anchors := map[string]int{"独立评估板块": 0}

	info := newResolver().Resolve(modules, anchors, idx)

	assert.True(t, info.IsMain("独立评估板块"))
}

func TestResolve_ModelProvidedFieldsWin(t *testing.T) {
	idx := buildIndex(t,
		"## Alpha",
		"- content",
		"### Alpha Settings",
		"- content",
	)
	modules := []domain.ModuleDescriptor{
		{Name: "Alpha", IsMain: boolPtr(true)},
		{Name: "Alpha Settings", IsMain: boolPtr(false), Parent: "Alpha"},
	}
	anchors := map[string]int{"Alpha": 0, "Alpha Settings": 2}

	info := newResolver().Resolve(modules, anchors, idx)

	assert.True(t, info.IsMain("Alpha"))
	parent, ok := info.Parent("Alpha Settings")
	require.True(t, ok)
	assert.Equal(t, "Alpha", parent)
}

func TestResolve_ModelParentMustExist(t *testing.T) {
	idx := buildIndex(t, "## Alpha", "- content")
	modules := []domain.ModuleDescriptor{
		{Name: "Alpha", IsMain: boolPtr(false), Parent: "Ghost Module"},
	}
	anchors := map[string]int{"Alpha": 0}

	info := newResolver().Resolve(modules, anchors, idx)

	// Invalid parent reference falls through to the rules: level-2 heading
	// means main.
	assert.True(t, info.IsMain("Alpha"))
	assert.Empty(t, info.ParentOf)
}

func TestResolve_DistantSubCandidateBecomesMain(t *testing.T) {
	var lines []string
	lines = append(lines, "## 睡眠评分")
	for i := 0; i < 250; i++ {
		lines = append(lines, "- filler")
	}
	lines = append(lines, "### 独立设置弹窗")
	idx := buildIndex(t, lines...)

	modules := []domain.ModuleDescriptor{
		{Name: "睡眠评分"},
		{Name: "独立设置弹窗"},
	}
	anchors := map[string]int{"睡眠评分": 0, "独立设置弹窗": 251}

	info := newResolver().Resolve(modules, anchors, idx)

	// No main anchor within range, so the candidate is promoted.
	assert.True(t, info.IsMain("独立设置弹窗"))
}
