package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/quarrylabs/reqspan/internal/core/domain"
	"github.com/quarrylabs/reqspan/internal/core/ports/driven"
	"github.com/quarrylabs/reqspan/internal/core/ports/driving"
	"github.com/quarrylabs/reqspan/internal/decode"
	"github.com/quarrylabs/reqspan/internal/docindex"
	"github.com/quarrylabs/reqspan/internal/extractor"
	"github.com/quarrylabs/reqspan/internal/heuristic"
	"github.com/quarrylabs/reqspan/internal/hierarchy"
	"github.com/quarrylabs/reqspan/internal/logger"
	"github.com/quarrylabs/reqspan/internal/matcher"
	"github.com/quarrylabs/reqspan/internal/textnorm"
	"github.com/quarrylabs/reqspan/internal/validator"
)

// Ensure ExtractionService implements the interface.
var _ driving.ExtractionService = (*ExtractionService)(nil)

// defaultWorkers bounds the per-module refinement fan-out.
const defaultWorkers = 4

// ExtractionOptions bundles the engine tuning for an ExtractionService.
// Zero values mean defaults.
type ExtractionOptions struct {
	// Aliases maps canonical module names to alternative spellings, usually
	// loaded from configuration.
	Aliases map[string][]string

	Matcher   matcher.Config
	Hierarchy hierarchy.Config
	Extractor extractor.Config
	Validator validator.Config
	Index     docindex.Config

	// Workers bounds the concurrent per-module span refinement.
	Workers int
}

// DefaultExtractionOptions returns the production engine settings.
func DefaultExtractionOptions() ExtractionOptions {
	return ExtractionOptions{
		Matcher:   matcher.DefaultConfig(),
		Hierarchy: hierarchy.DefaultConfig(),
		Extractor: extractor.DefaultConfig(),
		Validator: validator.DefaultConfig(),
		Index:     docindex.DefaultConfig(),
		Workers:   defaultWorkers,
	}
}

// ExtractionService runs the extraction pipeline: module proposal via the
// LLM (or the heuristic fallback), validation and dedup, anchor search,
// hierarchy classification, and per-module span refinement.
type ExtractionService struct {
	llm     driven.LLMService
	prompts driven.PromptStore

	matcher   *matcher.Matcher
	validator *validator.Validator
	resolver  *hierarchy.Resolver
	extractor *extractor.Extractor
	cache     *docindex.Cache
	workers   int
}

// NewExtractionService creates an extraction service. The llm and prompts
// parameters are optional (can be nil); without an LLM, module proposal is
// heuristic-only.
func NewExtractionService(llm driven.LLMService, prompts driven.PromptStore, opts ExtractionOptions) *ExtractionService {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}

	m := matcher.New(textnorm.Normalize, opts.Aliases, opts.Matcher)
	return &ExtractionService{
		llm:       llm,
		prompts:   prompts,
		matcher:   m,
		validator: validator.New(textnorm.Normalize, m, opts.Validator),
		resolver:  hierarchy.New(textnorm.Normalize, opts.Hierarchy),
		extractor: extractor.New(textnorm.Normalize, m, opts.Extractor),
		cache:     docindex.NewCache(textnorm.Normalize, opts.Index),
		workers:   opts.Workers,
	}
}

// ExtractModules proposes, validates, and deduplicates the function modules
// of a document without matching their content.
func (s *ExtractionService) ExtractModules(ctx context.Context, doc string) ([]domain.ModuleDescriptor, error) {
	doc = textnorm.FixLegacyPunctuation(doc)
	if strings.TrimSpace(doc) == "" {
		return nil, domain.ErrInvalidInput
	}

	runID := uuid.NewString()[:8]
	logger.Section("Module Extraction")
	logger.Debug("[%s] document length: %d bytes", runID, len(doc))

	proposed, err := s.proposeModules(ctx, runID, doc)
	if err != nil {
		return nil, err
	}

	idx := s.cache.Get(doc)
	validated := s.validator.Validate(proposed, doc)
	filtered := s.validator.FilterSubConditions(validated)
	deduped := s.validator.Dedup(filtered, idx)

	logger.Info("[%s] %d modules after validation and dedup", runID, len(deduped))
	return deduped, nil
}

// ExtractWithContent runs the full pipeline and returns positioned matches.
// Every returned match carries non-empty content; failed positional matching
// degrades to a fallback excerpt with low confidence.
func (s *ExtractionService) ExtractWithContent(ctx context.Context, doc string) ([]domain.ModuleMatch, error) {
	doc = textnorm.FixLegacyPunctuation(doc)

	modules, err := s.ExtractModules(ctx, doc)
	if err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		return nil, domain.ErrNoModules
	}

	idx := s.cache.Get(doc)

	anchors := make(map[string]int, len(modules))
	for _, module := range modules {
		anchor, _ := s.matcher.FindAnchor(idx, module)
		anchors[module.Name] = anchor
	}
	sort.SliceStable(modules, func(i, j int) bool {
		return anchors[modules[i].Name] < anchors[modules[j].Name]
	})

	info := s.resolver.Resolve(modules, anchors, idx)

	matches := make([]domain.ModuleMatch, len(modules))
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.workers)
	for i, module := range modules {
		wg.Add(1)
		go func(i int, module domain.ModuleDescriptor) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			matches[i] = s.matchModule(idx, module, modules, anchors, info)
			matches[i].ID = fmt.Sprintf("module_%d", i+1)
		}(i, module)
	}
	wg.Wait()

	return matches, nil
}

// Rematch recomputes the span of a single module against a document. The
// descriptor is taken as-is; no validation or hierarchy classification runs.
func (s *ExtractionService) Rematch(ctx context.Context, doc string, desc domain.ModuleDescriptor) (domain.ModuleMatch, error) {
	doc = textnorm.FixLegacyPunctuation(doc)
	if strings.TrimSpace(doc) == "" || strings.TrimSpace(desc.Name) == "" {
		return domain.ModuleMatch{}, domain.ErrInvalidInput
	}

	idx := s.cache.Get(doc)
	match := s.matchModule(idx, desc, []domain.ModuleDescriptor{desc}, map[string]int{}, hierarchy.Info{})
	match.ID = "module_1"
	return match, nil
}

// matchModule locates one module's span. All inputs are shared read-only
// state; per-call working data stays local, so concurrent calls over the
// same index are safe.
func (s *ExtractionService) matchModule(
	idx *docindex.Index,
	module domain.ModuleDescriptor,
	all []domain.ModuleDescriptor,
	anchors map[string]int,
	info hierarchy.Info,
) domain.ModuleMatch {
	anchor, found := anchors[module.Name]
	if !found {
		anchor, found = s.matcher.FindAnchor(idx, module)
	}
	if anchor >= len(idx.Lines) {
		if line, ok := s.matcher.FuzzyAnchor(idx, module.Name); ok {
			anchor, found = line, true
		} else {
			found = false
		}
	}

	fallback := s.extractor.RelevantSection(idx, module.Name, &module)

	bounds := s.boundaries(module, all, anchors, info)
	content, positions := s.extractor.Refine(idx, module, anchor, bounds, fallback)
	if content == "" {
		content = fallback
	}

	confidence := s.extractor.Confidence(module, content)
	if !found && confidence == domain.ConfidenceHigh {
		// The span came from fallback excerpting, not a located anchor.
		confidence = domain.ConfidenceMedium
	}

	parent, _ := info.Parent(module.Name)
	return domain.ModuleMatch{
		ModuleDescriptor: module,
		MatchedContent:   content,
		Positions:        positions,
		Confidence:       confidence,
		IsMainModule:     info.IsMain(module.Name),
		ParentModule:     parent,
	}
}

// boundaries builds the stop-token context for one module: identifiers of
// every other module, the main-module subset, and the parent anchor for
// sub-modules.
func (s *ExtractionService) boundaries(
	module domain.ModuleDescriptor,
	all []domain.ModuleDescriptor,
	anchors map[string]int,
	info hierarchy.Info,
) extractor.Boundaries {
	tokens := s.matcher.Tokens(module, all)

	var mainTokens []string
	for _, other := range all {
		if other.Name == module.Name || !info.IsMain(other.Name) {
			continue
		}
		if n := textnorm.Normalize(other.Name); n != "" && !containsToken(mainTokens, n) {
			mainTokens = append(mainTokens, n)
		}
	}

	bounds := extractor.Boundaries{
		OtherTokens: tokens.OtherTokens,
		MainTokens:  mainTokens,
	}
	if parent, ok := info.Parent(module.Name); ok {
		if parentAnchor, ok := anchors[parent]; ok {
			bounds.ParentAnchor = parentAnchor
			bounds.HasParent = true
		}
	}
	return bounds
}

// proposeModules asks the LLM for the module list, falling back to the
// heuristic proposer when the model is missing, unreachable, or returns
// undecodable JSON. Both failing surfaces the original error.
func (s *ExtractionService) proposeModules(ctx context.Context, runID, doc string) ([]domain.ModuleDescriptor, error) {
	proposed, llmErr := s.llmProposal(ctx, runID, doc)
	if llmErr == nil {
		return proposed, nil
	}

	logger.Warn("[%s] model proposal failed: %v, trying heuristic extraction", runID, llmErr)
	if fallback := heuristic.Propose(doc); len(fallback) > 0 {
		return fallback, nil
	}
	return nil, llmErr
}

func (s *ExtractionService) llmProposal(ctx context.Context, runID, doc string) ([]domain.ModuleDescriptor, error) {
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	prompt := fmt.Sprintf(s.extractionPrompt(), doc)
	response, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: 0.1})
	if err != nil {
		return nil, fmt.Errorf("generate module proposal: %w", err)
	}
	logger.Debug("[%s] model response: %d bytes", runID, len(response))

	payload, ok := decode.ExtractObject(response)
	if !ok {
		return nil, fmt.Errorf("no JSON object in model response: %w", domain.ErrInvalidInput)
	}

	list, err := decode.ModuleList(payload)
	if err != nil {
		return nil, err
	}
	if len(list.FunctionModules) == 0 {
		logger.Warn("[%s] model returned no function_modules", runID)
	}
	return list.FunctionModules, nil
}

func (s *ExtractionService) extractionPrompt() string {
	if s.prompts != nil {
		if prompt, err := s.prompts.Load(driven.PromptModuleExtraction); err == nil && prompt != "" {
			return prompt
		}
	}
	return defaultExtractionPrompt
}

func containsToken(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// defaultExtractionPrompt is the compiled-in module extraction prompt. A
// PromptStore can override it.
const defaultExtractionPrompt = `你是一名资深需求分析师。请从下面的需求文档中提取功能模块列表。

【功能模块定义】
功能模块是需求文档中一个独立的功能单元，通常对应文档中的一个章节标题或一块完整的功能描述。

【提取要求】
1. 只提取需求文档中实际存在的功能模块，不能编造
2. 模块名称必须与文档中的标题或描述保持一致，不得改写
3. 区分主模块和子模块：子模块必须给出 parent_module
4. 每个模块附带定位信息：keywords 和 exact_phrases

【关键词提取】
- keywords：2-4 个能在文档中定位该模块的关键词，直接取自文档原文
- exact_phrases：1-2 句逐字复制自文档的原句，不能改写、总结或意译

【输出格式】
{
  "function_modules": [
    {
      "name": "模块名称",
      "description": "模块描述",
      "keywords": ["关键词1", "关键词2"],
      "exact_phrases": ["文档原句"],
      "section_hint": "所在章节标题",
      "is_main_module": true,
      "parent_module": null
    }
  ]
}

【重要要求】
只输出JSON，不要任何其他文字！

需求文档：
%s`
