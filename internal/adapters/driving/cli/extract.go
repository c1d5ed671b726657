package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/quarrylabs/reqspan/internal/core/domain"
)

var (
	extractJSON        bool
	extractDocID       string
	extractModulesOnly bool
	extractWatch       bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract positioned function modules from a requirement document",
	Long: `Runs the full extraction pipeline against a requirement document:
module proposal, validation, deduplication, hierarchy classification, and
positional matching.

The document is read from the given file, or from a stored document when
--doc is used. With --watch the file is re-analysed whenever it changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "output results as JSON")
	extractCmd.Flags().StringVar(&extractDocID, "doc", "", "analyse a stored document by ID")
	extractCmd.Flags().BoolVar(&extractModulesOnly, "modules-only", false, "list modules without matching content")
	extractCmd.Flags().BoolVarP(&extractWatch, "watch", "w", false, "re-run extraction when the file changes")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	if extractionService == nil {
		return errors.New("extraction service not configured")
	}

	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" && extractDocID == "" {
		return errors.New("a document file or --doc is required")
	}
	if extractWatch && path == "" {
		return errors.New("--watch requires a document file")
	}

	if extractWatch {
		return watchAndExtract(cmd, path)
	}

	content, err := loadDocument(cmd.Context(), path)
	if err != nil {
		return err
	}
	return extractOnce(cmd, content)
}

// loadDocument reads the document from disk, or from the document store
// when --doc was given.
func loadDocument(ctx context.Context, path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading document: %w", err)
		}
		return string(data), nil
	}

	if documentService == nil {
		return "", errors.New("document service not configured")
	}
	doc, err := documentService.Get(ctx, extractDocID)
	if err != nil {
		return "", fmt.Errorf("loading document %s: %w", extractDocID, err)
	}
	return doc.Content, nil
}

func extractOnce(cmd *cobra.Command, content string) error {
	ctx := cmd.Context()

	if extractModulesOnly {
		modules, err := extractionService.ExtractModules(ctx, content)
		if err != nil {
			return fmt.Errorf("extraction failed: %w", err)
		}
		if extractJSON {
			return outputJSON(cmd, domain.ModuleList{FunctionModules: modules})
		}
		outputModuleList(cmd, modules)
		return nil
	}

	matches, err := extractionService.ExtractWithContent(ctx, content)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	if extractJSON {
		return outputJSON(cmd, matches)
	}
	outputMatches(cmd, matches)
	return nil
}

// watchAndExtract re-runs extraction whenever the watched file is written.
// The parent directory is watched because most editors replace files on
// save instead of writing in place.
func watchAndExtract(cmd *cobra.Command, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("watching directory: %w", err)
	}

	run := func() {
		content, err := loadDocument(cmd.Context(), absPath)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			return
		}
		if err := extractOnce(cmd, content); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		}
	}

	run()
	cmd.Printf("Watching %s for changes (Ctrl-C to stop)...\n", path)

	// Debounce bursts of write events from a single save.
	var pending *time.Timer
	rerun := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(200*time.Millisecond, func() {
				select {
				case rerun <- struct{}{}:
				default:
				}
			})

		case <-rerun:
			cmd.Printf("\n%s changed, re-running extraction...\n\n", path)
			run()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)

		case <-cmd.Context().Done():
			return nil
		}
	}
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputModuleList(cmd *cobra.Command, modules []domain.ModuleDescriptor) {
	if len(modules) == 0 {
		cmd.Println("No modules found.")
		return
	}

	cmd.Printf("Found %d modules:\n\n", len(modules))
	for i := range modules {
		name := styled(moduleNameStyle, modules[i].Name)
		if modules[i].Parent != "" {
			name = styled(subModuleStyle, modules[i].Name)
		}
		cmd.Printf("  [%d] %s\n", i+1, name)
		if modules[i].Description != "" && modules[i].Description != modules[i].Name {
			cmd.Printf("      %s\n", modules[i].Description)
		}
		if len(modules[i].Keywords) > 0 {
			cmd.Printf("      %s\n", styled(dimStyle, "keywords: "+strings.Join(modules[i].Keywords, ", ")))
		}
		if modules[i].Parent != "" {
			cmd.Printf("      %s\n", styled(dimStyle, "parent: "+modules[i].Parent))
		}
	}
}

func outputMatches(cmd *cobra.Command, matches []domain.ModuleMatch) {
	if len(matches) == 0 {
		cmd.Println("No modules found.")
		return
	}

	cmd.Printf("Found %d modules:\n\n", len(matches))
	for i := range matches {
		m := &matches[i]

		name := styled(moduleNameStyle, m.Name)
		if !m.IsMainModule {
			name = styled(subModuleStyle, m.Name)
		}

		cmd.Printf("  %s %s (lines %d-%d, confidence %s)\n",
			styled(dimStyle, m.ID+":"), name,
			m.Positions[0], m.Positions[1], styledConfidence(m.Confidence.String()))
		if m.ParentModule != "" {
			cmd.Printf("      %s\n", styled(dimStyle, "parent: "+m.ParentModule))
		}
		cmd.Printf("      %s\n", excerptPreview(m.MatchedContent))
		cmd.Println()
	}
}

// excerptPreview returns the first non-empty line of an excerpt, truncated.
func excerptPreview(content string) string {
	const maxRunes = 80
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) > maxRunes {
			return string(runes[:maxRunes]) + "…"
		}
		return line
	}
	return ""
}
