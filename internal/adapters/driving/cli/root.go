// Package cli provides the cobra command tree for the reqspan binary.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/quarrylabs/reqspan/internal/core/ports/driving"
	"github.com/quarrylabs/reqspan/internal/logger"
)

// version is injected at build time via SetVersion.
var version = "dev"

// Services configured by the composition root.
var (
	extractionService driving.ExtractionService
	documentService   driving.DocumentService
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "reqspan",
	Short: "Segment requirement documents into positioned function modules",
	Long: `Reqspan extracts the function modules of a requirement document and
locates each module's exact line span in the original text.

Module proposals come from a configured LLM, with a heuristic fallback when
no model is reachable. Every proposed module is validated against the
document, deduplicated, classified into a main/sub hierarchy, and matched to
a content excerpt with line positions and a confidence grade.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

// Services aggregates the driving ports used by CLI commands.
type Services struct {
	Extraction driving.ExtractionService
	Document   driving.DocumentService
}

// SetServices wires driving services into the command tree. Must be called
// before Execute.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	extractionService = s.Extraction
	documentService = s.Document
}

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with the given context. Long-running
// commands (watch mode, the MCP server) stop when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose diagnostic output")
}
