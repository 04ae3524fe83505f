package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/draftly/draftly/internal/app"
	"github.com/draftly/draftly/internal/config"
	"github.com/draftly/draftly/internal/session"
)

var (
	outDir    string
	styleTags []string
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate UI component variants for a prompt",
	Long: `Generate submits the prompt, skips clarification, waits for every
variant to finish streaming, and writes each one to variant-<n>.html in
the output directory (or prints a summary with --out "").`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&outDir, "out", ".", "directory to write variant-<n>.html files ('' = print summary only)")
	generateCmd.Flags().StringSliceVar(&styleTags, "style", nil, "active style preset tags folded into prompts")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	if len(styleTags) > 0 {
		a.Orchestrator.SetStyleTags(styleTags)
	}

	prompt := strings.Join(args, " ")

	// One-shot mode: proceed straight past clarification with no answers.
	questions, err := a.Orchestrator.Submit(ctx, prompt)
	if err != nil {
		return fmt.Errorf("submitting prompt: %w", err)
	}
	if len(questions) > 0 {
		if _, err := a.Orchestrator.ConfirmGeneration(ctx); err != nil {
			return fmt.Errorf("starting generation: %w", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Generating...")
	a.Orchestrator.Wait()

	sess, err := a.Store.Current()
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}

	for i, artifact := range sess.Artifacts {
		switch artifact.Status {
		case session.StatusComplete:
			if outDir == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s: %d bytes\n", i+1, artifact.Style, len(artifact.Content))
				continue
			}
			name := filepath.Join(outDir, fmt.Sprintf("variant-%d.html", i+1))
			if err := os.WriteFile(name, []byte(artifact.Content), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s: wrote %s\n", i+1, artifact.Style, name)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s: failed\n", i+1, artifact.Style)
		}
	}
	return nil
}
