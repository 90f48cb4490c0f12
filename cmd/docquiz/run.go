package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dgallion1/docquiz/internal/app"
	"github.com/dgallion1/docquiz/internal/parser"
	"github.com/dgallion1/docquiz/internal/pipeline"
	"github.com/spf13/cobra"
)

func runCMD() *cobra.Command {
	var (
		mode      string
		questions int
		outDir    string
		quiet     bool
	)
	run := &cobra.Command{
		Use:   "run FILE",
		Short: "Process one document and write its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := pipeline.ParseMode(mode)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(true)
			if err != nil {
				return err
			}
			if questions == 0 {
				questions = cfg.DefaultQuestions
			}
			if questions < pipeline.MinQuestions || questions > pipeline.MaxQuestions {
				return fmt.Errorf("--questions must be between %d and %d", pipeline.MinQuestions, pipeline.MaxQuestions)
			}
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			log := cliLogger(cfg)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			res, runErr := a.Pipeline.Run(ctx, pipeline.Request{Document: doc, Mode: m, Questions: questions})
			if errors.Is(runErr, parser.ErrEmptyContent) {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", pipeline.NoContentWarning)
				return nil
			}
			if res == nil {
				return runErr
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			out := cmd.OutOrStdout()
			var exportErr error
			for _, art := range pipeline.ExportArtifacts(res, doc.Title, a.Metrics) {
				if art.Err != nil {
					log.Error("export failed", "artifact", art.Name, "error", art.Err)
					exportErr = errors.Join(exportErr, art.Err)
					continue
				}
				path := filepath.Join(outDir, art.Name)
				if err := os.WriteFile(path, art.Data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				fmt.Fprintln(out, "wrote", path)
			}

			if !quiet {
				if res.Summary != nil {
					fmt.Fprintf(out, "\n== Summary (%d/%d chunks) ==\n%s\n", res.Summary.Succeeded(), res.Summary.Total(), res.Summary.Text())
				}
				if res.Questions != nil {
					fmt.Fprintf(out, "\n== Questions (%d parsed, from %s) ==\n%s\n", len(res.MCQs), res.QuestionSource, res.Questions.Text())
				}
			}
			reportFailures(cmd.ErrOrStderr(), "summary", res.Summary)
			reportFailures(cmd.ErrOrStderr(), "questions", res.Questions)
			return errors.Join(runErr, exportErr)
		},
	}
	run.Flags().StringVar(&mode, "mode", string(pipeline.ModeBoth), "summarize, questions or both")
	run.Flags().IntVarP(&questions, "questions", "n", 0, "number of questions (default DEFAULT_QUESTIONS)")
	run.Flags().StringVarP(&outDir, "out", "o", ".", "directory for artifacts")
	run.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print previews")
	return run
}

func reportFailures(w io.Writer, op string, agg *pipeline.AggregatedOutput) {
	if agg == nil {
		return
	}
	for _, f := range agg.Failures() {
		fmt.Fprintf(w, "%s chunk %d failed: %s\n", op, f.Index, f.Reason)
	}
}
