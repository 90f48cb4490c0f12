package main

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docquiz/internal/chunker"
	"github.com/dgallion1/docquiz/internal/parser"
	"github.com/spf13/cobra"
)

func segmentCMD() *cobra.Command {
	var (
		op   string
		size int
	)
	seg := &cobra.Command{
		Use:   "segment FILE",
		Short: "Print the chunk boundaries a document would be processed with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			if size <= 0 {
				switch op {
				case "summarize":
					size = cfg.SummaryChunkSize
				case "questions":
					size = cfg.QuestionChunkSize
				default:
					return fmt.Errorf("--op must be summarize or questions, got %q", op)
				}
			}
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			text, err := parser.ExtractWith(doc.Raw, doc.Format, parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			chunks := chunker.Segment(text, size)
			fmt.Fprintf(out, "%s: %d bytes, %d chunks (max %d)\n", args[0], len(text), len(chunks), size)
			for _, c := range chunks {
				flag := ""
				if c.Oversized {
					flag = " oversized"
				}
				fmt.Fprintf(out, "#%d offset=%d bytes=%d tokens~%d%s  %s\n",
					c.Index, c.Offset, c.ByteLength, chunker.EstimateTokens(c.Text), flag, preview(c.Text, 60))
			}
			return nil
		},
	}
	seg.Flags().StringVar(&op, "op", "summarize", "summarize or questions")
	seg.Flags().IntVar(&size, "size", 0, "max chunk length in bytes (default from config)")
	return seg
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
