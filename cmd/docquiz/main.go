package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "docquiz",
		Short:        "Summarize documents and generate multiple-choice questions",
		SilenceUsage: true,
	}
	root.AddCommand(runCMD(), segmentCMD(), serveCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
