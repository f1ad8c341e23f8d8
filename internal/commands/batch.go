package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Kosta-Git/stripe-csv/internal/config"
	"github.com/Kosta-Git/stripe-csv/internal/exports"
)

func newBatchCommand() *cobra.Command {
	var analysisType string
	var sortOutput bool
	var configPath string
	var moveProcessed bool

	cmd := &cobra.Command{
		Use:   "batch [directory]",
		Short: "Summarize every CSV export in a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("sort") {
				cfg.Analysis.SortOutput = sortOutput
			}

			return runBatch(absDir, analysisType, cfg, moveProcessed, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&analysisType, "type", "fees", "export type to analyze")
	cmd.Flags().BoolVar(&sortOutput, "sort", false, "order output by account ID")
	cmd.Flags().StringVar(&configPath, "config", "", "path to stripe-csv.yaml")
	cmd.Flags().BoolVar(&moveProcessed, "move-processed", false, "move inputs to processed/ after summarizing")

	return cmd
}

func runBatch(dir, analysisType string, cfg *config.Config, moveProcessed bool, out io.Writer) error {
	a, err := lookupAnalysis(analysisType, cfg)
	if err != nil {
		return err
	}

	files, err := exports.Scan(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "no exports found in %s\n", dir)
		return nil
	}

	for _, fi := range files {
		output := exports.OutputPath(fi.Path)
		fmt.Fprintf(out, "parsing %s from file: %s\n", a.Name(), fi.Path)

		res, err := summarizeFile(a, fi.Path, output)
		if err != nil {
			return fmt.Errorf("%s: %w", fi.Name, err)
		}
		fmt.Fprintf(out, "writing results to file: %s\n", output)
		reportResult(out, res)

		if err := logRun(cfg, a.Name(), fi.Path, output, res); err != nil {
			return err
		}

		if moveProcessed {
			if err := exports.MarkProcessed(dir, fi.Name); err != nil {
				return err
			}
		}
	}

	fmt.Fprintln(out, "done.")
	return nil
}
