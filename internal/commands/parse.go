package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kosta-Git/stripe-csv/internal/analysis"
	"github.com/Kosta-Git/stripe-csv/internal/config"
	"github.com/Kosta-Git/stripe-csv/internal/exports"
	"github.com/Kosta-Git/stripe-csv/internal/runlog"
)

func newParseCommand() *cobra.Command {
	var analysisType string
	var output string
	var sortOutput bool
	var configPath string

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Summarize a single Stripe CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := filepath.Abs(args[0])
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

			return runParse(file, output, analysisType, cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&analysisType, "type", "fees", "export type to analyze")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <input>_out.csv)")
	cmd.Flags().BoolVar(&sortOutput, "sort", false, "order output by account ID")
	cmd.Flags().StringVar(&configPath, "config", "", "path to stripe-csv.yaml")

	return cmd
}

func runParse(file, output, analysisType string, cfg *config.Config, out io.Writer) error {
	if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("the file %q does not exist", file)
	}

	a, err := lookupAnalysis(analysisType, cfg)
	if err != nil {
		return err
	}

	if output == "" {
		output = exports.OutputPath(file)
	}

	fmt.Fprintf(out, "parsing %s from file: %s\n", a.Name(), file)
	res, err := summarizeFile(a, file, output)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "writing results to file: %s\n", output)
	reportResult(out, res)

	if err := logRun(cfg, a.Name(), file, output, res); err != nil {
		return err
	}

	fmt.Fprintln(out, "done.")
	return nil
}

func lookupAnalysis(analysisType string, cfg *config.Config) (analysis.Analysis, error) {
	reg := analysis.DefaultRegistry(analysis.Options{
		Currency:   cfg.Analysis.Currency,
		SortOutput: cfg.Analysis.SortOutput,
	})
	a := reg.Get(analysisType)
	if a == nil {
		return nil, fmt.Errorf("unknown export type %q", analysisType)
	}
	return a, nil
}

// summarizeFile runs an analysis over the input file and writes the summary.
// The summary is buffered so an aborted run leaves no partial output behind.
func summarizeFile(a analysis.Analysis, input, output string) (analysis.Result, error) {
	f, err := os.Open(input)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("opening export: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	res, err := a.Run(f, &buf)
	if err != nil {
		return res, err
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return res, fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return res, fmt.Errorf("writing summary: %w", err)
	}
	return res, nil
}

func reportResult(out io.Writer, res analysis.Result) {
	fmt.Fprintf(out, "%d rows into %d accounts\n", res.Rows, res.Accounts)
	if len(res.Skipped) == 0 {
		return
	}
	fmt.Fprintf(out, "skipped %d rows:\n", len(res.Skipped))
	for _, re := range res.Skipped {
		fmt.Fprintf(out, "  %s\n", re)
	}
}

func logRun(cfg *config.Config, name, input, output string, res analysis.Result) error {
	if cfg.Log.Dir == "" {
		return nil
	}
	entry := runlog.Entry{
		Timestamp: time.Now().UTC(),
		Analysis:  name,
		Input:     input,
		Output:    output,
		Rows:      res.Rows,
		Accounts:  res.Accounts,
		Skipped:   len(res.Skipped),
	}
	if err := runlog.Append(cfg.Log.Dir, []runlog.Entry{entry}); err != nil {
		return fmt.Errorf("appending run log: %w", err)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
