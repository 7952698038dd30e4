package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/BerylCAtieno/airline-extractor/internal/airline"
	"github.com/BerylCAtieno/airline-extractor/internal/decoder"
	"github.com/BerylCAtieno/airline-extractor/internal/engine"
	"github.com/BerylCAtieno/airline-extractor/internal/export"
	"github.com/BerylCAtieno/airline-extractor/internal/pipeline"
	"github.com/BerylCAtieno/airline-extractor/internal/table"
	"github.com/BerylCAtieno/airline-extractor/internal/utils"
)

type options struct {
	airline  string
	out      string
	preview  int
	workers  int
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "extract --airline CODE [flags] FILE...",
		Short: "Extract airline settlement reports into an .xlsx workbook",
		Long: `Reads Gol (G3) text reports or Azul (AD) and Latam (JJ) PDF statements,
merges the records of every file in argument order and writes one workbook.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.airline, "airline", "a", "", "airline code: G3, AD or JJ")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output workbook path (default extracao_<airline>_<ms>.xlsx)")
	cmd.Flags().IntVarP(&opts.preview, "preview", "p", 0, "print the first N rows")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "documents processed at once (default: number of CPUs)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	_ = cmd.MarkFlagRequired("airline")

	return cmd
}

func run(ctx context.Context, opts *options, paths []string, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	code, err := airline.ParseCode(opts.airline)
	if err != nil {
		return err
	}

	docs := make([]decoder.RawDocument, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		docs = append(docs, decoder.RawDocument{Filename: filepath.Base(p), Data: data})
	}

	logger := utils.NewLoggerTo(stderr, opts.logLevel)
	p := pipeline.New(engine.New(engine.DefaultLoader, logger), opts.workers, logger)

	res, err := p.Run(ctx, pipeline.Request{Airline: code, Documents: docs})
	if err != nil {
		var derr *pipeline.DocumentError
		if errors.As(err, &derr) {
			return fmt.Errorf("%s stage failed: %w", derr.Stage, derr.Err)
		}
		return err
	}

	for _, f := range res.Failures {
		fmt.Fprintln(stderr, "failed:", f)
	}
	for _, w := range res.Warnings {
		fmt.Fprintln(stderr, "warning:", w)
	}

	if res.NoData() {
		fmt.Fprintln(stdout, "no data found")
		return nil
	}

	data, err := export.Workbook(res.Table)
	if err != nil {
		return err
	}
	out := opts.out
	if out == "" {
		out = export.Filename(string(code), time.Now())
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	if opts.preview > 0 {
		printPreview(stdout, table.Preview(res.Table, opts.preview))
	}
	fmt.Fprintf(stdout, "%d rows from %d/%d documents written to %s\n",
		res.Table.Len(), res.Succeeded(), res.Documents, out)
	return nil
}

func printPreview(w io.Writer, t *table.Table) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, c := range t.Columns() {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c)
	}
	fmt.Fprintln(tw)
	for _, row := range t.Rows() {
		for i, v := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, v.Text())
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}
