package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/corpintel/internal/logger"
	"github.com/kailas-cloud/corpintel/internal/usecase/ingest"
)

var (
	ingestClear   bool
	ingestVerbose bool

	ingestCmd = &cobra.Command{
		Use:   "ingest [file.jsonl]",
		Short: "Add JSONL records {id?, content, metadata} to the corpus",
		Long: "Reads one JSON record per line and adds it to the corpus. " +
			"With --clear the corpus is emptied first; --clear without a file only clears.",
		Args: cobra.MaximumNArgs(1),
		RunE: runIngest,
	}
)

func init() {
	ingestCmd.Flags().BoolVar(&ingestClear, "clear", false, "Remove every document before ingesting")
	ingestCmd.Flags().BoolVarP(&ingestVerbose, "verbose", "v", false, "Print a result line per record")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !ingestClear {
		return fmt.Errorf("a JSONL file is required unless --clear is set")
	}

	a, err := newApp(cmd.Context(), envName, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := logpkg.ContextWithLogger(cmd.Context(), a.logger)
	out := cmd.OutOrStdout()

	if ingestClear {
		if err := a.corpus.Clear(ctx); err != nil {
			return fmt.Errorf("clear corpus: %w", err)
		}
		fmt.Fprintln(out, "Corpus cleared.")
	}
	if len(args) == 0 {
		return nil
	}

	f, err := os.Open(filepath.Clean(args[0]))
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer func() { _ = f.Close() }()

	records, malformed, err := ingest.ReadJSONL(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	rep := a.ingest.Ingest(ctx, records)
	for _, res := range malformed {
		rep.Failed++
		rep.Results = append(rep.Results, res)
	}

	if ingestVerbose {
		enc := json.NewEncoder(out)
		for _, res := range rep.Results {
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
		}
	}

	total, err := a.corpus.Count(ctx)
	if err != nil {
		a.logger.Warn("Count after ingest failed", zap.Error(err))
	}
	fmt.Fprintf(out, "Added %d, failed %d. Corpus now holds %d documents.\n", rep.Added, rep.Failed, total)
	if rep.Failed > 0 && rep.Added == 0 {
		return fmt.Errorf("no records were added")
	}
	return nil
}
