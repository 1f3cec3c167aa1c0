package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"telecall_backend/internal/adapters"
	"telecall_backend/internal/rawleads/repository"
	"telecall_backend/internal/rawleads/service"
	"telecall_backend/internal/rawleads/transport"
	userrepo "telecall_backend/internal/users/repository"
	"telecall_backend/platform/db"
)

var (
	importCSVPath  string
	importBatch    string
	importSource   string
	importAssignee string
)

type csvImporter interface {
	ImportCSV(ctx context.Context, r io.Reader, opts transport.ImportOptions) (transport.BulkIngestResponse, error)
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import raw leads from a CSV file with a phone column",
	Long: `Reads a CSV with a "phone" column and an optional "notes" column.

Examples:
  rawlead-import import --csv march.csv --batch "March expo"
  rawlead-import import --csv feed.csv --source website --assignee 5f0c...`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		opts, err := importOptions()
		if err != nil {
			return err
		}

		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		users := adapters.NewUserDirectoryAdapter(userrepo.New(pool))
		svc := service.New(repository.New(pool), users, nil, cfg, log)

		return runImport(ctx, svc, importCSVPath, opts, cmd.OutOrStdout())
	},
}

func importOptions() (transport.ImportOptions, error) {
	var opts transport.ImportOptions
	if batch := strings.TrimSpace(importBatch); batch != "" {
		opts.BatchName = &batch
	}
	if source := strings.TrimSpace(importSource); source != "" {
		opts.Source = &source
	}
	if assignee := strings.TrimSpace(importAssignee); assignee != "" {
		id, err := uuid.Parse(assignee)
		if err != nil {
			return opts, fmt.Errorf("invalid --assignee: %w", err)
		}
		opts.DefaultAssigneeID = &id
	}
	return opts, nil
}

func runImport(ctx context.Context, imp csvImporter, path string, opts transport.ImportOptions, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	result, err := imp.ImportCSV(ctx, f, opts)
	if err != nil {
		return fmt.Errorf("import csv: %w", err)
	}

	log.Info("import complete",
		"csv", path,
		"received", result.Received,
		"inserted", result.Inserted,
		"duplicatesSkipped", result.DuplicatesSkipped,
		"invalidSkipped", result.InvalidSkipped,
	)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	importCmd.Flags().StringVar(&importBatch, "batch", "", "batch name recorded on every inserted row")
	importCmd.Flags().StringVar(&importSource, "source", "", "source label recorded on every inserted row")
	importCmd.Flags().StringVar(&importAssignee, "assignee", "", "user id to assign inserted rows to")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}
