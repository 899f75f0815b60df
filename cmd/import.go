package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/benchmark-cli/internal/model"
)

var (
	importBenchmarkID int64
	importFile        string
	importSheet       string
	importHeaderRow   int
	importColumns     map[string]string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import companies from a spreadsheet into a benchmark",
	Long:  "Appends the rows of an .xlsx or .csv file to a benchmark. Without --column the benchmark's saved mapping is used.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer e.Close()

		res := e.Service.ImportSpreadsheet(ctx, importBenchmarkID, importFile, importMapping())
		if err := resultErr(res); err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.Int64("benchmark_id", importBenchmarkID),
			zap.Int64("imported", res.Data.Imported),
			zap.Int("skipped", res.Data.Skipped),
			zap.String("file", importFile),
		)
		return nil
	},
}

// importMapping builds mapping settings from the flags, or returns nil when
// no columns were given.
func importMapping() *model.MappingSettings {
	if len(importColumns) == 0 {
		return nil
	}
	return &model.MappingSettings{
		SheetName: importSheet,
		HeaderRow: importHeaderRow,
		Columns:   importColumns,
	}
}

func init() {
	importCmd.Flags().Int64Var(&importBenchmarkID, "benchmark", 0, "benchmark ID (required)")
	importCmd.Flags().StringVar(&importFile, "file", "", "path to .xlsx or .csv file (required)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "worksheet name (default first sheet)")
	importCmd.Flags().IntVar(&importHeaderRow, "header-row", 1, "1-based row holding the column headers")
	importCmd.Flags().StringToStringVar(&importColumns, "column", nil, "field=Header mapping, repeatable")
	_ = importCmd.MarkFlagRequired("benchmark")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
