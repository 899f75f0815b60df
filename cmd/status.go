package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/benchmark-cli/internal/action"
	"github.com/sells-group/benchmark-cli/internal/category"
	"github.com/sells-group/benchmark-cli/internal/model"
)

var (
	statusBenchmarkID int64
	statusSummary     bool
)

// statusDimensions are the columns shown by the status table.
var statusDimensions = []category.Dimension{
	category.DimInput,
	category.DimWebsite,
	category.DimWebSearch,
	category.DimAcceptReject,
	category.DimHumanReview,
	category.DimReviewPriority,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the workflow status of every company in a benchmark",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer e.Close()

		res := e.Service.ListCompanies(ctx, statusBenchmarkID)
		if err := resultErr(res); err != nil {
			return err
		}
		if len(res.Data) == 0 {
			zap.L().Info("benchmark has no companies, run 'import' to add some", zap.Int64("benchmark_id", statusBenchmarkID))
			return nil
		}

		if statusSummary {
			formatStatusSummary(os.Stdout, res.Data)
			return nil
		}
		formatCompanies(os.Stdout, res.Data)
		return nil
	},
}

func init() {
	statusCmd.Flags().Int64Var(&statusBenchmarkID, "benchmark", 0, "benchmark ID (required)")
	statusCmd.Flags().BoolVar(&statusSummary, "summary", false, "print category counts per dimension instead of one row per company")
	_ = statusCmd.MarkFlagRequired("benchmark")
	rootCmd.AddCommand(statusCmd)
}

// formatCompanies writes one row per company with its category keys.
func formatCompanies(out io.Writer, companies []action.CompanyView) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprint(w, "ID\tNAME\tCOUNTRY")
	for _, d := range statusDimensions {
		_, _ = fmt.Fprintf(w, "\t%s", d)
	}
	_, _ = fmt.Fprintln(w)

	for _, c := range companies {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s", c.ID, truncate(model.Str(c.Name), 30), model.Str(c.Country))
		for _, d := range statusDimensions {
			_, _ = fmt.Fprintf(w, "\t%s", c.Categories.Key(d))
		}
		_, _ = fmt.Fprintln(w)
	}
	_ = w.Flush()
}

// formatStatusSummary writes how many companies sit in each category.
func formatStatusSummary(out io.Writer, companies []action.CompanyView) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DIMENSION\tCATEGORY\tCOMPANIES")
	_, _ = fmt.Fprintln(w, "---------\t--------\t---------")
	for _, d := range category.Dimensions() {
		counts := make(map[category.Key]int)
		var order []category.Key
		for _, c := range companies {
			k := c.Categories.Key(d)
			if counts[k] == 0 {
				order = append(order, k)
			}
			counts[k]++
		}
		for _, k := range order {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\n", d, k, counts[k])
		}
	}
	_ = w.Flush()
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
