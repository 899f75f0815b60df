package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/benchmark-cli/internal/action"
	"github.com/sells-group/benchmark-cli/internal/model"
)

var (
	benchmarkInput      action.BenchmarkInput
	benchmarkID         int64
	benchmarkStrategyID int64
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Manage benchmark studies",
}

var benchmarkCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a benchmark",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer e.Close()

		res := e.Service.CreateBenchmark(ctx, benchmarkInput)
		if err := resultErr(res); err != nil {
			return err
		}
		zap.L().Info("benchmark created", zap.Int64("id", res.Data.ID), zap.String("name", res.Data.Name))
		return nil
	},
}

var benchmarkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List benchmarks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer e.Close()

		res := e.Service.ListBenchmarks(ctx)
		if err := resultErr(res); err != nil {
			return err
		}
		formatBenchmarks(os.Stdout, res.Data)
		return nil
	},
}

var benchmarkAttachCmd = &cobra.Command{
	Use:   "attach-strategy",
	Short: "Copy a strategy onto a benchmark",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer e.Close()

		res := e.Service.AttachStrategy(ctx, benchmarkID, benchmarkStrategyID)
		if err := resultErr(res); err != nil {
			return err
		}
		zap.L().Info("strategy attached", zap.Int64("benchmark_id", benchmarkID), zap.Int64("strategy_id", benchmarkStrategyID))
		return nil
	},
}

func init() {
	benchmarkCreateCmd.Flags().StringVar(&benchmarkInput.Name, "name", "", "benchmark name (required)")
	benchmarkCreateCmd.Flags().StringVar(&benchmarkInput.Client, "client", "", "client the study is for")
	benchmarkCreateCmd.Flags().IntVar(&benchmarkInput.Year, "year", 0, "fiscal year under review")
	_ = benchmarkCreateCmd.MarkFlagRequired("name")

	benchmarkAttachCmd.Flags().Int64Var(&benchmarkID, "benchmark", 0, "benchmark ID (required)")
	benchmarkAttachCmd.Flags().Int64Var(&benchmarkStrategyID, "strategy", 0, "strategy ID (required)")
	_ = benchmarkAttachCmd.MarkFlagRequired("benchmark")
	_ = benchmarkAttachCmd.MarkFlagRequired("strategy")

	benchmarkCmd.AddCommand(benchmarkCreateCmd, benchmarkListCmd, benchmarkAttachCmd)
	rootCmd.AddCommand(benchmarkCmd)
}

func formatBenchmarks(out io.Writer, benchmarks []model.Benchmark) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCLIENT\tYEAR\tSTRATEGY\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t----\t--------\t-------")
	for _, b := range benchmarks {
		year, strategy := "-", "-"
		if b.Year > 0 {
			year = fmt.Sprint(b.Year)
		}
		if b.Strategy != nil {
			strategy = truncate(b.Strategy.Name, 30)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			b.ID,
			truncate(b.Name, 40),
			b.Client,
			year,
			strategy,
			b.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}
