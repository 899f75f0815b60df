package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/benchmark-cli/internal/model"
)

var (
	strategyFile     string
	strategyExportID int64
)

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Manage comparability strategies",
}

var strategyImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Create strategies from a YAML file",
	Long:  "Reads one strategy per YAML document (separated by ---) and creates each of them.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		f, err := os.Open(strategyFile)
		if err != nil {
			return eris.Wrap(err, "strategy import: open file")
		}
		defer f.Close() //nolint:errcheck

		strategies, err := parseStrategies(f)
		if err != nil {
			return err
		}

		e, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer e.Close()

		for _, st := range strategies {
			res := e.Service.CreateStrategy(ctx, st)
			if err := resultErr(res); err != nil {
				return eris.Wrapf(err, "strategy import: %q", st.Name)
			}
			zap.L().Info("strategy created", zap.Int64("id", res.Data.ID), zap.String("name", res.Data.Name))
		}
		return nil
	},
}

var strategyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List strategies",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer e.Close()

		res := e.Service.ListStrategies(ctx)
		if err := resultErr(res); err != nil {
			return err
		}
		formatStrategies(os.Stdout, res.Data)
		return nil
	},
}

var strategyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print a strategy as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer e.Close()

		res := e.Service.GetStrategy(ctx, strategyExportID)
		if err := resultErr(res); err != nil {
			return err
		}
		return writeStrategy(os.Stdout, res.Data)
	},
}

func init() {
	strategyImportCmd.Flags().StringVar(&strategyFile, "file", "", "path to YAML file (required)")
	_ = strategyImportCmd.MarkFlagRequired("file")
	strategyExportCmd.Flags().Int64Var(&strategyExportID, "id", 0, "strategy ID (required)")
	_ = strategyExportCmd.MarkFlagRequired("id")

	strategyCmd.AddCommand(strategyImportCmd, strategyListCmd, strategyExportCmd)
	rootCmd.AddCommand(strategyCmd)
}

// parseStrategies decodes every YAML document in r as a strategy.
func parseStrategies(r io.Reader) ([]model.Strategy, error) {
	dec := yaml.NewDecoder(r)
	var out []model.Strategy
	for {
		var st model.Strategy
		err := dec.Decode(&st)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "strategy import: parse document %d", len(out)+1)
		}
		out = append(out, st)
	}
	if len(out) == 0 {
		return nil, eris.New("strategy import: file holds no strategies")
	}
	return out, nil
}

func writeStrategy(out io.Writer, st *model.Strategy) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(st); err != nil {
		return eris.Wrap(err, "strategy export: encode")
	}
	return enc.Close()
}

func formatStrategies(out io.Writer, strategies []model.Strategy) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tRELAXED\tINDEPENDENCE\tUPDATED")
	_, _ = fmt.Fprintln(w, "--\t----\t-------\t------------\t-------")
	for _, st := range strategies {
		relaxed := "-"
		switch {
		case st.RelaxedProducts && st.RelaxedFunctions:
			relaxed = "products,functions"
		case st.RelaxedProducts:
			relaxed = "products"
		case st.RelaxedFunctions:
			relaxed = "functions"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\n",
			st.ID,
			truncate(st.Name, 40),
			relaxed,
			st.IndependenceEnabled,
			st.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}
