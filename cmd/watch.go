package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/benchmark-cli/internal/category"
	"github.com/sells-group/benchmark-cli/internal/model"
	"github.com/sells-group/benchmark-cli/internal/workspace"
)

var (
	watchBenchmarkID int64
	watchInterval    time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print category changes of a benchmark's companies as analysis progresses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer e.Close()

		ws := workspace.New(e.Store, watchBenchmarkID, workspace.Options{
			MinDescriptionWords: cfg.Category.MinDescriptionWords,
		})
		if err := ws.Load(ctx); err != nil {
			return eris.Wrap(err, "watch: load benchmark")
		}

		interval := watchInterval
		if interval <= 0 {
			interval = cfg.Workspace.RefreshInterval
		}
		zap.L().Info("watching benchmark",
			zap.Int64("benchmark_id", watchBenchmarkID),
			zap.Duration("interval", interval),
		)

		prev := snapshot(ws.Entries())
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := ws.Refresh(ctx); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					if errors.Is(err, workspace.ErrBenchmarkNotFound) {
						return eris.Wrap(err, "watch")
					}
					zap.L().Warn("watch: refresh failed", zap.Error(err))
					continue
				}
				next := snapshot(ws.Entries())
				writeChanges(os.Stdout, diffSnapshots(prev, next))
				prev = next
			}
		}
	},
}

func init() {
	watchCmd.Flags().Int64Var(&watchBenchmarkID, "benchmark", 0, "benchmark ID (required)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "refresh interval (default from config)")
	_ = watchCmd.MarkFlagRequired("benchmark")
	rootCmd.AddCommand(watchCmd)
}

type companyState struct {
	Name       string
	Categories category.Values
}

// categoryChange is one company moving between categories in a dimension.
type categoryChange struct {
	CompanyID int64
	Name      string
	Dimension category.Dimension
	From      category.Key
	To        category.Key
}

func snapshot(entries []workspace.Entry) map[int64]companyState {
	out := make(map[int64]companyState, len(entries))
	for _, e := range entries {
		out[e.ID] = companyState{Name: model.Str(e.Name), Categories: e.Categories}
	}
	return out
}

// diffSnapshots lists the category moves between two snapshots, ordered by
// company then dimension. Companies that appear or disappear are reported
// against an empty key.
func diffSnapshots(prev, next map[int64]companyState) []categoryChange {
	ids := make([]int64, 0, len(next)+len(prev))
	for id := range next {
		ids = append(ids, id)
	}
	for id := range prev {
		if _, found := next[id]; !found {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	var out []categoryChange
	for _, id := range ids {
		p, n := prev[id], next[id]
		name := n.Name
		if name == "" {
			name = p.Name
		}
		for _, d := range category.Dimensions() {
			from, to := p.Categories.Key(d), n.Categories.Key(d)
			if from != to {
				out = append(out, categoryChange{CompanyID: id, Name: name, Dimension: d, From: from, To: to})
			}
		}
	}
	return out
}

func writeChanges(out io.Writer, changes []categoryChange) {
	for _, c := range changes {
		from, to := string(c.From), string(c.To)
		if from == "" {
			from = "-"
		}
		if to == "" {
			to = "-"
		}
		_, _ = fmt.Fprintf(out, "%s\t%d\t%s\t%s\t%s -> %s\n",
			time.Now().Format("15:04:05"), c.CompanyID, truncate(c.Name, 30), c.Dimension, from, to)
	}
}
