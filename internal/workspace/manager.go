package workspace

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/benchmark-cli/internal/store"
)

// Manager holds one workspace per benchmark, loading each on first use.
type Manager struct {
	store store.Store
	opts  Options

	mu         sync.Mutex
	workspaces map[int64]*Workspace
}

// NewManager creates an empty manager.
func NewManager(st store.Store, opts Options) *Manager {
	return &Manager{store: st, opts: opts, workspaces: make(map[int64]*Workspace)}
}

// Get returns the workspace of a benchmark, loading it if needed.
func (m *Manager) Get(ctx context.Context, benchmarkID int64) (*Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, found := m.workspaces[benchmarkID]; found {
		return w, nil
	}
	w := New(m.store, benchmarkID, m.opts)
	if err := w.Load(ctx); err != nil {
		return nil, err
	}
	m.workspaces[benchmarkID] = w
	return w, nil
}

// Peek returns the workspace of a benchmark only if it is already loaded.
func (m *Manager) Peek(benchmarkID int64) (*Workspace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, found := m.workspaces[benchmarkID]
	return w, found
}

// Drop forgets the workspace of a benchmark, discarding unsaved edits.
func (m *Manager) Drop(benchmarkID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workspaces, benchmarkID)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrBenchmarkNotFound)
}

func (m *Manager) all() []*Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Workspace, 0, len(m.workspaces))
	for _, w := range m.workspaces {
		out = append(out, w)
	}
	return out
}

// RefreshAll refreshes every loaded workspace. Workspaces whose benchmark
// was deleted are dropped.
func (m *Manager) RefreshAll(ctx context.Context) {
	for _, w := range m.all() {
		err := w.Refresh(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return
		case isNotFound(err):
			zap.L().Info("workspace: benchmark deleted, dropping workspace", zap.Int64("benchmark_id", w.BenchmarkID()))
			m.Drop(w.BenchmarkID())
		default:
			zap.L().Warn("workspace: refresh failed", zap.Int64("benchmark_id", w.BenchmarkID()), zap.Error(err))
		}
	}
}

// Run refreshes all workspaces every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	log := zap.L().With(zap.String("component", "workspace.manager"))
	log.Info("starting workspace refresher", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("workspace refresher stopped")
			return
		case <-ticker.C:
			m.RefreshAll(ctx)
		}
	}
}
