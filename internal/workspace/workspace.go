// Package workspace keeps the editable, per-benchmark company list the
// dashboard works on: local edits, unsaved rows, selection, and the
// optimistic "started" flags shown until the backend catches up.
package workspace

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/benchmark-cli/internal/category"
	"github.com/sells-group/benchmark-cli/internal/changeset"
	"github.com/sells-group/benchmark-cli/internal/model"
	"github.com/sells-group/benchmark-cli/internal/store"
)

var (
	// ErrBenchmarkNotFound is returned by Load when the benchmark is gone.
	ErrBenchmarkNotFound = eris.New("workspace: benchmark not found")
	// ErrCompanyNotFound is returned for IDs the workspace does not hold.
	ErrCompanyNotFound = eris.New("workspace: company not found")
)

// Entry is a snapshot of one row as the dashboard renders it.
type Entry struct {
	model.Company
	View       model.ViewState        `json:"view"`
	Searched   *model.SearchedCompany `json:"searched,omitempty"`
	Categories category.Values        `json:"categories"`
	Changes    changeset.Changes      `json:"changes,omitempty"`
}

// Dirty reports whether the entry has unsaved edits or was never saved.
func (e Entry) Dirty() bool {
	return changeset.IsTemp(e.ID) || e.Changes.Dirty()
}

type row struct {
	company   model.Company
	persisted model.Company
	view      model.ViewState
	searched  *model.SearchedCompany
	changes   changeset.Changes

	// gen is the workspace generation of the last write to this row.
	gen uint64
}

// Options tunes categorization inside the workspace.
type Options struct {
	MinDescriptionWords int
}

// Workspace caches the companies of one benchmark. All methods are safe for
// concurrent use.
type Workspace struct {
	benchmarkID int64
	store       store.Store
	opts        Options
	ids         changeset.TempIDs

	mu        sync.RWMutex
	benchmark *model.Benchmark
	rows      map[int64]*row
	loadedAt  time.Time

	// gen counts writes that a concurrent Refresh must not overwrite.
	gen       uint64
	forgotten map[int64]uint64
}

// New creates an empty workspace. Call Load before use.
func New(st store.Store, benchmarkID int64, opts Options) *Workspace {
	if opts.MinDescriptionWords <= 0 {
		opts.MinDescriptionWords = category.DefaultMinDescriptionWords
	}
	return &Workspace{
		benchmarkID: benchmarkID,
		store:       st,
		opts:        opts,
		rows:        make(map[int64]*row),
		forgotten:   make(map[int64]uint64),
	}
}

// BenchmarkID returns the benchmark the workspace belongs to.
func (w *Workspace) BenchmarkID() int64 { return w.benchmarkID }

// LoadedAt returns when the workspace last read the store.
func (w *Workspace) LoadedAt() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.loadedAt
}

func (w *Workspace) read(ctx context.Context) (*model.Benchmark, []model.Company, map[string]*model.SearchedCompany, error) {
	b, err := w.store.GetBenchmark(ctx, w.benchmarkID)
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "workspace: load benchmark")
	}
	if b == nil {
		return nil, nil, nil, ErrBenchmarkNotFound
	}
	companies, err := w.store.ListCompanies(ctx, w.benchmarkID)
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "workspace: list companies")
	}
	var searchIDs []string
	for _, c := range companies {
		if !model.IsBlank(c.SearchID) {
			searchIDs = append(searchIDs, *c.SearchID)
		}
	}
	searched := map[string]*model.SearchedCompany{}
	if len(searchIDs) > 0 {
		searched, err = w.store.SearchedCompanies(ctx, searchIDs)
		if err != nil {
			return nil, nil, nil, eris.Wrap(err, "workspace: load analysis results")
		}
	}
	return b, companies, searched, nil
}

// Load replaces the workspace contents with the stored companies. Unsaved
// edits and rows are dropped.
func (w *Workspace) Load(ctx context.Context) error {
	b, companies, searched, err := w.read(ctx)
	if err != nil {
		return err
	}

	rows := make(map[int64]*row, len(companies))
	for _, c := range companies {
		rows[c.ID] = &row{
			company:   c.Clone(),
			persisted: c,
			searched:  searched[model.Str(c.SearchID)],
			changes:   changeset.Changes{},
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	for _, r := range rows {
		r.gen = w.gen
	}
	w.benchmark = b
	w.rows = rows
	w.forgotten = make(map[int64]uint64)
	w.loadedAt = time.Now()
	return nil
}

// touch marks r as written at a new generation. mu must be held.
func (w *Workspace) touch(r *row) {
	w.gen++
	r.gen = w.gen
}

// Refresh re-reads the store and merges it into the workspace. Pending edits,
// unsaved rows and view state survive; optimistic flags are cleared once the
// stored state shows the backend picked the work up. Rows written by Save,
// Apply or Forget while the store was being read keep their newer state.
func (w *Workspace) Refresh(ctx context.Context) error {
	w.mu.RLock()
	since := w.gen
	w.mu.RUnlock()

	b, companies, searched, err := w.read(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.benchmark = b
	settings := w.settings()

	next := make(map[int64]*row, len(companies))
	for id, r := range w.rows {
		if changeset.IsTemp(id) || r.gen > since {
			next[id] = r
		}
	}
	for _, c := range companies {
		if _, kept := next[c.ID]; kept {
			continue
		}
		if g, gone := w.forgotten[c.ID]; gone && g > since {
			continue
		}
		r, found := w.rows[c.ID]
		if !found {
			r = &row{changes: changeset.Changes{}}
		}
		prev := r.rebase(c, searched[model.Str(c.SearchID)])
		settle(r, prev, settings)
		next[c.ID] = r
	}
	for id, g := range w.forgotten {
		if g <= since {
			delete(w.forgotten, id)
		}
	}
	w.rows = next
	w.loadedAt = time.Now()
	return nil
}

// rebase replaces the stored copy of a row and replays its pending edits on
// top. Edits matching the new stored value are dropped. The previous stored
// copy is returned.
func (r *row) rebase(c model.Company, searched *model.SearchedCompany) model.Company {
	prev := r.persisted
	pending := r.changes.Patch()
	r.persisted = c.Clone()
	r.company = c.Clone()
	r.searched = searched
	r.changes = changeset.Changes{}
	for name, v := range pending {
		cur, _ := model.GetCompanyField(&r.persisted, name)
		r.changes.Record(name, cur, v)
		_ = model.SetCompanyField(&r.company, name, v)
	}
	return prev
}

// settle clears optimistic flags whose dimension has moved past the state
// the flag was covering for. prev is the stored copy before the last rebase.
func settle(r *row, prev model.Company, settings category.Settings) {
	in := category.Input{Company: &r.company, Searched: r.searched, Settings: settings}
	if r.view.WebSearchInitialized {
		switch category.Evaluate(category.DimWebSearch, in).Key {
		case category.KeyReady, category.KeyFailed:
		default:
			r.view.WebSearchInitialized = false
		}
	}
	if r.view.AcceptRejectInitialized {
		switch category.Evaluate(category.DimAcceptReject, in).Key {
		case category.KeyReady, category.KeyFailed, category.KeyError:
		default:
			r.view.AcceptRejectInitialized = false
		}
	}
	if r.view.URLValidationInitialized && validationChanged(prev, r.persisted) {
		r.view.URLValidationInitialized = false
	}
}

func validationChanged(prev, next model.Company) bool {
	return model.Str(prev.URLValidationInput) != model.Str(next.URLValidationInput) ||
		model.Str(prev.URLValidationURL) != model.Str(next.URLValidationURL) ||
		(prev.URLValidationValid == nil) != (next.URLValidationValid == nil) ||
		(prev.URLValidationValid != nil && *prev.URLValidationValid != *next.URLValidationValid)
}

// settings must be called with mu held.
func (w *Workspace) settings() category.Settings {
	s := category.Settings{MinDescriptionWords: w.opts.MinDescriptionWords}
	if w.benchmark != nil {
		s.IndependenceEnabled = w.benchmark.IndependenceEnabled()
	}
	return s
}

func (w *Workspace) entry(id int64, r *row, settings category.Settings) Entry {
	c := r.company.Clone()
	c.ID = id
	changes := changeset.Changes{}
	for k, v := range r.changes {
		changes[k] = v
	}
	return Entry{
		Company:  c,
		View:     r.view,
		Searched: r.searched,
		Categories: category.Categorize(category.Input{
			Company:  &c,
			Searched: r.searched,
			View:     r.view,
			Settings: settings,
		}),
		Changes: changes,
	}
}

// Entries returns every row, saved rows by ID followed by unsaved rows in
// the order they were added.
func (w *Workspace) Entries() []Entry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	settings := w.settings()

	ids := make([]int64, 0, len(w.rows))
	for id := range w.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if changeset.IsTemp(a) != changeset.IsTemp(b) {
			return !changeset.IsTemp(a)
		}
		if changeset.IsTemp(a) {
			return a > b
		}
		return a < b
	})

	out := make([]Entry, len(ids))
	for i, id := range ids {
		out[i] = w.entry(id, w.rows[id], settings)
	}
	return out
}

// Entry returns one row.
func (w *Workspace) Entry(id int64) (Entry, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, found := w.rows[id]
	if !found {
		return Entry{}, ErrCompanyNotFound
	}
	return w.entry(id, r, w.settings()), nil
}

// Add creates an unsaved row with a temporary ID.
func (w *Workspace) Add(patch map[string]*string) (Entry, error) {
	r := &row{
		company:   model.Company{BenchmarkID: w.benchmarkID},
		persisted: model.Company{BenchmarkID: w.benchmarkID},
		changes:   changeset.Changes{},
	}
	if err := apply(r, patch); err != nil {
		return Entry{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.ids.Next()
	r.company.ID = id
	w.rows[id] = r
	return w.entry(id, r, w.settings()), nil
}

// Edit applies patch to a row and records the changes against the stored
// values.
func (w *Workspace) Edit(id int64, patch map[string]*string) (Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, found := w.rows[id]
	if !found {
		return Entry{}, ErrCompanyNotFound
	}
	if err := apply(r, patch); err != nil {
		return Entry{}, err
	}
	return w.entry(id, r, w.settings()), nil
}

func apply(r *row, patch map[string]*string) error {
	changed, err := model.ApplyCompanyPatch(&r.company, patch)
	if err != nil {
		return eris.Wrap(err, "workspace: edit")
	}
	for _, name := range changed {
		old, _ := model.GetCompanyField(&r.persisted, name)
		cur, _ := model.GetCompanyField(&r.company, name)
		r.changes.Record(name, old, cur)
	}
	return nil
}

// Discard drops the pending edits of a row. Unsaved rows are removed.
func (w *Workspace) Discard(id int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, found := w.rows[id]
	if !found {
		return ErrCompanyNotFound
	}
	if changeset.IsTemp(id) {
		delete(w.rows, id)
		return nil
	}
	r.company = r.persisted.Clone()
	r.changes = changeset.Changes{}
	return nil
}

// Forget removes rows deleted elsewhere without waiting for a refresh.
func (w *Workspace) Forget(ids ...int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	for _, id := range ids {
		delete(w.rows, id)
		w.forgotten[id] = w.gen
	}
}

// SaveResult reports what Save wrote.
type SaveResult struct {
	// Created maps temporary IDs to the IDs the store assigned.
	Created map[int64]int64 `json:"created"`
	Updated []int64         `json:"updated"`
	Failed  []int64         `json:"failed"`
}

// Save persists unsaved rows and the dirty fields of saved rows. Rows that
// fail keep their pending edits; the last error is returned.
func (w *Workspace) Save(ctx context.Context) (*SaveResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	res := &SaveResult{Created: map[int64]int64{}, Updated: []int64{}, Failed: []int64{}}
	ids := make([]int64, 0, len(w.rows))
	for id, r := range w.rows {
		if changeset.IsTemp(id) || r.changes.Dirty() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var lastErr error
	for _, id := range ids {
		r := w.rows[id]
		if changeset.IsTemp(id) {
			c := r.company.Clone()
			c.ID = 0
			if err := w.store.CreateCompany(ctx, &c); err != nil {
				zap.L().Error("workspace: create company", zap.Int64("temp_id", id), zap.Error(err))
				res.Failed = append(res.Failed, id)
				lastErr = err
				continue
			}
			r.company = c.Clone()
			r.persisted = c
			r.changes = changeset.Changes{}
			w.touch(r)
			delete(w.rows, id)
			w.rows[c.ID] = r
			res.Created[id] = c.ID
			continue
		}

		fields := make(map[string]any, len(r.changes))
		for name, v := range r.changes.Patch() {
			fields[name] = v
		}
		if err := w.store.UpdateCompanyFields(ctx, id, fields); err != nil {
			zap.L().Error("workspace: update company", zap.Int64("company_id", id), zap.Error(err))
			res.Failed = append(res.Failed, id)
			lastErr = err
			continue
		}
		r.persisted = r.company.Clone()
		r.changes = changeset.Changes{}
		w.touch(r)
		res.Updated = append(res.Updated, id)
	}

	if lastErr != nil {
		return res, eris.Wrapf(lastErr, "workspace: save %d of %d rows failed", len(res.Failed), len(ids))
	}
	zap.L().Debug("workspace: saved",
		zap.Int64("benchmark_id", w.benchmarkID),
		zap.Int("created", len(res.Created)),
		zap.Int("updated", len(res.Updated)),
	)
	return res, nil
}

// Dirty reports whether anything is waiting to be saved.
func (w *Workspace) Dirty() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for id, r := range w.rows {
		if changeset.IsTemp(id) || r.changes.Dirty() {
			return true
		}
	}
	return false
}

func (w *Workspace) update(ids []int64, fn func(v *model.ViewState)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range ids {
		if r, found := w.rows[id]; found {
			fn(&r.view)
		}
	}
}

// MarkWebSearchStarted flags rows whose web search was just requested.
func (w *Workspace) MarkWebSearchStarted(ids ...int64) {
	w.update(ids, func(v *model.ViewState) { v.WebSearchInitialized = true })
}

// MarkAnalysisStarted flags rows whose comparability analysis was just requested.
func (w *Workspace) MarkAnalysisStarted(ids ...int64) {
	w.update(ids, func(v *model.ViewState) { v.AcceptRejectInitialized = true })
}

// MarkValidationStarted flags rows whose website validation is running.
func (w *Workspace) MarkValidationStarted(ids ...int64) {
	w.update(ids, func(v *model.ViewState) { v.URLValidationInitialized = true })
}

// MarkValidationDone clears the validating flag once a validation returned,
// whether or not the stored result changed.
func (w *Workspace) MarkValidationDone(ids ...int64) {
	w.update(ids, func(v *model.ViewState) { v.URLValidationInitialized = false })
}

// Unmark clears every optimistic flag, for requests that did not go through.
func (w *Workspace) Unmark(ids ...int64) {
	w.update(ids, func(v *model.ViewState) {
		v.WebSearchInitialized = false
		v.AcceptRejectInitialized = false
		v.URLValidationInitialized = false
	})
}

// Select sets the selection flag of the given rows.
func (w *Workspace) Select(selected bool, ids ...int64) {
	w.update(ids, func(v *model.ViewState) { v.Selected = selected })
}

// Expand sets the expanded flag of the given rows.
func (w *Workspace) Expand(expanded bool, ids ...int64) {
	w.update(ids, func(v *model.ViewState) { v.Expanded = expanded })
}

// Selected returns the IDs of the selected rows in ascending order.
func (w *Workspace) Selected() []int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := []int64{}
	for id, r := range w.rows {
		if r.view.Selected {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Apply updates the cached copy of a company after an action changed it in
// the store. Pending edits to other fields are kept.
func (w *Workspace) Apply(c model.Company, searched *model.SearchedCompany) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, found := w.rows[c.ID]
	if !found {
		r = &row{changes: changeset.Changes{}}
		w.rows[c.ID] = r
	}
	prev := r.rebase(c, searched)
	settle(r, prev, w.settings())
	w.touch(r)
	delete(w.forgotten, c.ID)
}

// Run refreshes the workspace every interval until ctx is cancelled.
func (w *Workspace) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	log := zap.L().With(zap.String("component", "workspace"), zap.Int64("benchmark_id", w.benchmarkID))
	log.Debug("starting auto refresh", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("auto refresh stopped")
			return
		case <-ticker.C:
			if err := w.Refresh(ctx); err != nil {
				log.Warn("workspace: refresh failed", zap.Error(err))
			}
		}
	}
}

// DefaultRefreshInterval is how often Run polls the store.
const DefaultRefreshInterval = 30 * time.Second
