package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/sells-group/benchmark-cli/internal/action"
	"github.com/sells-group/benchmark-cli/internal/category"
	"github.com/sells-group/benchmark-cli/internal/model"
	"github.com/sells-group/benchmark-cli/internal/workspace"
)

// workspaceFor loads the workspace named by the benchmarkID URL parameter,
// writing the error response itself when it cannot.
func (s *Server) workspaceFor(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	id, valid := idParam(w, r, "benchmarkID")
	if !valid {
		return nil, false
	}
	ws, err := s.workspaces.Get(r.Context(), id)
	switch {
	case err == nil:
		return ws, true
	case errors.Is(err, workspace.ErrBenchmarkNotFound):
		fail(w, http.StatusNotFound, "Benchmark not found.")
	default:
		zap.L().Error("server: load workspace", zap.Int64("benchmark_id", id), zap.Error(err))
		fail(w, http.StatusInternalServerError, "Could not load the companies. Please try again.")
	}
	return nil, false
}

// editFailed reports a rejected workspace edit.
func editFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, workspace.ErrCompanyNotFound) {
		fail(w, http.StatusNotFound, "Company not found.")
		return
	}
	root := err
	for next := errors.Unwrap(root); next != nil; next = errors.Unwrap(root) {
		root = next
	}
	fail(w, http.StatusUnprocessableEntity, action.ResolveMessage(root))
}

func (s *Server) listCompanies(w http.ResponseWriter, r *http.Request) {
	ws, found := s.workspaceFor(w, r)
	if !found {
		return
	}
	ok(w, ws.Entries())
}

func (s *Server) addCompany(w http.ResponseWriter, r *http.Request) {
	ws, found := s.workspaceFor(w, r)
	if !found {
		return
	}
	var patch map[string]*string
	if !decode(w, r, &patch) {
		return
	}
	e, err := ws.Add(patch)
	if err != nil {
		editFailed(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, action.Result[workspace.Entry]{Data: e})
}

func (s *Server) editCompany(w http.ResponseWriter, r *http.Request) {
	ws, found := s.workspaceFor(w, r)
	if !found {
		return
	}
	id, valid := idParam(w, r, "companyID")
	if !valid {
		return
	}
	var patch map[string]*string
	if !decode(w, r, &patch) {
		return
	}
	e, err := ws.Edit(id, patch)
	if err != nil {
		editFailed(w, err)
		return
	}
	ok(w, e)
}

func (s *Server) discardCompany(w http.ResponseWriter, r *http.Request) {
	ws, found := s.workspaceFor(w, r)
	if !found {
		return
	}
	id, valid := idParam(w, r, "companyID")
	if !valid {
		return
	}
	if err := ws.Discard(id); err != nil {
		editFailed(w, err)
		return
	}
	e, err := ws.Entry(id)
	if err != nil {
		// Unsaved rows are gone after a discard.
		ok[*workspace.Entry](w, nil)
		return
	}
	ok(w, &e)
}

func (s *Server) saveCompanies(w http.ResponseWriter, r *http.Request) {
	ws, found := s.workspaceFor(w, r)
	if !found {
		return
	}
	res, err := ws.Save(r.Context())
	if err != nil {
		msg := "Some companies could not be saved. Please try again."
		writeJSON(w, http.StatusOK, action.Result[*workspace.SaveResult]{Data: res, Error: &msg})
		return
	}
	ok(w, res)
}

func (s *Server) refreshCompanies(w http.ResponseWriter, r *http.Request) {
	ws, found := s.workspaceFor(w, r)
	if !found {
		return
	}
	if err := ws.Refresh(r.Context()); err != nil {
		zap.L().Error("server: refresh workspace", zap.Int64("benchmark_id", ws.BenchmarkID()), zap.Error(err))
		fail(w, http.StatusInternalServerError, "Could not refresh the companies. Please try again.")
		return
	}
	ok(w, ws.Entries())
}

func (s *Server) selectCompanies(w http.ResponseWriter, r *http.Request) {
	ws, found := s.workspaceFor(w, r)
	if !found {
		return
	}
	var body struct {
		IDs      []int64 `json:"ids"`
		Selected bool    `json:"selected"`
	}
	if !decode(w, r, &body) {
		return
	}
	ws.Select(body.Selected, body.IDs...)
	ok(w, ws.Selected())
}

func (s *Server) deleteCompanies(w http.ResponseWriter, r *http.Request) {
	ws, found := s.workspaceFor(w, r)
	if !found {
		return
	}
	var body idsBody
	if !decode(w, r, &body) {
		return
	}
	res := s.svc.DeleteCompanies(r.Context(), body.IDs)
	if res.OK() {
		ws.Forget(body.IDs...)
	}
	respond(w, res)
}

// unmarkUnstarted clears the optimistic flag of every requested row the
// backend did not accept.
func unmarkUnstarted(ws *workspace.Workspace, ids []int64, sum *action.StartSummary) {
	if sum == nil {
		ws.Unmark(ids...)
		return
	}
	started := make(map[int64]bool, len(sum.Started))
	for _, id := range sum.Started {
		started[id] = true
	}
	var rest []int64
	for _, id := range ids {
		if !started[id] {
			rest = append(rest, id)
		}
	}
	ws.Unmark(rest...)
}

func (s *Server) startWebSearch(w http.ResponseWriter, r *http.Request) {
	ws, found := s.workspaceFor(w, r)
	if !found {
		return
	}
	var body idsBody
	if !decode(w, r, &body) {
		return
	}
	ws.MarkWebSearchStarted(body.IDs...)
	res := s.svc.StartWebSearch(r.Context(), ws.BenchmarkID(), body.IDs)
	unmarkUnstarted(ws, body.IDs, res.Data)
	s.refresh(r.Context(), ws.BenchmarkID())
	respond(w, res)
}

func (s *Server) startAnalysis(w http.ResponseWriter, r *http.Request) {
	ws, found := s.workspaceFor(w, r)
	if !found {
		return
	}
	var body idsBody
	if !decode(w, r, &body) {
		return
	}
	ws.MarkAnalysisStarted(body.IDs...)
	res := s.svc.StartComparabilityAnalysis(r.Context(), ws.BenchmarkID(), body.IDs)
	unmarkUnstarted(ws, body.IDs, res.Data)
	s.refresh(r.Context(), ws.BenchmarkID())
	respond(w, res)
}

// importSpreadsheet accepts a multipart upload with a "file" part and an
// optional "mapping" part holding the mapping settings as JSON.
func (s *Server) importSpreadsheet(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "benchmarkID")
	if !valid {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		fail(w, http.StatusBadRequest, "The upload is too large or malformed.")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		fail(w, http.StatusBadRequest, "Attach the spreadsheet as the file field.")
		return
	}
	defer file.Close() //nolint:errcheck

	var mapping *model.MappingSettings
	if raw := r.FormValue("mapping"); raw != "" {
		mapping = &model.MappingSettings{}
		if err := json.Unmarshal([]byte(raw), mapping); err != nil {
			fail(w, http.StatusBadRequest, "The mapping is not valid JSON.")
			return
		}
	}

	dir, err := os.MkdirTemp("", "benchmark-import-")
	if err != nil {
		zap.L().Error("server: create upload dir", zap.Error(err))
		fail(w, http.StatusInternalServerError, "Could not store the upload. Please try again.")
		return
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	path := filepath.Join(dir, filepath.Base(header.Filename))
	if err := saveUpload(path, file); err != nil {
		zap.L().Error("server: save upload", zap.String("file", header.Filename), zap.Error(err))
		fail(w, http.StatusInternalServerError, "Could not store the upload. Please try again.")
		return
	}

	res := s.svc.ImportSpreadsheet(r.Context(), id, path, mapping)
	if res.OK() {
		s.refresh(r.Context(), id)
	}
	respond(w, res)
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path) //nolint:gosec // path is inside a fresh temp dir
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close() //nolint:errcheck
		return err
	}
	return dst.Close()
}

func (s *Server) validateWebsite(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "companyID")
	if !valid {
		return
	}
	ctx := r.Context()
	ws := s.companyWorkspace(r, id)
	if ws != nil {
		ws.MarkValidationStarted(id)
	}
	res := s.svc.ValidateWebsite(ctx, id)
	if res.OK() {
		s.syncCompany(ctx, &res.Data.Company)
		if ws != nil {
			ws.MarkValidationDone(id)
		}
	} else if ws != nil {
		ws.Unmark(id)
	}
	respond(w, res)
}

// companyWorkspace returns the loaded workspace holding a company, or nil.
func (s *Server) companyWorkspace(r *http.Request, companyID int64) *workspace.Workspace {
	c, err := s.svc.Store().GetCompany(r.Context(), companyID)
	if err != nil || c == nil {
		return nil
	}
	ws, _ := s.workspaces.Peek(c.BenchmarkID)
	return ws
}

func (s *Server) setReview(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "companyID")
	if !valid {
		return
	}
	var in action.ReviewInput
	if !decode(w, r, &in) {
		return
	}
	res := s.svc.SetHumanReview(r.Context(), id, in)
	if res.OK() {
		s.syncCompany(r.Context(), &res.Data.Company)
	}
	respond(w, res)
}

func (s *Server) translate(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "companyID")
	if !valid {
		return
	}
	var in action.TranslateInput
	if !decode(w, r, &in) {
		return
	}
	ctx := r.Context()
	res := s.svc.TranslateDescription(ctx, id, in)
	if res.OK() && res.Data.Saved {
		if c, err := s.svc.Store().GetCompany(ctx, id); err == nil && c != nil {
			s.syncCompany(ctx, c)
		}
	}
	respond(w, res)
}

func (s *Server) substantiate(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "companyID")
	if !valid {
		return
	}
	var body struct {
		Factor category.Factor `json:"factor"`
	}
	if !decode(w, r, &body) {
		return
	}
	respond(w, s.svc.SubstantiateDecision(r.Context(), id, body.Factor))
}
