package server

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/benchmark-cli/internal/action"
	"github.com/sells-group/benchmark-cli/internal/model"
)

func (s *Server) listBenchmarks(w http.ResponseWriter, r *http.Request) {
	respond(w, s.svc.ListBenchmarks(r.Context()))
}

func (s *Server) createBenchmark(w http.ResponseWriter, r *http.Request) {
	var in action.BenchmarkInput
	if !decode(w, r, &in) {
		return
	}
	res := s.svc.CreateBenchmark(r.Context(), in)
	if res.OK() {
		writeJSON(w, http.StatusCreated, res)
		return
	}
	respond(w, res)
}

func (s *Server) getBenchmark(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "benchmarkID")
	if !valid {
		return
	}
	res := s.svc.GetBenchmark(r.Context(), id)
	if !res.OK() && *res.Error == "Benchmark not found." {
		writeJSON(w, http.StatusNotFound, res)
		return
	}
	respond(w, res)
}

func (s *Server) updateBenchmark(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "benchmarkID")
	if !valid {
		return
	}
	var in action.BenchmarkInput
	if !decode(w, r, &in) {
		return
	}
	respond(w, s.svc.UpdateBenchmark(r.Context(), id, in))
}

func (s *Server) deleteBenchmark(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "benchmarkID")
	if !valid {
		return
	}
	res := s.svc.DeleteBenchmark(r.Context(), id)
	if res.OK() {
		s.workspaces.Drop(id)
	}
	respond(w, res)
}

func (s *Server) attachStrategy(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "benchmarkID")
	if !valid {
		return
	}
	var body struct {
		StrategyID int64 `json:"strategy_id"`
	}
	if !decode(w, r, &body) {
		return
	}
	res := s.svc.AttachStrategy(r.Context(), id, body.StrategyID)
	if res.OK() {
		s.refresh(r.Context(), id)
	}
	respond(w, res)
}

func (s *Server) saveMapping(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "benchmarkID")
	if !valid {
		return
	}
	var m model.MappingSettings
	if !decode(w, r, &m) {
		return
	}
	respond(w, s.svc.SaveMappingSettings(r.Context(), id, m))
}

// refresh re-reads a loaded workspace after the benchmark or its companies
// changed behind it.
func (s *Server) refresh(ctx context.Context, benchmarkID int64) {
	ws, found := s.workspaces.Peek(benchmarkID)
	if !found {
		return
	}
	if err := ws.Refresh(ctx); err != nil {
		zap.L().Warn("server: refresh workspace", zap.Int64("benchmark_id", benchmarkID), zap.Error(err))
	}
}
