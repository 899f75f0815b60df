package server

import (
	"net/http"

	"github.com/sells-group/benchmark-cli/internal/action"
	"github.com/sells-group/benchmark-cli/internal/model"
)

func (s *Server) listStrategies(w http.ResponseWriter, r *http.Request) {
	respond(w, s.svc.ListStrategies(r.Context()))
}

func (s *Server) createStrategy(w http.ResponseWriter, r *http.Request) {
	var st model.Strategy
	if !decode(w, r, &st) {
		return
	}
	res := s.svc.CreateStrategy(r.Context(), st)
	if res.OK() {
		writeJSON(w, http.StatusCreated, res)
		return
	}
	respond(w, res)
}

func (s *Server) getStrategy(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "strategyID")
	if !valid {
		return
	}
	respond(w, s.svc.GetStrategy(r.Context(), id))
}

func (s *Server) updateStrategy(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "strategyID")
	if !valid {
		return
	}
	var st model.Strategy
	if !decode(w, r, &st) {
		return
	}
	respond(w, s.svc.UpdateStrategy(r.Context(), id, st))
}

func (s *Server) deleteStrategy(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "strategyID")
	if !valid {
		return
	}
	respond(w, s.svc.DeleteStrategy(r.Context(), id))
}

func (s *Server) generateStrategy(w http.ResponseWriter, r *http.Request) {
	var brief action.StrategyBrief
	if !decode(w, r, &brief) {
		return
	}
	respond(w, s.svc.GenerateStrategy(r.Context(), brief))
}

func (s *Server) listStrategyTests(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "strategyID")
	if !valid {
		return
	}
	respond(w, s.svc.ListStrategyTests(r.Context(), id))
}

func (s *Server) createStrategyTest(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "strategyID")
	if !valid {
		return
	}
	var t model.StrategyTest
	if !decode(w, r, &t) {
		return
	}
	res := s.svc.CreateStrategyTest(r.Context(), id, t)
	if res.OK() {
		writeJSON(w, http.StatusCreated, res)
		return
	}
	respond(w, res)
}

func (s *Server) deleteStrategyTest(w http.ResponseWriter, r *http.Request) {
	if _, valid := idParam(w, r, "strategyID"); !valid {
		return
	}
	testID, valid := idParam(w, r, "testID")
	if !valid {
		return
	}
	respond(w, s.svc.DeleteStrategyTest(r.Context(), testID))
}
