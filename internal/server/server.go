// Package server exposes the actions and workspaces as a JSON API for the
// benchmark dashboard. Every response body is a {"data": ..., "error": ...}
// envelope.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/benchmark-cli/internal/action"
	"github.com/sells-group/benchmark-cli/internal/model"
	"github.com/sells-group/benchmark-cli/internal/workspace"
)

const (
	maxBodyBytes          = 1 << 20
	defaultMaxUploadBytes = 20 << 20
)

// Options configures the API.
type Options struct {
	AllowedOrigins []string
	MaxUploadBytes int64
}

// Server routes HTTP requests to the action service and the workspaces.
type Server struct {
	svc        *action.Service
	workspaces *workspace.Manager
	opts       Options
}

// New creates a Server.
func New(svc *action.Service, wm *workspace.Manager, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{svc: svc, workspaces: wm, opts: opts}
}

// Routes returns the API router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)

	r.Route("/benchmarks", func(r chi.Router) {
		r.Get("/", s.listBenchmarks)
		r.Post("/", s.createBenchmark)
		r.Route("/{benchmarkID}", func(r chi.Router) {
			r.Get("/", s.getBenchmark)
			r.Put("/", s.updateBenchmark)
			r.Delete("/", s.deleteBenchmark)
			r.Put("/strategy", s.attachStrategy)
			r.Put("/mapping", s.saveMapping)

			r.Get("/companies", s.listCompanies)
			r.Post("/companies", s.addCompany)
			r.Delete("/companies", s.deleteCompanies)
			r.Patch("/companies/{companyID}", s.editCompany)
			r.Post("/companies/{companyID}/discard", s.discardCompany)
			r.Post("/save", s.saveCompanies)
			r.Post("/refresh", s.refreshCompanies)
			r.Post("/select", s.selectCompanies)

			r.Post("/websearch", s.startWebSearch)
			r.Post("/analysis", s.startAnalysis)
			r.Post("/import", s.importSpreadsheet)
		})
	})

	r.Route("/companies/{companyID}", func(r chi.Router) {
		r.Post("/validate", s.validateWebsite)
		r.Post("/review", s.setReview)
		r.Post("/translate", s.translate)
		r.Post("/substantiate", s.substantiate)
	})

	r.Route("/strategies", func(r chi.Router) {
		r.Get("/", s.listStrategies)
		r.Post("/", s.createStrategy)
		r.Post("/wizard", s.generateStrategy)
		r.Route("/{strategyID}", func(r chi.Router) {
			r.Get("/", s.getStrategy)
			r.Put("/", s.updateStrategy)
			r.Delete("/", s.deleteStrategy)
			r.Get("/tests", s.listStrategyTests)
			r.Post("/tests", s.createStrategyTest)
			r.Delete("/tests/{testID}", s.deleteStrategyTest)
		})
	})

	return r
}

// requestLogger logs one line per request with the chi request ID.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type healthStatus struct {
	Status   string            `json:"status"`
	Store    string            `json:"store"`
	Breakers map[string]string `json:"breakers"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	h := healthStatus{Status: "ok", Store: "ok", Breakers: s.svc.BreakerStates()}
	status := http.StatusOK
	if err := s.svc.Store().Ping(ctx); err != nil {
		zap.L().Warn("server: store ping failed", zap.Error(err))
		h.Status, h.Store = "degraded", "unreachable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, action.Result[healthStatus]{Data: h})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Debug("server: write response", zap.Error(err))
	}
}

// respond writes an action result. Failures without data are 422; partial
// results keep 200 so the client renders what went through.
func respond[T any](w http.ResponseWriter, res action.Result[T]) {
	status := http.StatusOK
	if !res.OK() && reflect.ValueOf(&res.Data).Elem().IsZero() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

func ok[T any](w http.ResponseWriter, v T) {
	writeJSON(w, http.StatusOK, action.Result[T]{Data: v})
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, action.Result[any]{Error: &msg})
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id == 0 {
		fail(w, http.StatusBadRequest, "Invalid "+name+".")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		fail(w, http.StatusBadRequest, "The request body is not valid JSON.")
		return false
	}
	return true
}

// idsBody is the payload of batch endpoints.
type idsBody struct {
	IDs []int64 `json:"ids"`
}

// syncCompany pushes the stored state of a company into its workspace, when
// that workspace is loaded.
func (s *Server) syncCompany(ctx context.Context, c *model.Company) {
	w, found := s.workspaces.Peek(c.BenchmarkID)
	if !found {
		return
	}
	var searched *model.SearchedCompany
	if !model.IsBlank(c.SearchID) {
		m, err := s.svc.Store().SearchedCompanies(ctx, []string{*c.SearchID})
		if err != nil {
			zap.L().Warn("server: load analysis record", zap.Int64("company_id", c.ID), zap.Error(err))
		}
		searched = m[*c.SearchID]
	}
	w.Apply(*c, searched)
}
