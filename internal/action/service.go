// Package action implements the operations behind the dashboard and the CLI.
// Every method returns a Result: failures are logged and converted to a
// sentence for the user instead of being returned as errors.
package action

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sells-group/benchmark-cli/internal/category"
	"github.com/sells-group/benchmark-cli/internal/config"
	"github.com/sells-group/benchmark-cli/internal/model"
	"github.com/sells-group/benchmark-cli/internal/resilience"
	"github.com/sells-group/benchmark-cli/internal/store"
	"github.com/sells-group/benchmark-cli/pkg/analysis"
	"github.com/sells-group/benchmark-cli/pkg/anthropic"
)

// Service names used for circuit breakers and user messages.
const (
	serviceAnalysis  = "analysis"
	serviceAssistant = "assistant"
	serviceDatabase  = "database"
)

// Options tunes the service.
type Options struct {
	Concurrency         int
	BatchSize           int
	Model               string
	MaxTokens           int64
	MinDescriptionWords int
	Breaker             resilience.BreakerConfig
}

// OptionsFromConfig extracts the service options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Concurrency:         cfg.Analysis.Concurrency,
		BatchSize:           cfg.Analysis.BatchSize,
		Model:               cfg.Anthropic.Model,
		MaxTokens:           cfg.Anthropic.MaxTokens,
		MinDescriptionWords: cfg.Category.MinDescriptionWords,
		Breaker:             cfg.Breaker,
	}
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 25
	}
	if o.Model == "" {
		o.Model = "claude-sonnet-4-5-20250929"
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1024
	}
	if o.MinDescriptionWords <= 0 {
		o.MinDescriptionWords = category.DefaultMinDescriptionWords
	}
	return o
}

// Service carries the dependencies shared by all actions. The analysis and
// assistant clients may be nil when they are not configured.
type Service struct {
	store    store.Store
	analysis analysis.Client
	claude   anthropic.Client
	breakers *resilience.Breakers
	validate *validator.Validate
	opts     Options
	now      func() time.Time
}

// NewService wires a Service.
func NewService(st store.Store, ac analysis.Client, cc anthropic.Client, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		store:    st,
		analysis: ac,
		claude:   cc,
		breakers: resilience.NewBreakers(opts.Breaker),
		validate: newValidator(),
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Store returns the underlying store.
func (s *Service) Store() store.Store { return s.store }

// BreakerStates reports the circuit state of each external service.
func (s *Service) BreakerStates() map[string]string {
	return s.breakers.States()
}

// Settings returns the categorization settings for companies of b.
func (s *Service) Settings(b *model.Benchmark) category.Settings {
	return category.Settings{
		IndependenceEnabled: b.IndependenceEnabled(),
		MinDescriptionWords: s.opts.MinDescriptionWords,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("decision", func(fl validator.FieldLevel) bool {
		raw := fl.Field().String()
		return strings.TrimSpace(raw) == "" || category.ParseDecision(raw) != category.Undecided
	})
	return v
}

// check validates in and returns the user message when it is invalid.
func (s *Service) check(in any) (string, bool) {
	if err := s.validate.Struct(in); err != nil {
		return validationMessage(err), false
	}
	return "", true
}

// failure logs err and returns the sentence shown to the user.
func (s *Service) failure(service, action string, err error, fields ...zap.Field) string {
	fields = append(fields, zap.String("service", service), zap.Error(err))
	if resilience.IsTransient(err) {
		zap.L().Warn("action: "+action, fields...)
	} else {
		zap.L().Error("action: "+action, fields...)
	}
	return resilience.UserMessage(service, action, err)
}

// callAnalysis runs fn through the analysis circuit breaker.
func callAnalysis[T any](ctx context.Context, s *Service, fn func(ctx context.Context, c analysis.Client) (T, error)) (T, error) {
	return resilience.Call(ctx, s.breakers.Get(serviceAnalysis), func(ctx context.Context) (T, error) {
		return fn(ctx, s.analysis)
	})
}

// loadBenchmark fetches a benchmark and turns a miss into a user message.
func (s *Service) loadBenchmark(ctx context.Context, id int64) (*model.Benchmark, string) {
	b, err := s.store.GetBenchmark(ctx, id)
	if err != nil {
		return nil, s.failure(serviceDatabase, "load the benchmark", err, zap.Int64("benchmark_id", id))
	}
	if b == nil {
		return nil, "Benchmark not found."
	}
	return b, ""
}

// loadCompany fetches a company and turns a miss into a user message.
func (s *Service) loadCompany(ctx context.Context, id int64) (*model.Company, string) {
	c, err := s.store.GetCompany(ctx, id)
	if err != nil {
		return nil, s.failure(serviceDatabase, "load the company", err, zap.Int64("company_id", id))
	}
	if c == nil {
		return nil, "Company not found."
	}
	return c, ""
}

// searchedFor reads the analysis records for the given companies, keyed by
// search ID.
func (s *Service) searchedFor(ctx context.Context, companies []model.Company) (map[string]*model.SearchedCompany, error) {
	var ids []string
	for _, c := range companies {
		if !model.IsBlank(c.SearchID) {
			ids = append(ids, *c.SearchID)
		}
	}
	if len(ids) == 0 {
		return map[string]*model.SearchedCompany{}, nil
	}
	return s.store.SearchedCompanies(ctx, ids)
}
