package action

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/sells-group/benchmark-cli/internal/category"
	"github.com/sells-group/benchmark-cli/internal/model"
	"github.com/sells-group/benchmark-cli/internal/resilience"
	"github.com/sells-group/benchmark-cli/pkg/anthropic"
)

const notConfiguredAssistant = "The assistant is not configured."

const translateSystem = `You translate company trade descriptions for transfer pricing benchmark studies.
Keep company names, product names and figures unchanged. Reply with the translation only.`

const substantiateSystem = `You write motivations for comparability decisions in transfer pricing benchmark studies.
Write two to four factual sentences in English that explain the decision using only the information provided.
Do not speculate and do not repeat the question.`

const strategySystem = `You help transfer pricing analysts set up a comparability search strategy.
Given a description of the tested party, reply with a single JSON object with the string fields
"description", "ideal_products", "reject_products", "ideal_functions" and "reject_functions".
Each list field is a short comma-separated list. Reply with JSON only.`

// ask sends one prompt through the assistant circuit breaker and returns the
// reply text.
func (s *Service) ask(ctx context.Context, task, system, prompt string) (string, error) {
	resp, err := resilience.Call(ctx, s.breakers.Get(serviceAssistant), func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return s.claude.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     s.opts.Model,
			MaxTokens: s.opts.MaxTokens,
			System:    system,
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
	})
	if err != nil {
		return "", err
	}
	resp.Usage.Log(s.opts.Model, task)
	if resp.Truncated() {
		zap.L().Warn("assistant: reply hit the token limit", zap.String("task", task), zap.Int64("max_tokens", s.opts.MaxTokens))
	}
	text := resp.Text()
	if text == "" {
		return "", eris.New("assistant: empty reply")
	}
	return text, nil
}

// TranslateInput names the target language as a BCP 47 tag.
type TranslateInput struct {
	Language string `json:"language" validate:"required,bcp47_language_tag"`
}

// Translation is a translated trade description.
type Translation struct {
	Language string `json:"language"`
	Name     string `json:"language_name"`
	Text     string `json:"text"`
	// Saved is set when the translation was stored as the English trade
	// description.
	Saved bool `json:"saved"`
}

// TranslateDescription translates the company's original trade description.
// English translations are stored on the company.
func (s *Service) TranslateDescription(ctx context.Context, id int64, in TranslateInput) Result[*Translation] {
	if s.claude == nil {
		return fail[*Translation](notConfiguredAssistant)
	}
	if msg, valid := s.check(in); !valid {
		return fail[*Translation](msg)
	}
	tag, err := language.Parse(in.Language)
	if err != nil {
		return fail[*Translation]("The language is not recognized.")
	}
	c, msg := s.loadCompany(ctx, id)
	if msg != "" {
		return fail[*Translation](msg)
	}

	source := model.Str(c.TradeDescriptionOriginal)
	if strings.TrimSpace(source) == "" {
		source = model.Str(c.FullOverview)
	}
	if strings.TrimSpace(source) == "" {
		return fail[*Translation]("There is no description to translate.")
	}

	name := display.English.Languages().Name(tag)
	if name == "" {
		name = tag.String()
	}
	text, err := s.ask(ctx, "translate", translateSystem, fmt.Sprintf("Translate into %s:\n\n%s", name, source))
	if err != nil {
		return fail[*Translation](s.failure(serviceAssistant, "translate the description", err, zap.Int64("company_id", id)))
	}

	out := &Translation{Language: tag.String(), Name: name, Text: text}
	if base, _ := tag.Base(); base.String() == "en" {
		if err := s.store.UpdateCompanyFields(ctx, id, map[string]any{"trade_description_english": text}); err != nil {
			return partial(out, s.failure(serviceDatabase, "save the translation", err, zap.Int64("company_id", id)))
		}
		out.Saved = true
	}
	return ok(out)
}

// Substantiation is a drafted motivation for one factor decision.
type Substantiation struct {
	Factor     category.Factor   `json:"factor"`
	Decision   category.Decision `json:"decision"`
	Overridden bool              `json:"overridden"`
	Text       string            `json:"text"`
}

// SubstantiateDecision drafts a motivation for the current decision on one
// factor, human override first. The draft is not stored.
func (s *Service) SubstantiateDecision(ctx context.Context, id int64, factor category.Factor) Result[*Substantiation] {
	if s.claude == nil {
		return fail[*Substantiation](notConfiguredAssistant)
	}
	if _, known := reviewColumns[factor]; !known {
		return failf[*Substantiation]("Unknown factor %q.", factor)
	}
	c, msg := s.loadCompany(ctx, id)
	if msg != "" {
		return fail[*Substantiation](msg)
	}
	b, msg := s.loadBenchmark(ctx, c.BenchmarkID)
	if msg != "" {
		return fail[*Substantiation](msg)
	}
	searched, err := s.searchedFor(ctx, []model.Company{*c})
	if err != nil {
		return fail[*Substantiation](s.failure(serviceDatabase, "load analysis results", err, zap.Int64("company_id", id)))
	}
	sc := searched[model.Str(c.SearchID)]

	var fd category.FactorDecision
	for _, d := range category.FactorDecisions(category.Input{Company: c, Searched: sc, Settings: s.Settings(b)}) {
		if d.Factor == factor {
			fd = d
		}
	}
	if fd.Decision == category.Undecided {
		return fail[*Substantiation]("There is no decision to substantiate yet.")
	}

	text, err := s.ask(ctx, "substantiate", substantiateSystem, substantiatePrompt(c, sc, b.Strategy, fd))
	if err != nil {
		return fail[*Substantiation](s.failure(serviceAssistant, "draft the motivation", err, zap.Int64("company_id", id)))
	}
	return ok(&Substantiation{Factor: factor, Decision: fd.Decision, Overridden: fd.Overridden, Text: text})
}

func substantiatePrompt(c *model.Company, sc *model.SearchedCompany, st *model.Strategy, fd category.FactorDecision) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Company: %s (%s)\n", model.Str(c.Name), model.Str(c.Country))
	fmt.Fprintf(&sb, "Factor: %s\nDecision: %s\n", strings.ReplaceAll(string(fd.Factor), "_", " "), fd.Decision)

	if st != nil {
		switch fd.Factor {
		case category.FactorProducts:
			fmt.Fprintf(&sb, "Ideal products and services: %s\nRejected products and services: %s\n", st.IdealProducts, st.RejectProducts)
		case category.FactorFunctions:
			fmt.Fprintf(&sb, "Ideal functional profile: %s\nRejected functional profile: %s\n", st.IdealFunctions, st.RejectFunctions)
		case category.FactorIndependence:
			sb.WriteString("The company must not be controlled by or part of a larger group.\n")
		}
	}

	description := model.Str(c.FullOverviewManual)
	for _, alt := range []string{model.Str(c.TradeDescriptionEnglish), model.Str(c.FullOverview)} {
		if strings.TrimSpace(description) == "" {
			description = alt
		}
	}
	if sc != nil {
		if strings.TrimSpace(description) == "" {
			description = sc.TradeDescriptionEnglish
		}
		if strings.TrimSpace(description) == "" {
			description = sc.FullOverview
		}
		if m := aiMotivation(sc, fd.Factor); m != "" {
			fmt.Fprintf(&sb, "Analysis notes: %s\n", m)
		}
	}
	if strings.TrimSpace(description) != "" {
		fmt.Fprintf(&sb, "Description: %s\n", description)
	}
	return sb.String()
}

func aiMotivation(sc *model.SearchedCompany, f category.Factor) string {
	switch f {
	case category.FactorProducts:
		return sc.ProductServiceMotivation
	case category.FactorFunctions:
		return sc.FunctionalProfileMotivation
	case category.FactorIndependence:
		return sc.IndependenceMotivation
	default:
		return ""
	}
}

// StrategyBrief describes the tested party for the strategy wizard.
type StrategyBrief struct {
	Name                string `json:"name" validate:"required,max=200"`
	Business            string `json:"business" validate:"required,max=4000"`
	Industry            string `json:"industry" validate:"max=200"`
	IndependenceEnabled bool   `json:"independence_enabled"`
}

type strategyDraft struct {
	Description     string `json:"description"`
	IdealProducts   string `json:"ideal_products"`
	RejectProducts  string `json:"reject_products"`
	IdealFunctions  string `json:"ideal_functions"`
	RejectFunctions string `json:"reject_functions"`
}

// GenerateStrategy drafts a strategy from a brief. The draft is returned
// unsaved so the user can edit it first.
func (s *Service) GenerateStrategy(ctx context.Context, brief StrategyBrief) Result[*model.Strategy] {
	if s.claude == nil {
		return fail[*model.Strategy](notConfiguredAssistant)
	}
	brief.Name = strings.TrimSpace(brief.Name)
	brief.Business = strings.TrimSpace(brief.Business)
	if msg, valid := s.check(brief); !valid {
		return fail[*model.Strategy](msg)
	}

	prompt := "Tested party: " + brief.Business
	if brief.Industry != "" {
		prompt += "\nIndustry: " + brief.Industry
	}
	text, err := s.ask(ctx, "strategy_wizard", strategySystem, prompt)
	if err != nil {
		return fail[*model.Strategy](s.failure(serviceAssistant, "draft the strategy", err))
	}

	var draft strategyDraft
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(text)), &draft); err != nil {
		zap.L().Warn("action: strategy draft is not json", zap.String("reply", text), zap.Error(err))
		return fail[*model.Strategy]("The assistant returned an unreadable strategy. Please try again.")
	}
	return ok(&model.Strategy{
		Name:                brief.Name,
		Description:         draft.Description,
		IdealProducts:       draft.IdealProducts,
		RejectProducts:      draft.RejectProducts,
		IdealFunctions:      draft.IdealFunctions,
		RejectFunctions:     draft.RejectFunctions,
		IndependenceEnabled: brief.IndependenceEnabled,
	})
}
