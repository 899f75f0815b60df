package category

import (
	"github.com/sells-group/benchmark-cli/internal/model"
)

// Settings are the benchmark-level knobs that influence categorization.
type Settings struct {
	IndependenceEnabled bool `json:"independence_enabled"`
	MinDescriptionWords int  `json:"min_description_words"`
}

// DefaultSettings returns settings with the default description threshold.
func DefaultSettings() Settings {
	return Settings{MinDescriptionWords: DefaultMinDescriptionWords}
}

// Input is everything the classifier looks at. Company and Searched may be nil.
type Input struct {
	Company  *model.Company
	Searched *model.SearchedCompany
	View     model.ViewState
	Settings Settings
}

// Factor is one comparability criterion.
type Factor string

// Comparability factors.
const (
	FactorProducts     Factor = "products_services"
	FactorFunctions    Factor = "functional_profile"
	FactorIndependence Factor = "independence"
)

// Factors returns all factors in review order.
func Factors() []Factor {
	return []Factor{FactorProducts, FactorFunctions, FactorIndependence}
}

// FactorDecision is the resolved decision for one factor.
type FactorDecision struct {
	Factor   Factor   `json:"factor"`
	AI       Decision `json:"ai"`
	Human    Decision `json:"human"`
	Decision Decision `json:"decision"`
	// Overridden is set when a human decision replaced the AI one.
	Overridden bool `json:"overridden"`
}

// snapshot is the parsed view of an Input. It is built per evaluation and
// discarded afterwards, so cached dimension results never outlive the call.
type snapshot struct {
	name, country, url string
	tradeEnglish       string
	fullOverview       string
	fullOverviewManual string
	searchedEnglish    string
	searchedOverview   string

	hasSearchID        bool
	hasValidation      bool
	validationInput    string
	validationValid    *bool
	humanReviewPresent bool

	searched  bool
	overall   Status
	analysis  Status
	ai        map[Factor]Decision
	human     map[Factor]Decision
	siteMatch SiteMatchResult
	view      model.ViewState
	settings  Settings
	resolved  map[Dimension]CategoryValue
}

func newSnapshot(in Input) *snapshot {
	s := &snapshot{
		view:     in.View,
		settings: in.Settings,
		ai:       map[Factor]Decision{},
		human:    map[Factor]Decision{},
		resolved: map[Dimension]CategoryValue{},
	}
	if s.settings.MinDescriptionWords <= 0 {
		s.settings.MinDescriptionWords = DefaultMinDescriptionWords
	}

	if c := in.Company; c != nil {
		s.name = model.Str(c.Name)
		s.country = model.Str(c.Country)
		s.url = model.Str(c.URL)
		s.tradeEnglish = model.Str(c.TradeDescriptionEnglish)
		s.fullOverview = model.Str(c.FullOverview)
		s.fullOverviewManual = model.Str(c.FullOverviewManual)
		s.hasSearchID = !model.IsBlank(c.SearchID)
		s.hasValidation = !model.IsBlank(c.URLValidationInput)
		s.validationInput = model.Str(c.URLValidationInput)
		s.validationValid = c.URLValidationValid
		s.humanReviewPresent = c.HasHumanReview()
		s.human[FactorProducts] = ParseDecision(model.Str(c.CFProductsServicesHRDecision))
		s.human[FactorFunctions] = ParseDecision(model.Str(c.CFFunctionalProfileHRDecision))
		s.human[FactorIndependence] = ParseDecision(model.Str(c.CFIndependenceHRDecision))
	}

	if sc := in.Searched; sc != nil {
		s.searched = true
		s.overall = ParseStatus(sc.OverallStatus)
		s.analysis = ParseStatus(sc.ComparabilityAnalysisStatus)
		s.ai[FactorProducts] = ParseDecision(sc.ProductServiceComparabilityStatus)
		s.ai[FactorFunctions] = ParseDecision(sc.FunctionalProfileComparabilityStatus)
		s.ai[FactorIndependence] = ParseDecision(sc.IndependenceStatus)
		s.searchedEnglish = sc.TradeDescriptionEnglish
		s.searchedOverview = sc.FullOverview
		if sc.SiteMatch != nil {
			s.siteMatch = ParseSiteMatch(sc.SiteMatch.OverallResult)
		}
	}
	return s
}

// enabledFactors lists the factors that count toward the AI decision.
func (s *snapshot) enabledFactors() []Factor {
	if s.settings.IndependenceEnabled {
		return []Factor{FactorProducts, FactorFunctions, FactorIndependence}
	}
	return []Factor{FactorProducts, FactorFunctions}
}

func (s *snapshot) key(d Dimension) Key {
	return s.value(d).Key
}

func (s *snapshot) value(d Dimension) CategoryValue {
	if v, ok := s.resolved[d]; ok {
		return v
	}
	v := categorizers[d].evaluate(s)
	s.resolved[d] = v
	return v
}

// Categorize evaluates every dimension.
func Categorize(in Input) Values {
	s := newSnapshot(in)
	out := make(Values, len(dimensions))
	for _, d := range dimensions {
		out[d] = s.value(d)
	}
	return out
}

// Evaluate returns the category for a single dimension.
func Evaluate(d Dimension, in Input) CategoryValue {
	if _, ok := categorizers[d]; !ok {
		return CategoryValue{Dimension: d}
	}
	return newSnapshot(in).value(d)
}

// FactorDecisions resolves each factor: the human decision when present,
// otherwise the AI decision.
func FactorDecisions(in Input) []FactorDecision {
	s := newSnapshot(in)
	out := make([]FactorDecision, 0, 3)
	for _, f := range Factors() {
		out = append(out, s.factorDecision(f))
	}
	return out
}

func (s *snapshot) factorDecision(f Factor) FactorDecision {
	fd := FactorDecision{Factor: f, AI: s.ai[f], Human: s.human[f]}
	if fd.Human != Undecided {
		fd.Decision = fd.Human
		fd.Overridden = true
	} else {
		fd.Decision = fd.AI
	}
	return fd
}
