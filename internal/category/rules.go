package category

import "strings"

type result struct {
	key   Key
	label string
}

// rule reports a category when it matches. Rules of a dimension are tried in
// order and the first match wins.
type rule func(s *snapshot) (result, bool)

type categorizer struct {
	dimension Dimension
	rules     []rule
	// fallback is returned when no rule matches, so every dimension is total.
	fallback Key
}

func (c categorizer) evaluate(s *snapshot) CategoryValue {
	for _, r := range c.rules {
		if res, ok := r(s); ok {
			return newValue(c.dimension, res.key, res.label)
		}
	}
	return newValue(c.dimension, c.fallback, "")
}

func when(cond func(s *snapshot) bool, key Key) rule {
	return func(s *snapshot) (result, bool) {
		if cond(s) {
			return result{key: key}, true
		}
		return result{}, false
	}
}

// categorizers is filled in init because the rules refer back to it through
// snapshot.value for cross-dimension dependencies.
var categorizers map[Dimension]categorizer

func init() {
	categorizers = map[Dimension]categorizer{
		DimInput:          {dimension: DimInput, rules: inputRules, fallback: KeyCompleted},
		DimWebsite:        {dimension: DimWebsite, rules: websiteRules, fallback: KeyNotValidated},
		DimDescription:    {dimension: DimDescription, rules: descriptionRules, fallback: KeyInvalid},
		DimWebSearch:      {dimension: DimWebSearch, rules: webSearchRules, fallback: KeyNotReady},
		DimAcceptReject:   {dimension: DimAcceptReject, rules: acceptRejectRules, fallback: KeyReady},
		DimSiteMatch:      {dimension: DimSiteMatch, rules: siteMatchRules, fallback: KeyNotAvailable},
		DimHumanReview:    {dimension: DimHumanReview, rules: humanReviewRules, fallback: KeyNoDecision},
		DimReviewPriority: {dimension: DimReviewPriority, rules: reviewPriorityRules, fallback: KeyLow},
	}
}

func blank(v string) bool {
	return strings.TrimSpace(v) == ""
}

var requiredInputs = []struct {
	label string
	get   func(s *snapshot) string
}{
	{"Name required", func(s *snapshot) string { return s.name }},
	{"Country required", func(s *snapshot) string { return s.country }},
	{"Website required", func(s *snapshot) string { return s.url }},
}

var inputRules = []rule{
	when(func(s *snapshot) bool {
		return blank(s.name) && blank(s.country) && blank(s.url)
	}, KeyNew),
	func(s *snapshot) (result, bool) {
		for _, f := range requiredInputs {
			if blank(f.get(s)) {
				return result{key: KeyInputRequired, label: f.label}, true
			}
		}
		return result{}, false
	},
	when(func(s *snapshot) bool { return !IsValidURL(s.url) }, KeyWebsiteInvalid),
}

var websiteRules = []rule{
	when(func(s *snapshot) bool { return s.key(DimInput) != KeyCompleted }, KeyNotReady),
	when(func(s *snapshot) bool {
		return !s.hasValidation || s.validationInput != Fingerprint(s.name, s.country, s.url)
	}, KeyNotValidated),
	when(func(s *snapshot) bool { return s.view.URLValidationInitialized }, KeyValidating),
	when(func(s *snapshot) bool { return s.validationValid != nil && *s.validationValid }, KeyValid),
	when(func(s *snapshot) bool { return s.validationValid != nil && !*s.validationValid }, KeyInvalid),
}

var descriptionRules = []rule{
	when(func(s *snapshot) bool {
		for _, d := range []string{s.fullOverviewManual, s.tradeEnglish, s.fullOverview, s.searchedEnglish, s.searchedOverview} {
			if WordCount(d) >= s.settings.MinDescriptionWords {
				return true
			}
		}
		return false
	}, KeyValid),
}

func searchedWith(statuses ...Status) func(s *snapshot) bool {
	return func(s *snapshot) bool {
		if !s.searched {
			return false
		}
		for _, st := range statuses {
			if s.overall == st {
				return true
			}
		}
		return false
	}
}

var webSearchRules = []rule{
	when(searchedWith(StatusCompleted), KeyCompleted),
	when(searchedWith(StatusUnsuccessful, StatusError), KeyFailed),
	when(searchedWith(StatusRejected), KeyRejected),
	when(searchedWith(StatusInProgress), KeyInProgress),
	when(searchedWith(StatusInQueue), KeyInQueue),
	when(func(s *snapshot) bool { return s.view.WebSearchInitialized && !s.hasSearchID }, KeyFrontendInitialized),
	when(func(s *snapshot) bool { return s.hasSearchID }, KeyInQueue),
	when(func(s *snapshot) bool { return s.key(DimInput) == KeyCompleted }, KeyReady),
}

func analysisIs(st Status) func(s *snapshot) bool {
	return func(s *snapshot) bool { return s.analysis == st }
}

var acceptRejectRules = []rule{
	// Failures and search-stage rejections carry over from the web search.
	func(s *snapshot) (result, bool) {
		switch ws := s.key(DimWebSearch); ws {
		case KeyFailed, KeyRejected:
			return result{key: ws}, true
		}
		return result{}, false
	},
	when(func(s *snapshot) bool { return s.key(DimWebSearch) != KeyCompleted }, KeyNotReady),
	func(s *snapshot) (result, bool) {
		if s.analysis != StatusCompleted {
			return result{}, false
		}
		for _, f := range s.enabledFactors() {
			if s.ai[f] != Accept {
				return result{key: KeyRejected}, true
			}
		}
		return result{key: KeyAccepted}, true
	},
	when(analysisIs(StatusUnsuccessful), KeyFailed),
	when(analysisIs(StatusError), KeyError),
	when(analysisIs(StatusInProgress), KeyInProgress),
	when(analysisIs(StatusInQueue), KeyInQueue),
	when(func(s *snapshot) bool { return s.view.AcceptRejectInitialized }, KeyInQueue),
}

var siteMatchRules = []rule{
	when(func(s *snapshot) bool { return s.siteMatch == SiteMatchLikely }, KeyLikely),
	when(func(s *snapshot) bool { return s.siteMatch == SiteMatchPossibly }, KeyPossibly),
	when(func(s *snapshot) bool { return s.siteMatch == SiteMatchNotLikely }, KeyNotLikely),
	when(func(s *snapshot) bool { return s.siteMatch == SiteMatchUncertain }, KeyUncertain),
}

var humanReviewRules = []rule{
	func(s *snapshot) (result, bool) {
		accept, overridden := true, false
		for _, f := range Factors() {
			fd := s.factorDecision(f)
			if fd.Decision == Undecided {
				return result{}, false
			}
			accept = accept && fd.Decision == Accept
			overridden = overridden || fd.Overridden
		}
		switch {
		case accept && overridden:
			return result{key: KeyAcceptHR}, true
		case accept:
			return result{key: KeyAcceptAI}, true
		case overridden:
			return result{key: KeyRejectHR}, true
		default:
			return result{key: KeyRejectAI}, true
		}
	},
}

func terminalAcceptReject(k Key) bool {
	switch k {
	case KeyAccepted, KeyRejected, KeyFailed, KeyError:
		return true
	}
	return false
}

func failedAcceptReject(k Key) bool {
	return k == KeyFailed || k == KeyError
}

var reviewPriorityRules = []rule{
	when(func(s *snapshot) bool { return !terminalAcceptReject(s.key(DimAcceptReject)) }, KeyNotReady),
	when(func(s *snapshot) bool { return s.humanReviewPresent }, KeyReviewed),
	when(func(s *snapshot) bool {
		for _, f := range s.enabledFactors() {
			if s.ai[f] != Accept {
				return false
			}
		}
		return true
	}, KeyHigh),
	when(func(s *snapshot) bool {
		factors := s.enabledFactors()
		rejects := 0
		for _, f := range factors {
			if s.ai[f] == Reject {
				rejects++
			}
		}
		return len(factors) >= 2 && rejects == 1
	}, KeyMedium),
	when(func(s *snapshot) bool { return failedAcceptReject(s.key(DimAcceptReject)) }, KeyMedium),
}
