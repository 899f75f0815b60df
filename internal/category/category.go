// Package category derives a company's workflow state per dimension from its
// persisted fields, the searched-company record produced by the analysis
// services, and transient view state. Every function here is pure.
package category

// Dimension names one independent workflow axis.
type Dimension string

// Workflow dimensions, in evaluation order.
const (
	DimInput          Dimension = "INPUT"
	DimWebsite        Dimension = "WEBSITE"
	DimDescription    Dimension = "DESCRIPTION"
	DimWebSearch      Dimension = "WEBSEARCH"
	DimAcceptReject   Dimension = "ACCEPT_REJECT"
	DimSiteMatch      Dimension = "SITE_MATCH"
	DimHumanReview    Dimension = "HUMAN_REVIEW"
	DimReviewPriority Dimension = "REVIEW_PRIORITY"
)

var dimensions = []Dimension{DimInput, DimWebsite, DimDescription, DimWebSearch, DimAcceptReject, DimSiteMatch, DimHumanReview, DimReviewPriority}

// Dimensions returns every dimension in evaluation order.
func Dimensions() []Dimension {
	out := make([]Dimension, len(dimensions))
	copy(out, dimensions)
	return out
}

// Key identifies a category within a dimension.
type Key string

// Category keys. The same key may appear in several dimensions.
const (
	KeyNew                 Key = "NEW"
	KeyInputRequired       Key = "INPUT_REQUIRED"
	KeyWebsiteInvalid      Key = "WEBSITE_INVALID"
	KeyCompleted           Key = "COMPLETED"
	KeyNotReady            Key = "NOT_READY"
	KeyNotValidated        Key = "NOT_VALIDATED"
	KeyValidating          Key = "VALIDATING"
	KeyValid               Key = "VALID"
	KeyInvalid             Key = "INVALID"
	KeyReady               Key = "READY"
	KeyFrontendInitialized Key = "FRONTEND_INITIALIZED"
	KeyInQueue             Key = "IN_QUEUE"
	KeyInProgress          Key = "IN_PROGRESS"
	KeyFailed              Key = "FAILED"
	KeyError               Key = "ERROR"
	KeyAccepted            Key = "ACCEPTED"
	KeyRejected            Key = "REJECTED"
	KeyLikely              Key = "LIKELY"
	KeyPossibly            Key = "POSSIBLY"
	KeyNotLikely           Key = "NOT_LIKELY"
	KeyUncertain           Key = "UNCERTAIN"
	KeyNotAvailable        Key = "NOT_AVAILABLE"
	KeyNoDecision          Key = "NO_DECISION"
	KeyAcceptAI            Key = "ACCEPT_AI"
	KeyRejectAI            Key = "REJECT_AI"
	KeyAcceptHR            Key = "ACCEPT_HR"
	KeyRejectHR            Key = "REJECT_HR"
	KeyReviewed            Key = "REVIEWED"
	KeyHigh                Key = "HIGH"
	KeyMedium              Key = "MEDIUM"
	KeyLow                 Key = "LOW"
)

// CategoryValue is the classifier output for one dimension.
type CategoryValue struct { //nolint:revive // stutters but reads better at call sites
	Dimension   Dimension `json:"dimension"`
	Key         Key       `json:"key"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	Icon        string    `json:"icon"`
}

// Values maps every dimension to its category.
type Values map[Dimension]CategoryValue

// Key returns the category key for d, or "" when d is absent.
func (v Values) Key(d Dimension) Key {
	return v[d].Key
}

// Meta is the display metadata registered for a category key.
type Meta struct {
	Label       string
	Description string
	Color       string
	Icon        string
}

var registry = map[Dimension]map[Key]Meta{
	DimInput: {
		KeyNew:            {"New", "No input provided yet", "gray", "circle-dashed"},
		KeyInputRequired:  {"Input required", "A required input field is missing", "orange", "alert-circle"},
		KeyWebsiteInvalid: {"Website invalid", "The website is not a valid URL", "red", "link-off"},
		KeyCompleted:      {"Completed", "All required input is present", "green", "check-circle"},
	},
	DimWebsite: {
		KeyNotReady:     {"Not ready", "Complete the input before validating the website", "gray", "circle-dashed"},
		KeyNotValidated: {"Not validated", "The website has not been validated for the current input", "gray", "help-circle"},
		KeyValidating:   {"Validating", "Website validation is running", "blue", "loader"},
		KeyValid:        {"Valid", "The website matches the company", "green", "check-circle"},
		KeyInvalid:      {"Invalid", "The website does not match the company", "red", "x-circle"},
	},
	DimDescription: {
		KeyValid:   {"Valid", "A sufficiently long description is available", "green", "file-text"},
		KeyInvalid: {"Invalid", "No description meets the minimum length", "orange", "file-minus"},
	},
	DimWebSearch: {
		KeyNotReady:            {"Not ready", "Complete the input before searching", "gray", "circle-dashed"},
		KeyReady:               {"Ready", "Ready for web search", "gray", "search"},
		KeyFrontendInitialized: {"Starting", "Web search has been requested", "blue", "loader"},
		KeyInQueue:             {"In queue", "Web search is queued", "blue", "clock"},
		KeyInProgress:          {"In progress", "Web search is running", "blue", "loader"},
		KeyCompleted:           {"Completed", "Web search finished", "green", "check-circle"},
		KeyFailed:              {"Failed", "Web search did not succeed", "red", "x-circle"},
		KeyRejected:            {"Rejected", "Rejected during web search", "red", "thumbs-down"},
	},
	DimAcceptReject: {
		KeyNotReady:   {"Not ready", "Web search has not completed", "gray", "circle-dashed"},
		KeyReady:      {"Ready", "Ready for comparability analysis", "gray", "play"},
		KeyInQueue:    {"In queue", "Comparability analysis is queued", "blue", "clock"},
		KeyInProgress: {"In progress", "Comparability analysis is running", "blue", "loader"},
		KeyAccepted:   {"Accepted", "All comparability factors accepted", "green", "thumbs-up"},
		KeyRejected:   {"Rejected", "At least one comparability factor rejected", "red", "thumbs-down"},
		KeyFailed:     {"Failed", "Comparability analysis did not succeed", "red", "x-circle"},
		KeyError:      {"Error", "Comparability analysis raised an error", "red", "alert-triangle"},
	},
	DimSiteMatch: {
		KeyLikely:       {"Likely", "The website likely belongs to the company", "green", "check-circle"},
		KeyPossibly:     {"Possibly", "The website possibly belongs to the company", "yellow", "help-circle"},
		KeyNotLikely:    {"Not likely", "The website likely belongs to another company", "red", "x-circle"},
		KeyUncertain:    {"Uncertain", "The site match could not be determined", "orange", "alert-circle"},
		KeyNotAvailable: {"Not available", "No site match result", "gray", "minus-circle"},
	},
	DimHumanReview: {
		KeyNoDecision: {"No decision", "Not every factor has a decision", "gray", "circle-dashed"},
		KeyAcceptAI:   {"Accept (AI)", "Accepted on AI decisions only", "green", "cpu"},
		KeyRejectAI:   {"Reject (AI)", "Rejected on AI decisions only", "red", "cpu"},
		KeyAcceptHR:   {"Accept (HR)", "Accepted with human review", "green", "user-check"},
		KeyRejectHR:   {"Reject (HR)", "Rejected with human review", "red", "user-x"},
	},
	DimReviewPriority: {
		KeyNotReady: {"Not ready", "Comparability analysis has not finished", "gray", "circle-dashed"},
		KeyReviewed: {"Reviewed", "A human reviewed this company", "green", "user-check"},
		KeyHigh:     {"High", "All AI factors accept", "red", "chevrons-up"},
		KeyMedium:   {"Medium", "AI factors disagree or analysis failed", "orange", "chevron-up"},
		KeyLow:      {"Low", "Multiple AI factors reject", "gray", "chevron-down"},
	},
}

// Lookup returns the metadata registered for key in d.
func Lookup(d Dimension, key Key) (Meta, bool) {
	m, ok := registry[d][key]
	return m, ok
}

// Keys returns the keys registered for d.
func Keys(d Dimension) []Key {
	keys := make([]Key, 0, len(registry[d]))
	for k := range registry[d] {
		keys = append(keys, k)
	}
	return keys
}

func newValue(d Dimension, key Key, label string) CategoryValue {
	m := registry[d][key]
	if label == "" {
		label = m.Label
	}
	return CategoryValue{
		Dimension:   d,
		Key:         key,
		Label:       label,
		Description: m.Description,
		Color:       m.Color,
		Icon:        m.Icon,
	}
}
