package category

import "strings"

// Status is the parsed form of a progress string emitted by the external
// search and analysis services.
type Status int

// Status values. StatusUnknown covers empty and unrecognized strings.
const (
	StatusUnknown Status = iota
	StatusInQueue
	StatusInProgress
	StatusCompleted
	StatusUnsuccessful
	StatusError
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusInQueue:
		return "in_queue"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusUnsuccessful:
		return "unsuccessful"
	case StatusError:
		return "error"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

var statusVocabulary = map[string]Status{
	"in queue":  StatusInQueue,
	"queued":    StatusInQueue,
	"pending":   StatusInQueue,
	"waiting":   StatusInQueue,
	"new":       StatusInQueue,
	"scheduled": StatusInQueue,

	"in progress": StatusInProgress,
	"processing":  StatusInProgress,
	"running":     StatusInProgress,
	"started":     StatusInProgress,
	"searching":   StatusInProgress,
	"analyzing":   StatusInProgress,

	"completed": StatusCompleted,
	"complete":  StatusCompleted,
	"done":      StatusCompleted,
	"finished":  StatusCompleted,
	"success":   StatusCompleted,
	"succeeded": StatusCompleted,

	"unsuccessful": StatusUnsuccessful,
	"failed":       StatusUnsuccessful,
	"failure":      StatusUnsuccessful,
	"not found":    StatusUnsuccessful,
	"no results":   StatusUnsuccessful,

	"error":     StatusError,
	"errored":   StatusError,
	"exception": StatusError,
	"timeout":   StatusError,
	"timed out": StatusError,

	"rejected":      StatusRejected,
	"reject":        StatusRejected,
	"auto rejected": StatusRejected,
	"excluded":      StatusRejected,
}

// ParseStatus maps a raw status string onto Status. Matching ignores case,
// surrounding whitespace, and treats underscores and hyphens as spaces.
func ParseStatus(raw string) Status {
	if s, ok := statusVocabulary[normalizeToken(raw)]; ok {
		return s
	}
	return StatusUnknown
}

// IsCompleted reports whether raw is a completed status.
func IsCompleted(raw string) bool { return ParseStatus(raw) == StatusCompleted }

// IsInProgress reports whether raw is an in-progress status.
func IsInProgress(raw string) bool { return ParseStatus(raw) == StatusInProgress }

// IsInQueue reports whether raw is a queued status.
func IsInQueue(raw string) bool { return ParseStatus(raw) == StatusInQueue }

// IsError reports whether raw is an error status.
func IsError(raw string) bool { return ParseStatus(raw) == StatusError }

// IsUnsuccessful reports whether raw is an unsuccessful status.
func IsUnsuccessful(raw string) bool { return ParseStatus(raw) == StatusUnsuccessful }

// Decision is the parsed accept/reject verdict for one comparability factor.
type Decision int

// Decision values.
const (
	Undecided Decision = iota
	Accept
	Reject
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "Accept"
	case Reject:
		return "Reject"
	default:
		return ""
	}
}

// MarshalText renders Undecided as an empty string.
func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

var decisionVocabulary = map[string]Decision{
	"accept":   Accept,
	"accepted": Accept,
	"yes":      Accept,
	"true":     Accept,
	"reject":   Reject,
	"rejected": Reject,
	"no":       Reject,
	"false":    Reject,
}

// ParseDecision is the single interpretation of accept/reject strings used
// by every dimension.
func ParseDecision(raw string) Decision {
	return decisionVocabulary[normalizeToken(raw)]
}

// IsAcceptOrReject returns (true, true) for accept, (false, true) for reject,
// and (false, false) when the value is indeterminate.
func IsAcceptOrReject(raw string) (accept bool, ok bool) {
	switch ParseDecision(raw) {
	case Accept:
		return true, true
	case Reject:
		return false, true
	default:
		return false, false
	}
}

// SiteMatchResult is the parsed site_match.overall_result.
type SiteMatchResult int

// SiteMatchResult values.
const (
	SiteMatchUnavailable SiteMatchResult = iota
	SiteMatchLikely
	SiteMatchPossibly
	SiteMatchNotLikely
	SiteMatchUncertain
)

// ParseSiteMatch maps Likely, Possibly, Not Likely and Uncertain; anything
// else is unavailable.
func ParseSiteMatch(raw string) SiteMatchResult {
	switch normalizeToken(raw) {
	case "likely":
		return SiteMatchLikely
	case "possibly":
		return SiteMatchPossibly
	case "not likely":
		return SiteMatchNotLikely
	case "uncertain":
		return SiteMatchUncertain
	default:
		return SiteMatchUnavailable
	}
}

func normalizeToken(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
