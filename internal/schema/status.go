package schema

import "strings"

// Status is the application stage of a job. The zero value is not a valid
// status; use ParseStatus to obtain one from untrusted input.
type Status string

const (
	StatusSaved             Status = "SAVED"
	StatusApplied           Status = "APPLIED"
	StatusInterviewing      Status = "INTERVIEWING"
	StatusOffer             Status = "OFFER"
	StatusResumeRejected    Status = "RESUME_REJECTED"
	StatusInterviewRejected Status = "INTERVIEW_REJECTED"
)

// legacyRejected is the single rejection label used before the rejection
// stage was split in two.
const legacyRejected = "REJECTED"

var allStatuses = []Status{
	StatusSaved,
	StatusApplied,
	StatusInterviewing,
	StatusOffer,
	StatusResumeRejected,
	StatusInterviewRejected,
}

// Statuses returns every status in display order.
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// String returns the canonical label, e.g. "RESUME_REJECTED".
func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// DisplayName renders the status for people: the two rejection stages use
// hyphens, everything else uses spaces.
func (s Status) DisplayName() string {
	switch s {
	case StatusResumeRejected:
		return "RESUME-REJECTED"
	case StatusInterviewRejected:
		return "INTERVIEW-REJECTED"
	default:
		return strings.ReplaceAll(string(s), "_", " ")
	}
}

// normalizeLabel upper-cases the label and folds '-' and ' ' into '_'.
func normalizeLabel(value string) string {
	v := strings.ToUpper(strings.TrimSpace(value))
	v = strings.ReplaceAll(v, "-", "_")
	v = strings.Join(strings.Fields(strings.ReplaceAll(v, "_", " ")), "_")
	return v
}

// LookupStatus is the strict form of ParseStatus. It reports false for
// labels that are not part of the vocabulary (legacy REJECTED is accepted).
func LookupStatus(value string) (Status, bool) {
	normalized := normalizeLabel(value)
	if normalized == legacyRejected {
		return StatusResumeRejected, true
	}
	s := Status(normalized)
	if !s.Valid() {
		return "", false
	}
	return s, true
}

// ParseStatus maps any label to a status and never fails. Case and
// separators are ignored, the legacy REJECTED label maps to RESUME_REJECTED,
// and anything unrecognized falls back to SAVED.
//
// CSV files and older spreadsheet rows carry stale label sets, so callers
// reading external data should always go through this function.
func ParseStatus(value string) Status {
	if s, ok := LookupStatus(value); ok {
		return s
	}
	return StatusSaved
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseStatus, so
// decoding never fails on an unknown label.
func (s *Status) UnmarshalText(text []byte) error {
	*s = ParseStatus(string(text))
	return nil
}
