package facility

import (
	"fmt"
	"strings"
)

// Status4D is the lifecycle tag carried by one device snapshot.
type Status4D string

const (
	StatusExistingRetained Status4D = "EXISTING_RETAINED"
	StatusExistingRemoved  Status4D = "EXISTING_REMOVED"
	StatusProposed         Status4D = "PROPOSED"
	StatusFuture           Status4D = "FUTURE"
	StatusModified         Status4D = "MODIFIED"
)

// AllStatuses lists every Status4D in display order.
var AllStatuses = []Status4D{
	StatusExistingRetained,
	StatusExistingRemoved,
	StatusProposed,
	StatusModified,
	StatusFuture,
}

// Valid reports whether s is one of the known statuses.
func (s Status4D) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func (s Status4D) String() string { return string(s) }

// ParseStatus4D accepts any case and either '-' or '_' as separator.
func ParseStatus4D(s string) (Status4D, error) {
	v := Status4D(normalizeEnum(s))
	if !v.Valid() {
		return "", fmt.Errorf("unknown status4D %q", s)
	}
	return v, nil
}

// Phase is a temporal lens selecting which statuses are eligible for display.
type Phase string

const (
	PhaseAsIs   Phase = "AS_IS"
	PhaseToBe   Phase = "TO_BE"
	PhaseFuture Phase = "FUTURE"
)

// AllPhases lists the phases from earliest to latest.
var AllPhases = []Phase{PhaseAsIs, PhaseToBe, PhaseFuture}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	_, ok := phaseEligibility[p]
	return ok
}

func (p Phase) String() string { return string(p) }

// ParsePhase accepts any case and either '-' or '_' as separator.
func ParsePhase(s string) (Phase, error) {
	v := Phase(normalizeEnum(s))
	if !v.Valid() {
		return "", fmt.Errorf("unknown phase %q", s)
	}
	return v, nil
}

// phaseEligibility is the only place that decides which statuses a phase shows.
// Each later phase is a superset of the one before it.
var phaseEligibility = map[Phase][]Status4D{
	PhaseAsIs: {
		StatusExistingRetained,
		StatusExistingRemoved,
	},
	PhaseToBe: {
		StatusExistingRetained,
		StatusExistingRemoved,
		StatusProposed,
		StatusModified,
	},
	PhaseFuture: {
		StatusExistingRetained,
		StatusExistingRemoved,
		StatusProposed,
		StatusModified,
		StatusFuture,
	},
}

// PhaseEligibility returns a copy of the statuses eligible in phase.
// An unknown phase yields an empty set.
func PhaseEligibility(phase Phase) []Status4D {
	src := phaseEligibility[phase]
	out := make([]Status4D, len(src))
	copy(out, src)
	return out
}

// Eligible reports whether status is displayable under phase.
func Eligible(status Status4D, phase Phase) bool {
	for _, s := range phaseEligibility[phase] {
		if s == status {
			return true
		}
	}
	return false
}

// Toggles holds the user's per-status visibility switches. A status absent
// from the map is treated as switched off.
type Toggles map[Status4D]bool

// DefaultToggles enables every status.
func DefaultToggles() Toggles {
	t := make(Toggles, len(AllStatuses))
	for _, s := range AllStatuses {
		t[s] = true
	}
	return t
}

// Clone returns an independent copy.
func (t Toggles) Clone() Toggles {
	out := make(Toggles, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Visible is the phase ∩ toggle rule applied to one status.
func Visible(status Status4D, phase Phase, toggles Toggles) bool {
	return Eligible(status, phase) && toggles[status]
}

func normalizeEnum(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ToUpper(s)
}

// UnmarshalText normalizes case and separators without rejecting unknown
// values; an unknown status simply never becomes eligible.
func (s *Status4D) UnmarshalText(b []byte) error {
	*s = Status4D(normalizeEnum(string(b)))
	return nil
}

// UnmarshalText normalizes case and separators.
func (p *Phase) UnmarshalText(b []byte) error {
	*p = Phase(normalizeEnum(string(b)))
	return nil
}
