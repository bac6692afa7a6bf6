package facility

import "testing"

func TestPhaseEligibility(t *testing.T) {
	tests := []struct {
		phase Phase
		want  []Status4D
	}{
		{PhaseAsIs, []Status4D{StatusExistingRetained, StatusExistingRemoved}},
		{PhaseToBe, []Status4D{StatusExistingRetained, StatusExistingRemoved, StatusProposed, StatusModified}},
		{PhaseFuture, []Status4D{StatusExistingRetained, StatusExistingRemoved, StatusProposed, StatusModified, StatusFuture}},
		{Phase("NEVER"), []Status4D{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			got := PhaseEligibility(tt.phase)
			if len(got) != len(tt.want) {
				t.Fatalf("PhaseEligibility(%s) = %v, want %v", tt.phase, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("PhaseEligibility(%s)[%d] = %s, want %s", tt.phase, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPhaseEligibilityIsCumulative(t *testing.T) {
	for i := 1; i < len(AllPhases); i++ {
		prev, cur := AllPhases[i-1], AllPhases[i]
		for _, s := range PhaseEligibility(prev) {
			if !Eligible(s, cur) {
				t.Errorf("%s eligible in %s but not in later phase %s", s, prev, cur)
			}
		}
	}
}

func TestPhaseEligibilityReturnsCopy(t *testing.T) {
	got := PhaseEligibility(PhaseAsIs)
	got[0] = StatusFuture
	if Eligible(StatusFuture, PhaseAsIs) {
		t.Fatal("mutating the returned slice changed the eligibility table")
	}
}

func TestVisibleIsPhaseAndToggle(t *testing.T) {
	toggles := Toggles{StatusExistingRetained: true, StatusProposed: true}

	if !Visible(StatusExistingRetained, PhaseAsIs, toggles) {
		t.Error("retained device should be visible in AS_IS with its toggle on")
	}
	if Visible(StatusProposed, PhaseAsIs, toggles) {
		t.Error("proposed device must not be visible in AS_IS even with its toggle on")
	}
	if Visible(StatusExistingRemoved, PhaseAsIs, toggles) {
		t.Error("removed device must not be visible when its toggle is absent")
	}
	if !Visible(StatusProposed, PhaseToBe, toggles) {
		t.Error("proposed device should be visible in TO_BE")
	}
}

func TestParseEnums(t *testing.T) {
	if s, err := ParseStatus4D("existing-retained"); err != nil || s != StatusExistingRetained {
		t.Errorf("ParseStatus4D = %q, %v", s, err)
	}
	if p, err := ParsePhase(" to_be "); err != nil || p != PhaseToBe {
		t.Errorf("ParsePhase = %q, %v", p, err)
	}
	if c, err := ParseCategory("gpu-server"); err != nil || c != CategoryGPUServer {
		t.Errorf("ParseCategory = %q, %v", c, err)
	}
	if _, err := ParsePhase("later"); err == nil {
		t.Error("expected error for unknown phase")
	}
	if _, err := ParseStatus4D(""); err == nil {
		t.Error("expected error for empty status")
	}
}

func TestDefaultTogglesEnableAll(t *testing.T) {
	tg := DefaultToggles()
	for _, s := range AllStatuses {
		if !tg[s] {
			t.Errorf("toggle %s disabled by default", s)
		}
	}
	c := tg.Clone()
	c[StatusFuture] = false
	if !tg[StatusFuture] {
		t.Error("Clone shares storage with the original")
	}
}
