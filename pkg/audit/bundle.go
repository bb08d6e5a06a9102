// Package audit defines the append-only record of one assessment and the
// repository that persists it.
package audit

import (
	"encoding/json"
	"time"

	"github.com/aretw0/triage/pkg/domain"
)

// SchemaVersion is written into every bundle.
const SchemaVersion = "v1"

// StageRecord is one entry of the stage trail.
type StageRecord struct {
	Stage            domain.Stage    `json:"stage"`
	Artifact         json.RawMessage `json:"artifact,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
	ComponentVersion string          `json:"component_version"`
	// Error records a recovered capability failure for the stage.
	Error string `json:"error,omitempty"`
}

// Bundle is the reconstructible record of one assessment. A finalized bundle
// is never mutated; a new assessment produces a new bundle.
type Bundle struct {
	ID            string              `json:"id"`
	SchemaVersion string              `json:"schema_version"`
	CreatedAt     time.Time           `json:"created_at"`
	FinalizedAt   time.Time           `json:"finalized_at"`
	Inputs        domain.PatientState `json:"inputs"`
	Trail         []StageRecord       `json:"stage_trail"`

	Outcome       *domain.AssessmentOutcome  `json:"outcome,omitempty"`
	FinalDecision domain.Decision            `json:"final_decision"`
	FinalRegimen  *domain.ProposedRegimen    `json:"final_regimen,omitempty"`
	Validation    *domain.ValidationResult   `json:"validation,omitempty"`
	Verification  *domain.VerificationReport `json:"verification,omitempty"`
	Summary       *domain.DoctorSummary      `json:"doctor_summary,omitempty"`
	FollowUp      *domain.FollowUpPlan       `json:"follow_up,omitempty"`

	Sources      []domain.Citation `json:"sources"`
	Degradations []string          `json:"degradations,omitempty"`
	Confidence   *float64          `json:"confidence"`

	Terminal           domain.Stage            `json:"terminal"`
	InterruptReason    *domain.InterruptReason `json:"interrupt_reason"`
	RequiresEscalation bool                    `json:"requires_escalation"`
	SignoffRequired    bool                    `json:"signoff_required"`
	Path               Path                    `json:"path"`
	Consensus          string                  `json:"consensus"`
}

// Actionable reports whether the plan may be acted on after prescriber sign-off.
func (b *Bundle) Actionable() bool {
	return b.Terminal == domain.StageFinal && b.InterruptReason == nil
}

// Stage returns the last trail record for stage.
func (b *Bundle) Stage(stage domain.Stage) (StageRecord, bool) {
	for i := len(b.Trail) - 1; i >= 0; i-- {
		if b.Trail[i].Stage == stage {
			return b.Trail[i], true
		}
	}
	return StageRecord{}, false
}

// Clone returns a deep copy via the JSON representation, which is the
// bundle's canonical form.
func (b *Bundle) Clone() (*Bundle, error) {
	data, err := Encode(b)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Encode serializes a bundle.
func Encode(b *Bundle) ([]byte, error) {
	return json.Marshal(b)
}

// Decode deserializes a bundle.
func Decode(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
