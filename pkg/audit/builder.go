package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/triage/pkg/domain"
)

// ErrBundleSealed is returned by any Builder method called after Finalize.
var ErrBundleSealed = errors.New("audit bundle is finalized")

// Builder accumulates the artifacts of one run. It is owned by a single
// orchestrator run and is not safe for concurrent use.
type Builder struct {
	b      Bundle
	now    func() time.Time
	sealed bool
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.now = now
	}
}

// NewBuilder starts a bundle for the given inputs snapshot.
func NewBuilder(id string, inputs domain.PatientState, opts ...BuilderOption) *Builder {
	bl := &Builder{now: time.Now}
	for _, opt := range opts {
		opt(bl)
	}
	bl.b = Bundle{
		ID:            id,
		SchemaVersion: SchemaVersion,
		CreatedAt:     bl.now().UTC(),
		Inputs:        inputs.Clone(),
		Sources:       []domain.Citation{},
	}
	return bl
}

// Append records the artifact produced by stage.
func (bl *Builder) Append(stage domain.Stage, artifact any, version string) error {
	if bl.sealed {
		return ErrBundleSealed
	}
	rec := StageRecord{Stage: stage, Timestamp: bl.now().UTC(), ComponentVersion: version}
	if artifact != nil {
		raw, err := json.Marshal(artifact)
		if err != nil {
			return fmt.Errorf("failed to encode %s artifact: %w", stage, err)
		}
		rec.Artifact = raw
	}
	bl.b.Trail = append(bl.b.Trail, rec)
	return nil
}

// AppendFailure records a recovered capability failure for stage and notes
// the degradation.
func (bl *Builder) AppendFailure(stage domain.Stage, version string, cause error) error {
	if bl.sealed {
		return ErrBundleSealed
	}
	bl.b.Trail = append(bl.b.Trail, StageRecord{
		Stage:            stage,
		Timestamp:        bl.now().UTC(),
		ComponentVersion: version,
		Error:            cause.Error(),
	})
	bl.b.Degradations = append(bl.b.Degradations, fmt.Sprintf("%s: %v", stage, cause))
	return nil
}

// Update applies fn to the bundle under construction.
func (bl *Builder) Update(fn func(*Bundle)) error {
	if bl.sealed {
		return ErrBundleSealed
	}
	fn(&bl.b)
	return nil
}

// Degrade notes a missing or reduced part of the bundle.
func (bl *Builder) Degrade(note string) error {
	return bl.Update(func(b *Bundle) { b.Degradations = append(b.Degradations, note) })
}

// Finalize seals the builder and returns an independent copy of the bundle.
// Interrupted runs always require escalation and bypass sign-off.
func (bl *Builder) Finalize(terminal domain.Stage, reason *domain.InterruptReason, signoff bool) (*Bundle, error) {
	if bl.sealed {
		return nil, ErrBundleSealed
	}
	b := &bl.b
	b.Terminal = terminal
	b.FinalizedAt = bl.now().UTC()
	if reason != nil {
		r := *reason
		b.InterruptReason = &r
		b.RequiresEscalation = true
		b.SignoffRequired = false
	} else {
		b.SignoffRequired = signoff
	}
	b.Path, b.Consensus = Classify(b.InterruptReason, b.SignoffRequired)
	if err := bl.Append(terminal, nil, SchemaVersion); err != nil {
		return nil, err
	}
	bl.sealed = true
	return b.Clone()
}
