package orchestrator

import (
	"fmt"
	"slices"

	"github.com/aretw0/triage/pkg/domain"
)

// MaxFeedbackRounds bounds the SafetyReview -> Reasoning edge.
const MaxFeedbackRounds = 1

var allowedTransitions = map[domain.Stage]map[domain.Stage]struct{}{
	domain.StageIntake: {
		domain.StageGateCheck:   {},
		domain.StageInterrupted: {},
	},
	domain.StageGateCheck: {
		domain.StageAssessed:    {},
		domain.StageInterrupted: {},
	},
	domain.StageAssessed: {
		domain.StageRouted:      {},
		domain.StageInterrupted: {},
	},
	domain.StageRouted: {
		domain.StageReasoning:   {},
		domain.StageValidate:    {},
		domain.StageInterrupted: {},
	},
	domain.StageReasoning: {
		domain.StageSafetyReview: {},
		domain.StageInterrupted:  {},
	},
	domain.StageSafetyReview: {
		domain.StageReasoning:   {},
		domain.StageRefine:      {},
		domain.StageInterrupted: {},
	},
	domain.StageRefine: {
		domain.StageValidate:    {},
		domain.StageInterrupted: {},
	},
	domain.StageValidate: {
		domain.StageAuditAssembly: {},
		domain.StageInterrupted:   {},
	},
	domain.StageAuditAssembly: {
		domain.StageEnrichment:  {},
		domain.StageInterrupted: {},
	},
	domain.StageEnrichment: {
		domain.StageSignoffRequired: {},
		domain.StageInterrupted:     {},
	},
	domain.StageSignoffRequired: {
		domain.StageFinal:       {},
		domain.StageInterrupted: {},
	},
	domain.StageFinal:       {},
	domain.StageInterrupted: {},
}

// ValidateStage reports whether s is a state of the machine.
func ValidateStage(s domain.Stage) error {
	if _, ok := allowedTransitions[s]; !ok {
		return fmt.Errorf("invalid stage: %q", s)
	}
	return nil
}

// ValidateTransition reports whether the machine may move from one state to another.
func ValidateTransition(from, to domain.Stage) error {
	if err := ValidateStage(from); err != nil {
		return err
	}
	if err := ValidateStage(to); err != nil {
		return err
	}
	if _, ok := allowedTransitions[from][to]; !ok {
		return fmt.Errorf("invalid stage transition: %s -> %s", from, to)
	}
	return nil
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s domain.Stage) bool {
	next, ok := allowedTransitions[s]
	return ok && len(next) == 0
}

// machine tracks the current state and the feedback counter of one run.
type machine struct {
	current  domain.Stage
	feedback int
}

func newMachine() *machine {
	return &machine{current: domain.StageIntake}
}

// advance moves to the next state. The SafetyReview -> Reasoning edge is
// refused once MaxFeedbackRounds have been taken.
func (m *machine) advance(to domain.Stage) (domain.Stage, error) {
	if err := ValidateTransition(m.current, to); err != nil {
		return m.current, err
	}
	if m.current == domain.StageSafetyReview && to == domain.StageReasoning {
		if m.feedback >= MaxFeedbackRounds {
			return m.current, fmt.Errorf("feedback rounds exhausted: %d/%d", m.feedback, MaxFeedbackRounds)
		}
		m.feedback++
	}
	from := m.current
	m.current = to
	return from, nil
}

// canFeedback reports whether another SafetyReview -> Reasoning round is allowed.
func (m *machine) canFeedback() bool {
	return m.feedback < MaxFeedbackRounds
}

// Transitions returns the machine's edges keyed by source state. Targets are
// sorted; terminal states map to an empty slice.
func Transitions() map[domain.Stage][]domain.Stage {
	out := make(map[domain.Stage][]domain.Stage, len(allowedTransitions))
	for from, next := range allowedTransitions {
		targets := make([]domain.Stage, 0, len(next))
		for to := range next {
			targets = append(targets, to)
		}
		slices.Sort(targets)
		out[from] = targets
	}
	return out
}
