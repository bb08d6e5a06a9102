package audit

import "github.com/aretw0/triage/pkg/domain"

// Path classifies how a run ended.
type Path string

const (
	PathStandard               Path = "standard"
	PathDeterministicInterrupt Path = "deterministic_interrupt"
	PathDeterministicNoRx      Path = "deterministic_no_rx"
	PathSafetyInterrupt        Path = "safety_interrupt"
	PathValidatorInterrupt     Path = "validator_interrupt"
	PathVerifierInterrupt      Path = "verifier_interrupt"
	PathCanceled               Path = "canceled"
)

// Consensus labels shown to the reviewing clinician.
const (
	LabelDeterministicInterrupt = "Escalate to human (interrupt)"
	LabelNoAntibioticsOrRefer   = "No antibiotics / Refer"
	LabelSafetyInterrupt        = "Defer antibiotics; escalate to human (safety gate)"
	LabelValidatorInterrupt     = "Escalate to human (validator fail)"
	LabelVerifierInterrupt      = "Defer antibiotics; refer or revise plan (verifier)"
	LabelCanceled               = "Escalate to human (assessment canceled)"
	LabelTreatSignoff           = "Recommend treatment; prescriber sign-off required"
	LabelTreat                  = "Recommend treatment"
)

// Classify returns the path and consensus label for a terminal state.
func Classify(reason *domain.InterruptReason, signoff bool) (Path, string) {
	if reason == nil {
		if signoff {
			return PathStandard, LabelTreatSignoff
		}
		return PathStandard, LabelTreat
	}
	switch *reason {
	case domain.InterruptRedFlag:
		return PathDeterministicInterrupt, LabelDeterministicInterrupt
	case domain.InterruptDecision:
		return PathDeterministicNoRx, LabelNoAntibioticsOrRefer
	case domain.InterruptSafetyReject:
		return PathSafetyInterrupt, LabelSafetyInterrupt
	case domain.InterruptVerifierFlag:
		return PathVerifierInterrupt, LabelVerifierInterrupt
	case domain.InterruptCanceled:
		return PathCanceled, LabelCanceled
	}
	return PathValidatorInterrupt, LabelValidatorInterrupt
}
