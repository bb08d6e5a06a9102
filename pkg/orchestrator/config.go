package orchestrator

import (
	"log/slog"
	"time"

	"github.com/aretw0/triage/internal/logging"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/ports"
)

// Config is passed to the orchestrator at construction. There is no
// process-wide configuration.
type Config struct {
	// StrictInterrupts ends the run as soon as a safety review rejects the
	// regimen. When false the run continues to the validator, which fails
	// closed on a rejected review.
	StrictInterrupts bool `mapstructure:"strict_interrupts"`

	// DoctorSummaryOnReferral invokes the summarizer on referral paths.
	DoctorSummaryOnReferral bool `mapstructure:"doctor_summary_on_referral"`

	// PrescriberSignoffRequired marks final plans as requiring sign-off.
	PrescriberSignoffRequired bool `mapstructure:"prescriber_signoff_required"`

	// HonorVerifierEscalation turns a verifier escalation into Interrupted(verifier_flag).
	HonorVerifierEscalation bool `mapstructure:"honor_verifier_escalation"`

	// PortTimeout bounds every single advisory call attempt.
	PortTimeout time.Duration `mapstructure:"port_timeout"`

	// RetryBackoff is the fixed wait before the retry.
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`

	// MaxRetries is clamped to 0 or 1.
	MaxRetries int `mapstructure:"max_retries"`

	// ConfidenceThreshold below which the verifier is invoked.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

// DefaultConfig returns the safe defaults.
func DefaultConfig() Config {
	return Config{
		StrictInterrupts:          true,
		DoctorSummaryOnReferral:   true,
		PrescriberSignoffRequired: true,
		HonorVerifierEscalation:   false,
		PortTimeout:               30 * time.Second,
		RetryBackoff:              500 * time.Millisecond,
		MaxRetries:                1,
		ConfidenceThreshold:       0.8,
	}
}

func (c Config) attempts() int {
	if c.MaxRetries <= 0 {
		return 1
	}
	return 2
}

func (c Config) timeout() time.Duration {
	if c.PortTimeout <= 0 {
		return DefaultConfig().PortTimeout
	}
	return c.PortTimeout
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithConfig sets the run configuration.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		o.cfg = cfg
	}
}

// WithReasoner sets the clinical-reasoning agent.
func WithReasoner(r ports.Reasoner) Option {
	return func(o *Orchestrator) {
		o.reasoner = r
	}
}

// WithSafetyReviewer sets the pharmacist agent.
func WithSafetyReviewer(r ports.SafetyReviewer) Option {
	return func(o *Orchestrator) {
		o.reviewer = r
	}
}

// WithSummarizer sets the referral summarizer.
func WithSummarizer(s ports.Summarizer) Option {
	return func(o *Orchestrator) {
		o.summarizer = s
	}
}

// WithVerifier sets the verifier.
func WithVerifier(v ports.Verifier) Option {
	return func(o *Orchestrator) {
		o.verifier = v
	}
}

// WithEvidenceSynthesizer sets the evidence-synthesis agent.
func WithEvidenceSynthesizer(e ports.EvidenceSynthesizer) Option {
	return func(o *Orchestrator) {
		o.evidence = e
	}
}

// WithValidator replaces the in-process state validator.
func WithValidator(v ports.StateValidator) Option {
	return func(o *Orchestrator) {
		o.validator = v
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger == nil {
			logger = logging.NewNop()
		}
		o.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = o.hooks.Merge(hooks)
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithIDGenerator sets the generator for assessment IDs.
func WithIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) {
		o.newID = gen
	}
}
