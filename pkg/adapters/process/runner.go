package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/triage/internal/logging"
	"github.com/aretw0/triage/pkg/domain"
)

// Runner is an agent transport that executes local processes. Only
// registered roles can run (allow-listing). The request is written to stdin
// as JSON and the process must print one JSON object on stdout.
type Runner struct {
	registry map[string]registeredProcess
	baseDir  string
	logger   *slog.Logger
}

type registeredProcess struct {
	command string
	args    []string
	env     map[string]string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(agents map[string]AgentConfig) RunnerOption {
	return func(r *Runner) {
		for role, a := range agents {
			r.register(role, a.Command, a.Args, a.Environment)
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a new process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]registeredProcess),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list for role.
func (r *Runner) Register(role, command string, args ...string) {
	r.register(role, command, args, nil)
}

func (r *Runner) register(role, command string, args []string, env map[string]string) {
	r.registry[role] = registeredProcess{command: command, args: args, env: env}
}

// Roles lists the registered roles in order.
func (r *Runner) Roles() []string {
	roles := make([]string, 0, len(r.registry))
	for role := range r.registry {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// Has reports whether role is registered.
func (r *Runner) Has(role string) bool {
	_, ok := r.registry[role]
	return ok
}

// Call runs the process registered for role. Start and exit failures are
// unavailable; output that is not a JSON object is invalid output. The
// process is killed when ctx ends.
func (r *Runner) Call(ctx context.Context, role string, input any) (map[string]any, error) {
	proc, ok := r.registry[role]
	if !ok {
		return nil, &domain.CapabilityError{
			Port: role,
			Kind: domain.CapabilityUnavailable,
			Err:  fmt.Errorf("no process registered for role %q", role),
		}
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", role, err)
	}

	// Input travels on stdin only, never as arguments.
	cmd := exec.CommandContext(ctx, proc.command, proc.args...)
	cmd.Dir = r.baseDir
	env := cmd.Environ()
	for k, v := range proc.env {
		env = append(env, k+"="+v)
	}
	cmd.Env = append(env, "TRIAGE_AGENT_ROLE="+role)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("agent process failed", "role", role, "error", err, "stderr", strings.TrimSpace(stderr.String()))
		return nil, &domain.CapabilityError{
			Port: role,
			Kind: domain.CapabilityUnavailable,
			Err:  fmt.Errorf("execution failed: %w: %s", err, strings.TrimSpace(stderr.String())),
		}
	}

	out, err := decodeObject(stdout.Bytes())
	if err != nil {
		return nil, &domain.CapabilityError{Port: role, Kind: domain.CapabilityInvalidOutput, Err: err}
	}
	return out, nil
}

// waitDelay bounds how long Call waits for output pipes after the process
// is killed.
const waitDelay = time.Second

var errNotObject = errors.New("agent output is not a JSON object")

func decodeObject(data []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errNotObject
	}
	var out map[string]any
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
