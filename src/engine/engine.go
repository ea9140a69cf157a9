// Package engine implements a bounded-time content security pipeline:
// it scans user-supplied text for injection attacks, redacts secrets and
// PII, and certifies the result safe for downstream use. One Engine is
// built per process and shared freely; each Process call owns its own
// SecurityContext.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Easy-Infra-Ltd/easy-content-guard/src/pattern"
)

// Version identifies the engine build in health reports and server
// handshakes.
const Version = "0.1.0"

// Default limits. All are overridable via Config.
const (
	DefaultMaxContentSize    = 250_000
	DefaultGlobalTimeout     = 15 * time.Second
	DefaultScanTimeout       = 2 * time.Second
	DefaultMaxRecursionDepth = 3
)

// Config holds the engine's tunable limits. Zero values fall back to the
// defaults above.
type Config struct {
	// MaxContentSize is the operational input bound in characters.
	// Inputs up to twice this size construct a context but fail during
	// initialization; larger inputs are rejected outright.
	MaxContentSize int

	// GlobalTimeout bounds one whole Process call.
	GlobalTimeout time.Duration

	// ScanTimeout bounds each individual pattern evaluation.
	ScanTimeout time.Duration

	// MaxRecursionDepth bounds nested engine invocations.
	MaxRecursionDepth int
}

func (c *Config) applyDefaults() {
	if c.MaxContentSize <= 0 {
		c.MaxContentSize = DefaultMaxContentSize
	}
	if c.GlobalTimeout <= 0 {
		c.GlobalTimeout = DefaultGlobalTimeout
	}
	if c.ScanTimeout <= 0 {
		c.ScanTimeout = DefaultScanTimeout
	}
	if c.MaxRecursionDepth <= 0 {
		c.MaxRecursionDepth = DefaultMaxRecursionDepth
	}
}

// Engine drives the fixed phase sequence over a shared, immutable
// pattern registry. Safe for concurrent use.
type Engine struct {
	cfg      Config
	registry *pattern.Registry
	logger   *slog.Logger
}

// New builds an engine. customInjection patterns extend the builtin
// prompt-injection matcher. A pattern compile failure is returned as an
// error and means the engine cannot be used at all; it is the only
// failure New reports.
func New(cfg Config, customInjection []string, logger *slog.Logger) (*Engine, error) {
	cfg.applyDefaults()

	reg, err := pattern.Build(customInjection)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		registry: reg,
		logger:   logger.With("area", "engine"),
	}
	e.logger.Info("engine initialized", "patterns", len(reg.Categories()))
	return e, nil
}

// Process runs the full pipeline over content and always returns a
// context — never nil, never a panic. Expected failures land in the
// context's error trace with State set to StateFailed; inputs rejected
// before context construction return a minimal failed context carrying a
// truncated snapshot. depth is the nesting level of the caller;
// top-level callers pass 0.
func (e *Engine) Process(ctx context.Context, content string, depth int) (sc *SecurityContext) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			if sc == nil {
				sc = failedContext(content, newError(KindInternal, "internal crash: %v", r))
			} else {
				e.handleFailure(sc, newError(KindInternal, "internal crash: %v", r))
			}
		}
		sc.Metrics.TotalDurationMS = msSince(start)
		sc.EndTime = time.Now().UTC()
		e.logger.Info("security processing finished",
			"request_id", sc.RequestID,
			"fingerprint", sc.Fingerprint,
			"state", sc.State.String(),
			"threat_level", sc.ThreatLevel.String(),
			"duration_ms", sc.Metrics.TotalDurationMS)
	}()

	var verr *Error
	sc, verr = newSecurityContext(content, 2*e.cfg.MaxContentSize)
	if verr != nil {
		sc = failedContext(content, verr)
		e.logger.Error("rejected before pipeline", "request_id", sc.RequestID, "err", verr)
		return sc
	}

	if depth > e.cfg.MaxRecursionDepth {
		e.handleFailure(sc, newError(KindResourceLimit,
			"maximum recursion depth %d exceeded", e.cfg.MaxRecursionDepth))
		return sc
	}

	pctx, cancel := context.WithTimeout(ctx, e.cfg.GlobalTimeout)
	defer cancel()

	if err := e.runPipeline(pctx, sc); err != nil {
		e.handleFailure(sc, err)
	}
	return sc
}

// runPipeline executes the phase sequence with strict transitions and
// per-phase timing. It returns the first phase failure; the caller is
// responsible for recording it and forcing StateFailed.
func (e *Engine) runPipeline(ctx context.Context, sc *SecurityContext) error {
	if err := e.transition(ctx, sc, StateInitializing); err != nil {
		return err
	}
	t := time.Now()
	if err := e.validateInitial(sc); err != nil {
		return err
	}
	sc.Metrics.InitializationMS = msSince(t)

	if err := e.transition(ctx, sc, StatePreProcessing); err != nil {
		return err
	}
	t = time.Now()
	e.preProcess(sc)
	sc.Metrics.PreProcessingMS = msSince(t)

	if err := e.transition(ctx, sc, StateScanning); err != nil {
		return err
	}
	t = time.Now()
	if err := e.scan(ctx, sc); err != nil {
		return err
	}
	sc.Metrics.ScanningMS = msSince(t)

	if err := e.transition(ctx, sc, StateSanitizing); err != nil {
		return err
	}
	t = time.Now()
	if err := e.sanitize(ctx, sc); err != nil {
		return err
	}
	sc.Metrics.SanitizationMS = msSince(t)

	if err := e.transition(ctx, sc, StateAuditing); err != nil {
		return err
	}
	t = time.Now()
	if err := e.audit(ctx, sc); err != nil {
		return err
	}
	sc.Metrics.AuditingMS = msSince(t)

	return e.transition(ctx, sc, StateCompleted)
}

// transition applies one state change, enforcing the transition table
// and the pipeline deadline at every phase boundary.
func (e *Engine) transition(ctx context.Context, sc *SecurityContext, target State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !canTransition(sc.State, target) {
		return newError(KindState, "illegal transition attempted: %s -> %s", sc.State, target)
	}
	e.logger.Debug("state transition",
		"request_id", sc.RequestID, "from", sc.State.String(), "to", target.String())
	sc.State = target
	return nil
}

// validateInitial re-checks static bounds against the configured limits.
func (e *Engine) validateInitial(sc *SecurityContext) error {
	if len(sc.Content) > e.cfg.MaxContentSize {
		return newError(KindResourceLimit,
			"content size %d exceeds limit %d", len(sc.Content), e.cfg.MaxContentSize)
	}
	return nil
}

// preProcess strips evasion characters ahead of scanning and records
// whether normalization changed the content.
func (e *Engine) preProcess(sc *SecurityContext) {
	cleaned, removed := normalizeContent(sc.Content)
	if removed == 0 && cleaned == sc.Content {
		return
	}

	e.logger.Warn("evasion characters removed during pre-processing",
		"request_id", sc.RequestID, "removed", removed)
	sc.Content = cleaned
	sc.Metadata["normalized"] = true
	sc.Metadata["characters_removed"] = removed
}

// Halt transitions a context to StateHalted on behalf of a caller that
// wants to abort without failing. Subject to the same transition table
// as every other state change.
func (e *Engine) Halt(sc *SecurityContext) error {
	if !canTransition(sc.State, StateHalted) {
		return newError(KindState, "illegal transition attempted: %s -> %s", sc.State, StateHalted)
	}
	sc.State = StateHalted
	return nil
}

// handleFailure classifies err, appends it to the error trace, and
// forces the context into StateFailed. Deadline expiry is converted to
// the timeout kind here so phases can return context errors raw.
func (e *Engine) handleFailure(sc *SecurityContext, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = newError(KindTimeout, "security pipeline timed out after %s", e.cfg.GlobalTimeout)
	} else if errors.Is(err, context.Canceled) {
		err = newError(KindTimeout, "security pipeline cancelled by caller")
	}

	sc.State = StateFailed
	sc.recordError(err)
	e.logger.Error("security processing failed",
		"request_id", sc.RequestID,
		"fingerprint", sc.Fingerprint,
		"kind", classify(err).String(),
		"err", err)
}

// Limits is the tunable boundary section of a health snapshot.
type Limits struct {
	MaxContentSize    int     `json:"max_content_size"`
	GlobalTimeoutSec  float64 `json:"global_timeout_sec"`
	ScanTimeoutSec    float64 `json:"scan_timeout_sec"`
	MaxRecursionDepth int     `json:"max_recursion_depth"`
}

// Health is a point-in-time operational snapshot of the engine.
type Health struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Limits    Limits    `json:"limits"`
	Patterns  []string  `json:"patterns_loaded"`
}

// Health reports engine status, configured limits, and loaded patterns.
func (e *Engine) Health() Health {
	return Health{
		Status:    "operational",
		Version:   Version,
		Timestamp: time.Now().UTC(),
		Limits: Limits{
			MaxContentSize:    e.cfg.MaxContentSize,
			GlobalTimeoutSec:  e.cfg.GlobalTimeout.Seconds(),
			ScanTimeoutSec:    e.cfg.ScanTimeout.Seconds(),
			MaxRecursionDepth: e.cfg.MaxRecursionDepth,
		},
		Patterns: e.registry.Names(),
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}
