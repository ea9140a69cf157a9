package engine

import (
	"strings"
	"time"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// ThreatLevel is the coarse severity attached to a scan outcome. Levels
// only ever go up within a single run.
type ThreatLevel int

const (
	ThreatLow ThreatLevel = iota
	ThreatHigh
	ThreatCritical
)

func (l ThreatLevel) String() string {
	switch l {
	case ThreatLow:
		return "low"
	case ThreatHigh:
		return "high"
	case ThreatCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Metrics captures per-phase timing and counters for one pipeline run.
type Metrics struct {
	InitializationMS float64 `json:"initialization_ms"`
	PreProcessingMS  float64 `json:"pre_processing_ms"`
	ScanningMS       float64 `json:"scanning_ms"`
	SanitizationMS   float64 `json:"sanitization_ms"`
	AuditingMS       float64 `json:"auditing_ms"`
	TotalDurationMS  float64 `json:"total_duration_ms"`
	ThreatsDetected  int     `json:"threats_detected"`
	PIIRedactedCount int     `json:"pii_redacted_count"`
	ContentLength    int     `json:"content_length"`
}

// ErrorEntry is one classified failure in a context's error trace. The
// trace is append-only and never cleared.
type ErrorEntry struct {
	Time    time.Time `json:"timestamp"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
}

// SecurityContext is the unit of work threaded through all phases. It is
// created once per Process call, owned exclusively by that call, and
// returned to the caller with its final state. Callers must treat any
// state other than StateCompleted as "do not trust SanitizedContent".
type SecurityContext struct {
	RequestID string `json:"request_id"`

	// Content is the input text. Pre-processing may rewrite it in place
	// when normalization strips evasion characters.
	Content string `json:"content"`

	// SanitizedContent is nil until the sanitization phase completes.
	SanitizedContent *string `json:"sanitized_content,omitempty"`

	ThreatLevel ThreatLevel `json:"threat_level"`

	// PIIDetected holds the literal matched substrings that were
	// redacted, grouped by category in application order. Callers must
	// not re-log these.
	PIIDetected []string `json:"pii_detected,omitempty"`

	State      State          `json:"state"`
	Metrics    Metrics        `json:"metrics"`
	ErrorTrace []ErrorEntry   `json:"error_trace,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`

	// Fingerprint is an xxhash of the original input, used in log lines
	// so content never appears in diagnostics.
	Fingerprint string `json:"fingerprint"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitzero"`
}

// newSecurityContext validates the raw input and builds a fresh context
// in StateIdle. hardLimit is the context-level size bound, above which
// input is rejected outright regardless of engine configuration.
func newSecurityContext(content string, hardLimit int) (*SecurityContext, *Error) {
	if strings.TrimSpace(content) == "" {
		return nil, newError(KindValidation, "content cannot be empty or whitespace")
	}
	if len(content) > hardLimit {
		return nil, newError(KindValidation, "content size %d exceeds hard limit %d", len(content), hardLimit)
	}

	sc := &SecurityContext{
		RequestID:   uuid.NewString(),
		Content:     content,
		ThreatLevel: ThreatLow,
		State:       StateIdle,
		Metadata:    map[string]any{},
		Fingerprint: fingerprint(content),
		StartTime:   time.Now().UTC(),
	}
	sc.Metrics.ContentLength = len(content)
	return sc, nil
}

// failedContext builds a minimal context for inputs rejected before a
// real context could be constructed. It carries a truncated snapshot of
// the offending input so the failure is still reportable.
func failedContext(content string, cause *Error) *SecurityContext {
	snapshot := content
	if runes := []rune(snapshot); len(runes) > 100 {
		snapshot = string(runes[:100])
	}
	if snapshot == "" {
		snapshot = "EMPTY"
	}

	sc := &SecurityContext{
		RequestID:   uuid.NewString(),
		Content:     snapshot,
		ThreatLevel: ThreatLow,
		State:       StateFailed,
		Metadata:    map[string]any{},
		Fingerprint: fingerprint(content),
		StartTime:   time.Now().UTC(),
	}
	sc.recordError(cause)
	return sc
}

// elevate raises the threat level. Levels are monotonic within a run;
// attempts to lower are ignored.
func (sc *SecurityContext) elevate(l ThreatLevel) {
	if l > sc.ThreatLevel {
		sc.ThreatLevel = l
	}
}

func (sc *SecurityContext) recordError(err error) {
	sc.ErrorTrace = append(sc.ErrorTrace, ErrorEntry{
		Time:    time.Now().UTC(),
		Kind:    classify(err).String(),
		Message: err.Error(),
	})
}

// LastError returns the most recent error trace message, or "" if the
// trace is empty.
func (sc *SecurityContext) LastError() string {
	if len(sc.ErrorTrace) == 0 {
		return ""
	}
	return sc.ErrorTrace[len(sc.ErrorTrace)-1].Message
}

// fingerprint returns a 16-hex-digit xxhash of s.
func fingerprint(s string) string {
	sum := xxhash.Sum64String(s)
	var buf [16]byte
	const hex = "0123456789abcdef"
	for i := 15; i >= 0; i-- {
		buf[i] = hex[sum&0xF]
		sum >>= 4
	}
	return string(buf[:])
}
