package engine

import (
	"strings"
	"testing"
)

func TestNewSecurityContext_Valid(t *testing.T) {
	sc, err := newSecurityContext("hello world", 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.RequestID == "" {
		t.Error("request id should be set")
	}
	if sc.State != StateIdle {
		t.Errorf("state = %v, want idle", sc.State)
	}
	if sc.ThreatLevel != ThreatLow {
		t.Errorf("threat level = %v, want low", sc.ThreatLevel)
	}
	if sc.SanitizedContent != nil {
		t.Error("sanitized content must be nil before sanitization")
	}
	if sc.Metrics.ContentLength != len("hello world") {
		t.Errorf("content length = %d", sc.Metrics.ContentLength)
	}
	if sc.Fingerprint == "" || len(sc.Fingerprint) != 16 {
		t.Errorf("fingerprint = %q, want 16 hex digits", sc.Fingerprint)
	}
}

func TestNewSecurityContext_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t  "},
		{"over hard limit", strings.Repeat("a", 1001)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newSecurityContext(tt.content, 1000)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if err.Kind != KindValidation {
				t.Errorf("kind = %v, want validation", err.Kind)
			}
		})
	}
}

func TestFailedContext_TruncatesSnapshot(t *testing.T) {
	long := strings.Repeat("x", 5000)
	sc := failedContext(long, newError(KindValidation, "too big"))

	if sc.State != StateFailed {
		t.Errorf("state = %v, want failed", sc.State)
	}
	if len(sc.Content) > 100 {
		t.Errorf("snapshot length = %d, want <= 100", len(sc.Content))
	}
	if len(sc.ErrorTrace) != 1 {
		t.Fatalf("error trace length = %d, want 1", len(sc.ErrorTrace))
	}
	if sc.ErrorTrace[0].Kind != "validation" {
		t.Errorf("trace kind = %q", sc.ErrorTrace[0].Kind)
	}
}

func TestElevate_Monotonic(t *testing.T) {
	sc, err := newSecurityContext("x", 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sc.elevate(ThreatHigh)
	if sc.ThreatLevel != ThreatHigh {
		t.Errorf("level = %v, want high", sc.ThreatLevel)
	}
	sc.elevate(ThreatLow)
	if sc.ThreatLevel != ThreatHigh {
		t.Error("level must never downgrade")
	}
	sc.elevate(ThreatCritical)
	if sc.ThreatLevel != ThreatCritical {
		t.Errorf("level = %v, want critical", sc.ThreatLevel)
	}
	sc.elevate(ThreatHigh)
	if sc.ThreatLevel != ThreatCritical {
		t.Error("level must never downgrade from critical")
	}
}

func TestFingerprint_Stable(t *testing.T) {
	a := fingerprint("same input")
	b := fingerprint("same input")
	c := fingerprint("different input")
	if a != b {
		t.Error("fingerprint should be deterministic")
	}
	if a == c {
		t.Error("different inputs should fingerprint differently")
	}
}

func TestLastError(t *testing.T) {
	sc, err := newSecurityContext("x", 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.LastError() != "" {
		t.Error("empty trace should yield empty last error")
	}
	sc.recordError(newError(KindValidation, "first"))
	sc.recordError(newError(KindThreat, "second"))
	if sc.LastError() != "second" {
		t.Errorf("last error = %q, want %q", sc.LastError(), "second")
	}
}
