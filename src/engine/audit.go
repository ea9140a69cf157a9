package engine

import (
	"context"
	"errors"

	"github.com/Easy-Infra-Ltd/easy-content-guard/src/pattern"
)

// audit runs the post-sanitization consistency checks, in order:
// sanitized output must exist, must not still match the critical
// injection pattern, and must not have grown past twice the configured
// content limit.
func (e *Engine) audit(ctx context.Context, sc *SecurityContext) error {
	if sc.SanitizedContent == nil {
		return newError(KindInternal, "sanitized content missing after sanitization phase")
	}
	sanitized := *sc.SanitizedContent

	injection, ok := e.registry.Lookup(pattern.PromptInjection)
	if !ok {
		return newError(KindInternal, "audit category %s missing from registry", pattern.PromptInjection)
	}

	persisted, err := raceBudget(ctx, e.cfg.ScanTimeout, func() bool {
		return injection.Matcher.MatchString(sanitized)
	})
	if err != nil {
		if errors.Is(err, errPatternBudget) {
			return newError(KindResourceLimit, "audit re-scan exceeded the pattern budget")
		}
		return err
	}
	if persisted {
		sc.elevate(ThreatCritical)
		return newError(KindThreat, "critical threat persisted after sanitization")
	}

	if len(sanitized) > 2*e.cfg.MaxContentSize {
		return newError(KindResourceLimit,
			"sanitized output size %d exceeds amplification bound %d", len(sanitized), 2*e.cfg.MaxContentSize)
	}

	return nil
}
