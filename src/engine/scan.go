package engine

import (
	"context"
	"errors"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Easy-Infra-Ltd/easy-content-guard/src/pattern"
)

// scanFinding is one category's match outcome from a scan pass.
type scanFinding struct {
	category string
	matched  bool
}

// raceBudget runs fn on its own goroutine and waits for its result, the
// per-pattern budget, or the pipeline deadline, whichever comes first.
// An overrunning evaluation is abandoned: its goroutine finishes in the
// background and the result is discarded. Go's regexp engine is
// linear-time, so the race bounds caller-visible latency rather than
// guarding against backtracking blowup.
func raceBudget[T any](ctx context.Context, budget time.Duration, fn func() T) (T, error) {
	done := make(chan T, 1)
	go func() { done <- fn() }()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	var zero T
	select {
	case v := <-done:
		return v, nil
	case <-timer.C:
		return zero, errPatternBudget
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// scan evaluates every threat-scan category against the context's
// content concurrently, aggregates findings in registry order, and
// applies the severity decision logic. A single pattern exceeding its
// budget counts as no-match with a logged warning; it never fails the
// scan. Returns a threat-kind error only for a critical match, which
// aborts the remaining pipeline.
func (e *Engine) scan(ctx context.Context, sc *SecurityContext) error {
	findings := make([]scanFinding, len(pattern.ThreatScanOrder))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range pattern.ThreatScanOrder {
		cat, ok := e.registry.Lookup(name)
		if !ok {
			return newError(KindInternal, "scan category %s missing from registry", name)
		}

		g.Go(func() error {
			matched, err := e.matchBudgeted(gctx, sc, cat.Matcher, sc.Content, name)
			if err != nil {
				return err
			}
			findings[i] = scanFinding{category: name, matched: matched}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, f := range findings {
		if !f.matched {
			continue
		}
		switch f.category {
		case pattern.PromptInjection:
			sc.elevate(ThreatCritical)
			sc.Metrics.ThreatsDetected++
			return newError(KindThreat, "severe prompt injection attempt detected")

		case pattern.SQLInjection, pattern.XSS, pattern.PathTraversal:
			sc.elevate(ThreatHigh)
			sc.Metrics.ThreatsDetected++
			e.logger.Warn("threat pattern detected",
				"request_id", sc.RequestID, "category", f.category)

		case pattern.APIKey:
			sc.elevate(ThreatHigh)
			sc.Metrics.ThreatsDetected++
			e.logger.Warn("potential API key or secret detected",
				"request_id", sc.RequestID)
		}
	}
	return nil
}

// matchBudgeted runs a single match test under the per-pattern budget.
// Budget overruns are tolerated (no match, logged warning); pipeline
// deadline expiry is not.
func (e *Engine) matchBudgeted(ctx context.Context, sc *SecurityContext, re *regexp.Regexp, content, category string) (bool, error) {
	matched, err := raceBudget(ctx, e.cfg.ScanTimeout, func() bool {
		return re.MatchString(content)
	})
	if err != nil {
		if errors.Is(err, errPatternBudget) {
			e.logger.Warn("pattern scan exceeded budget, treated as no match",
				"request_id", sc.RequestID, "category", category, "budget", e.cfg.ScanTimeout)
			return false, nil
		}
		return false, err
	}
	return matched, nil
}
