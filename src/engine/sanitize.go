package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/Easy-Infra-Ltd/easy-content-guard/src/pattern"
)

// secretToken replaces the value part of a matched secret assignment.
const secretToken = "[REDACTED_SECRET]"

// sanitize redacts every PII category in fixed order, then applies the
// specialized secret redaction. Unlike the scanner, any pattern budget
// overrun here is fatal: content that could not be fully inspected must
// not pass through.
func (e *Engine) sanitize(ctx context.Context, sc *SecurityContext) error {
	sanitized := sc.Content

	for _, name := range pattern.PIIOrder {
		cat, ok := e.registry.Lookup(name)
		if !ok {
			return newError(KindInternal, "pii category %s missing from registry", name)
		}

		matches, err := raceBudget(ctx, e.cfg.ScanTimeout, func() []string {
			return cat.Matcher.FindAllString(sanitized, -1)
		})
		if err != nil {
			return sanitizeBudgetError(name, err)
		}
		if len(matches) == 0 {
			continue
		}

		sc.PIIDetected = append(sc.PIIDetected, matches...)
		token := "[" + name + "_REDACTED]"

		sanitized, err = raceBudget(ctx, e.cfg.ScanTimeout, func() string {
			return cat.Matcher.ReplaceAllString(sanitized, token)
		})
		if err != nil {
			return sanitizeBudgetError(name, err)
		}
		sc.Metrics.PIIRedactedCount += len(matches)
	}

	apiKey, ok := e.registry.Lookup(pattern.APIKey)
	if !ok {
		return newError(KindInternal, "pii category %s missing from registry", pattern.APIKey)
	}

	type secretResult struct {
		content string
		count   int
	}
	res, err := raceBudget(ctx, e.cfg.ScanTimeout, func() secretResult {
		out, n := redactSecrets(apiKey, sanitized)
		return secretResult{content: out, count: n}
	})
	if err != nil {
		return sanitizeBudgetError(pattern.APIKey, err)
	}
	sc.Metrics.PIIRedactedCount += res.count

	sc.SanitizedContent = &res.content
	return nil
}

// redactSecrets replaces only the secret value of each assignment-style
// match, preserving everything up to and including the assignment
// operator so surrounding sentence structure survives. The secret value
// is submatch 1 of the API_KEY matcher.
func redactSecrets(cat pattern.Category, content string) (string, int) {
	idx := cat.Matcher.FindAllStringSubmatchIndex(content, -1)
	if len(idx) == 0 {
		return content, 0
	}

	var b strings.Builder
	b.Grow(len(content))

	last := 0
	for _, m := range idx {
		// m[2], m[3] bound submatch 1: the secret value.
		if len(m) < 4 || m[2] < 0 {
			continue
		}
		b.WriteString(content[last:m[2]])
		b.WriteString(secretToken)
		last = m[3]
	}
	b.WriteString(content[last:])

	return b.String(), len(idx)
}

func sanitizeBudgetError(category string, err error) error {
	if errors.Is(err, errPatternBudget) {
		return newError(KindResourceLimit, "sanitizing %s exceeded the pattern budget", category)
	}
	return err
}
