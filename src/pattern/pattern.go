// Package pattern defines the fixed table of threat and PII categories
// the engine matches against. The registry is built once at engine
// construction and is immutable afterwards, so it is safe to share
// across concurrent pipeline runs.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind classifies a category as an attack signature or as personally
// identifiable information.
type Kind int

const (
	// KindThreat marks categories that indicate an attack on the
	// downstream consumer (injection, traversal, script execution).
	KindThreat Kind = iota
	// KindPII marks categories whose matches are redacted rather than
	// treated as attacks.
	KindPII
)

func (k Kind) String() string {
	switch k {
	case KindThreat:
		return "threat"
	case KindPII:
		return "pii"
	default:
		return "unknown"
	}
}

// Category names. These appear verbatim in redaction tokens
// (e.g. [EMAIL_REDACTED]) and in scan results.
const (
	PromptInjection = "PROMPT_INJECTION"
	SQLInjection    = "SQL_INJECTION"
	XSS             = "XSS"
	PathTraversal   = "PATH_TRAVERSAL"
	APIKey          = "API_KEY"
	Email           = "EMAIL"
	Phone           = "PHONE"
	SSN             = "SSN"
	CreditCard      = "CREDIT_CARD"
	IPv4            = "IPV4"
)

// ThreatScanOrder is the fixed list of categories the scanner evaluates,
// in aggregation order. API_KEY is PII-kind but is scanned too: a match
// elevates severity even though redaction happens later.
var ThreatScanOrder = []string{PromptInjection, SQLInjection, XSS, PathTraversal, APIKey}

// PIIOrder is the fixed order in which the sanitizer applies redaction
// categories. The order is part of the engine's reproducibility contract.
var PIIOrder = []string{Email, Phone, SSN, CreditCard, IPv4}

// Category is an immutable descriptor pairing a name with its compiled
// matcher. For API_KEY the matcher captures the secret value in
// submatch 1 so redaction can preserve the assignment prefix.
type Category struct {
	Name    string
	Kind    Kind
	Matcher *regexp.Regexp
}

// builtin pattern sources. Matching is case-insensitive throughout; the
// API_KEY value capture requires at least 20 identifier-safe characters
// so ordinary words after "token:" do not trigger it.
var builtin = []struct {
	name   string
	kind   Kind
	source string
}{
	{PromptInjection, KindThreat, `ignore\s+(?:all\s+)?previous\s+instructions|system\s+override|disregard\s+(?:the\s+)?above|you\s+are\s+now|new\s+role|acting\s+as|forget\s+all\s+rules`},
	{SQLInjection, KindThreat, `SELECT\s+.*\s+FROM|INSERT\s+INTO|DROP\s+TABLE|DELETE\s+FROM|UNION\s+SELECT|SLEEP\(\d+\)|BENCHMARK\(\d+`},
	{XSS, KindThreat, `<script.*?>|javascript:|onload=|onerror=|eval\(|setTimeout\(|setInterval\(`},
	{PathTraversal, KindThreat, `\.\./|\.\.\\|/etc/passwd|/etc/shadow|C:\\Windows\\System32`},
	{APIKey, KindPII, `(?:api[\s_-]?key|secret|token|password|auth|access_key)[\s:=]+['"]?([A-Za-z0-9_\-.]{20,})`},
	{Email, KindPII, `\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`},
	{Phone, KindPII, `\b(?:\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`},
	{SSN, KindPII, `\b\d{3}-\d{2}-\d{4}\b`},
	{CreditCard, KindPII, `\b(?:\d[ -]*?){13,16}\b`},
	{IPv4, KindPII, `\b(?:\d{1,3}\.){3}\d{1,3}\b`},
}

// Registry maps category names to compiled categories while preserving
// declaration order for deterministic iteration.
type Registry struct {
	categories []Category
	byName     map[string]int
}

// Build compiles all builtin categories plus any custom prompt-injection
// patterns, which are appended to PROMPT_INJECTION as extra alternatives.
// A compile failure means the engine cannot start; callers should treat
// the error as fatal rather than retryable.
func Build(customInjection []string) (*Registry, error) {
	r := &Registry{
		categories: make([]Category, 0, len(builtin)),
		byName:     make(map[string]int, len(builtin)),
	}

	for i, c := range customInjection {
		if _, err := regexp.Compile(c); err != nil {
			return nil, fmt.Errorf("compiling custom injection pattern %d %q: %w", i, c, err)
		}
	}

	for _, b := range builtin {
		source := b.source
		if b.name == PromptInjection && len(customInjection) > 0 {
			source = combineAlternatives(source, customInjection)
		}

		re, err := regexp.Compile("(?i)(?:" + source + ")")
		if err != nil {
			return nil, fmt.Errorf("compiling %s pattern: %w", b.name, err)
		}

		r.byName[b.name] = len(r.categories)
		r.categories = append(r.categories, Category{Name: b.name, Kind: b.kind, Matcher: re})
	}

	return r, nil
}

// combineAlternatives merges the builtin source and the custom patterns
// into a single alternation.
func combineAlternatives(base string, custom []string) string {
	parts := make([]string, 0, len(custom)+1)
	parts = append(parts, "(?:"+base+")")
	for _, c := range custom {
		parts = append(parts, "(?:"+c+")")
	}
	return strings.Join(parts, "|")
}

// Categories returns all categories in declaration order.
func (r *Registry) Categories() []Category {
	return r.categories
}

// Lookup returns the category with the given name.
func (r *Registry) Lookup(name string) (Category, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Category{}, false
	}
	return r.categories[i], true
}

// Names returns all category names in declaration order. Used by the
// health snapshot.
func (r *Registry) Names() []string {
	names := make([]string, len(r.categories))
	for i, c := range r.categories {
		names[i] = c.Name
	}
	return names
}
