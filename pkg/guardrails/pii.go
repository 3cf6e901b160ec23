// Package guardrails filters agent output before it reaches users or
// reports. For a banking assistant the main concern is PII leaking into
// generated advisory text.
package guardrails

import (
	"context"
	"regexp"
)

// FilterMode determines how detected PII is handled.
type FilterMode int

const (
	// FilterMask replaces PII with typed placeholders such as "[SSN]".
	FilterMask FilterMode = iota
	// FilterRedact removes PII entirely.
	FilterRedact
)

// PIIType categorizes the kinds of PII the filter detects.
type PIIType string

const (
	PIITypeCreditCard    PIIType = "credit_card"
	PIITypeSSN           PIIType = "ssn"
	PIITypeAccountNumber PIIType = "account_number"
	PIITypeIBAN          PIIType = "iban"
	PIITypeEmail         PIIType = "email"
	PIITypePhone         PIIType = "phone"
)

type piiPattern struct {
	piiType PIIType
	pattern *regexp.Regexp
	mask    string
}

// Pattern order matters: more specific financial identifiers are matched
// before the generic phone pattern they overlap with.
var defaultPatterns = []struct {
	piiType PIIType
	pattern string
	mask    string
}{
	{PIITypeCreditCard, `\b[0-9]{4}[-\s]?[0-9]{4}[-\s]?[0-9]{4}[-\s]?[0-9]{4}\b`, "[CREDIT_CARD]"},
	{PIITypeCreditCard, `\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13})\b`, "[CREDIT_CARD]"},
	{PIITypeSSN, `\b[0-9]{3}[-\s][0-9]{2}[-\s][0-9]{4}\b`, "[SSN]"},
	{PIITypeIBAN, `\b[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}\b`, "[IBAN]"},
	// Account numbers only match when labeled, to avoid eating every
	// long number in an advisory report.
	{PIITypeAccountNumber, `(?i)\b(?:account|acct)\.?\s*(?:number|no\.?|#)?[:\s]\s*[0-9]{6,17}\b`, "[ACCOUNT_NUMBER]"},
	{PIITypeEmail, `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "[EMAIL]"},
	{PIITypePhone, `\+?1?[-.\s]?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s][0-9]{4}\b`, "[PHONE]"},
}

// Redaction records one replacement made by the filter. The original text is
// never stored.
type Redaction struct {
	Type        string
	Replacement string
	Position    int
}

// FilterResult is the outcome of filtering one piece of output.
type FilterResult struct {
	Content    string
	Modified   bool
	Redactions []Redaction
}

// PIIFilter detects and masks personally identifiable information.
type PIIFilter struct {
	mode     FilterMode
	patterns []piiPattern
	enabled  map[PIIType]bool
}

// Option configures the PII filter.
type Option func(*PIIFilter)

// NewPIIFilter creates a filter with all banking PII types enabled.
func NewPIIFilter(mode FilterMode, opts ...Option) *PIIFilter {
	f := &PIIFilter{
		mode:    mode,
		enabled: make(map[PIIType]bool),
	}
	for _, p := range defaultPatterns {
		f.enabled[p.piiType] = true
		f.patterns = append(f.patterns, piiPattern{
			piiType: p.piiType,
			pattern: regexp.MustCompile(p.pattern),
			mask:    p.mask,
		})
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithTypes enables only the given PII types.
func WithTypes(types ...PIIType) Option {
	return func(f *PIIFilter) {
		for k := range f.enabled {
			f.enabled[k] = false
		}
		for _, t := range types {
			f.enabled[t] = true
		}
	}
}

// WithExclude disables the given PII types.
func WithExclude(types ...PIIType) Option {
	return func(f *PIIFilter) {
		for _, t := range types {
			f.enabled[t] = false
		}
	}
}

// Filter masks or redacts PII in the output.
func (f *PIIFilter) Filter(ctx context.Context, output string) FilterResult {
	result := FilterResult{Content: output}
	if output == "" {
		return result
	}

	for _, p := range f.patterns {
		if !f.enabled[p.piiType] {
			continue
		}
		select {
		case <-ctx.Done():
			return result
		default:
		}

		matches := p.pattern.FindAllStringIndex(result.Content, -1)
		// Replace in reverse so earlier positions stay valid.
		for i := len(matches) - 1; i >= 0; i-- {
			m := matches[i]
			replacement := p.mask
			if f.mode == FilterRedact {
				replacement = ""
			}
			result.Redactions = append(result.Redactions, Redaction{
				Type:        string(p.piiType),
				Replacement: replacement,
				Position:    m[0],
			})
			result.Content = result.Content[:m[0]] + replacement + result.Content[m[1]:]
			result.Modified = true
		}
	}
	return result
}
