package core

import (
	"regexp"
	"strings"

	"bankcrew/pkg/errors"
)

// placeholderRe matches substitution tokens like {topic} or {current_year}.
var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Placeholders returns the distinct placeholder names referenced by a
// template, in order of first appearance.
func Placeholders(template string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// RenderTemplate substitutes every {placeholder} in the template with its
// binding from inputs. Rendering fails if any referenced placeholder has no
// binding: a rendered prompt must never reach the model with an unresolved
// token.
func RenderTemplate(template string, inputs map[string]string) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(template, func(tok string) string {
		name := tok[1 : len(tok)-1]
		value, ok := inputs[name]
		if !ok {
			missing = append(missing, name)
			return tok
		}
		return value
	})
	if len(missing) > 0 {
		return "", errors.New(errors.CodeTemplate,
			"unresolved placeholders: "+strings.Join(dedupe(missing), ", "), nil).
			WithContext("placeholders", dedupe(missing))
	}
	return out, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
