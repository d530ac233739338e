// Package tokens implements the {namespace:key} placeholder language used
// by policy documents and notification templates. A template is resolved
// one namespace at a time; placeholders belonging to other namespaces are
// left untouched so later passes can pick them up.
package tokens

import (
	"regexp"
	"strings"
)

// placeholderPattern matches a single {namespace:key} token. Namespace and
// key never contain braces or colons.
var placeholderPattern = regexp.MustCompile(`\{([^{}:]+):([^{}]+)\}`)

// Substitute replaces every {namespace:key} placeholder in template whose
// namespace matches the given namespace with the corresponding attribute
// value. Namespace and key comparisons are case-insensitive. A placeholder
// whose key has no attribute is left as literal text rather than replaced
// with an empty string, so operators can spot misconfigured templates in
// the rendered output.
func Substitute(template, namespace string, attributes map[string]string) string {
	if template == "" || len(attributes) == 0 {
		return template
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		groups := placeholderPattern.FindStringSubmatch(token)
		if !strings.EqualFold(groups[1], namespace) {
			return token
		}
		if value, ok := lookup(attributes, groups[2]); ok {
			return value
		}
		return token
	})
}

func lookup(attributes map[string]string, key string) (string, bool) {
	if value, ok := attributes[key]; ok {
		return value, true
	}
	for k, v := range attributes {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}
