package chat

import (
	"strings"

	"github.com/hikarin/chatcore/config"
)

// ContentFilter applies an ordered list of literal match→replacement
// substitutions to outgoing message bodies. It runs after length and
// emptiness validation, so a message that becomes empty only through
// filtering is still stored filtered.
type ContentFilter struct {
	rules []config.FilterRule
}

func NewContentFilter(rules []config.FilterRule) *ContentFilter {
	return &ContentFilter{rules: rules}
}

// Apply runs every rule in order over the content.
func (f *ContentFilter) Apply(content string) string {
	for _, rule := range f.rules {
		content = strings.ReplaceAll(content, rule.Match, rule.Replacement)
	}
	return content
}
