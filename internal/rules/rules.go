// Package rules classifies newly mapped windows against the configured rule
// list. Rules are evaluated once, at map time, in registration order; the
// first rule whose populated predicate fields all match wins.
package rules

import (
	"strings"

	"github.com/zafkar/oxwm/internal/config"
)

// Placement is the classification outcome applied to a new client. Nil
// fields keep the default placement: the active tag of the active monitor,
// non-floating.
type Placement struct {
	Floating bool
	Tag      *int
	Monitor  *int
}

// Engine holds a compiled rule list.
type Engine struct {
	rules []config.Rule
}

// New builds an engine over the configured rules.
func New(rules []config.Rule) *Engine {
	return &Engine{rules: append([]config.Rule(nil), rules...)}
}

// Classify runs the window's properties through the rule list and returns
// the winning placement. The second result reports whether any rule
// matched; a miss yields the zero placement.
func (e *Engine) Classify(class, instance, title string) (Placement, bool) {
	for _, rule := range e.rules {
		if !Matches(rule, class, instance, title) {
			continue
		}
		p := Placement{Tag: rule.Tag, Monitor: rule.Monitor}
		if rule.Floating != nil {
			p.Floating = *rule.Floating
		}
		return p, true
	}
	return Placement{}, false
}

// Matches reports whether every populated predicate field of the rule is a
// substring of the corresponding window property. Empty fields match
// anything.
func Matches(rule config.Rule, class, instance, title string) bool {
	if rule.Class != "" && !strings.Contains(class, rule.Class) {
		return false
	}
	if rule.Instance != "" && !strings.Contains(instance, rule.Instance) {
		return false
	}
	if rule.Title != "" && !strings.Contains(title, rule.Title) {
		return false
	}
	return true
}
