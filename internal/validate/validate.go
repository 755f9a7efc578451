// Package validate type-checks a parsed query AST against the
// per-selector rules.
//
// Validation never fails a whole query: an invalid selector value or an
// out-of-vocabulary dependent condition drops that node (or condition)
// with a warning appended, and sibling nodes proceed unaffected. Free
// text that looks like a misspelled selector stays searchable but earns
// an advisory warning.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/loreline/topicsearch/internal/ast"
)

// DateChecker is the slice of the date-parser collaborator the validator
// needs: it only has to say whether a value would parse.
type DateChecker interface {
	Valid(s string) bool
}

// Validator validates query ASTs. Safe for concurrent use.
type Validator struct {
	dates DateChecker
}

// New creates a Validator backed by the given date checker.
func New(dates DateChecker) *Validator {
	return &Validator{dates: dates}
}

// Validate walks the AST, drops invalid nodes, and returns the surviving
// tree (nil when nothing survives) plus one warning per rejection.
// Validating an already-valid AST returns it unchanged with no warnings.
func (v *Validator) Validate(n ast.Node) (ast.Node, []string) {
	r := &run{dates: v.dates, warnings: []string{}}
	out := r.validateNode(n)
	return out, r.warnings
}

// run accumulates warnings during a single validation pass.
type run struct {
	dates    DateChecker
	warnings []string
}

func (r *run) warnf(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

// validateNode validates one node, returning nil when it is dropped.
// Compound nodes recurse into children and re-normalize, so a compound
// left with one child collapses and an emptied compound disappears.
func (r *run) validateNode(n ast.Node) ast.Node {
	switch node := n.(type) {
	case nil:
		return nil
	case *ast.And:
		kept := r.validateChildren(node.Children)
		out := &ast.And{Children: kept}
		out.SetNegated(node.Negated())
		return ast.Normalize(out)
	case *ast.Or:
		kept := r.validateChildren(node.Children)
		out := &ast.Or{Children: kept}
		out.SetNegated(node.Negated())
		return ast.Normalize(out)
	case *ast.Selector:
		return r.validateSelector(node)
	case *ast.Text:
		if !node.Quoted {
			r.checkSelectorTypo(node.Value)
		}
		return node
	default:
		return nil
	}
}

func (r *run) validateChildren(children []ast.Node) []ast.Node {
	kept := make([]ast.Node, 0, len(children))
	for _, child := range children {
		if out := r.validateNode(child); out != nil {
			kept = append(kept, out)
		}
	}
	return kept
}

var (
	countPattern = regexp.MustCompile(`^(>=|<=|>|<)?\d+$`)
	tagPattern   = regexp.MustCompile(`(?i)^[a-z0-9][a-z0-9_.-]*$`)
)

// Selector families. Every key in ast.Keys() belongs to exactly one.
var (
	dateSelectors = map[ast.Key]bool{
		ast.KeyFirstAfter: true, ast.KeyFirstBefore: true,
		ast.KeyMessagesAfter: true, ast.KeyMessagesBefore: true,
		ast.KeyLastAfter: true, ast.KeyLastBefore: true,
	}
	countSelectors = map[ast.Key]bool{
		ast.KeyMessages: true, ast.KeyParticipants: true, ast.KeyContributors: true,
	}
	authorSelectors = map[ast.Key]bool{
		ast.KeyFrom: true, ast.KeyStarter: true, ast.KeyLastFrom: true,
	}
	stateSelectors = map[ast.Key]bool{
		ast.KeyUnread: true, ast.KeyRead: true, ast.KeyReading: true,
		ast.KeyNew: true, ast.KeyStarred: true, ast.KeyNotes: true,
	}
	contentSelectors = map[ast.Key]bool{
		ast.KeyTitle: true, ast.KeyBody: true,
	}
)

// HasValues enumerates the accepted values of the has: selector.
var HasValues = []string{"attachment", "patch", "contributor", "committer", "core_team"}

func isHasValue(v string) bool {
	for _, hv := range HasValues {
		if v == hv {
			return true
		}
	}
	return false
}

// validateSelector applies the per-family value rule, then filters the
// dependent conditions. Returns nil when the selector is dropped.
func (r *run) validateSelector(sel *ast.Selector) ast.Node {
	value := sel.Value

	switch {
	case dateSelectors[sel.Key]:
		if !r.dates.Valid(value) {
			r.warnf("ignoring %s: %q is not a valid date", sel.Key, value)
			return nil
		}
	case countSelectors[sel.Key]:
		if !countPattern.MatchString(value) {
			r.warnf("ignoring %s: %q is not a valid count", sel.Key, value)
			return nil
		}
	case authorSelectors[sel.Key]:
		if strings.TrimSpace(value) == "" {
			r.warnf("ignoring %s: missing a person, team, or rank", sel.Key)
			return nil
		}
	case contentSelectors[sel.Key]:
		if strings.TrimSpace(value) == "" {
			r.warnf("ignoring %s: missing search text", sel.Key)
			return nil
		}
	case stateSelectors[sel.Key]:
		// Any subject accepted here; whether it resolves to users is the
		// value resolver's concern.
	case sel.Key == ast.KeyTag:
		if value == "" && len(sel.Conditions) == 0 {
			r.warnf("ignoring tag: needs a tag name or bracketed conditions")
			return nil
		}
		if value != "" && !tagPattern.MatchString(value) {
			r.warnf("ignoring tag: %q is not a valid tag name", value)
			return nil
		}
	case sel.Key == ast.KeyHas:
		if !isHasValue(value) {
			r.warnf("ignoring has: %q is not one of %s", value, strings.Join(HasValues, ", "))
			return nil
		}
	}

	if len(sel.Conditions) == 0 {
		return sel
	}

	kept := r.validateConditions(sel)
	if len(kept) == len(sel.Conditions) {
		return sel
	}
	out := *sel
	out.Conditions = kept
	if sel.Key == ast.KeyTag && sel.Value == "" && len(kept) == 0 {
		// A blank tag: was only admissible because conditions were present.
		r.warnf("ignoring tag: no valid conditions remain")
		return nil
	}
	return &out
}

// condKind determines how a dependent condition's value is checked.
type condKind int

const (
	condDate condKind = iota
	condCount
	condAuthor
	condText
)

// Per-parent condition vocabularies. For has: the vocabulary depends on
// the selector's value, not just its key.
var (
	fromConditions = map[string]condKind{
		"messages":     condCount,
		"last_before":  condDate,
		"last_after":   condDate,
		"first_before": condDate,
		"first_after":  condDate,
		"body":         condText,
	}
	tagConditions = map[string]condKind{
		"from":         condAuthor,
		"added_before": condDate,
		"added_after":  condDate,
	}
	hasConditions = map[string]map[string]condKind{
		"attachment": {"from": condAuthor, "count": condCount, "name": condText},
		"patch":      {"from": condAuthor, "count": condCount},
		"contributor": {},
		"committer":   {},
		"core_team":   {},
	}
)

// conditionVocabulary returns the accepted condition keys for a selector,
// or nil when the selector takes no bracketed conditions at all.
func conditionVocabulary(sel *ast.Selector) map[string]condKind {
	switch sel.Key {
	case ast.KeyFrom:
		return fromConditions
	case ast.KeyTag:
		return tagConditions
	case ast.KeyHas:
		return hasConditions[sel.Value]
	default:
		return nil
	}
}

// validateConditions filters a selector's bracket list down to the
// conditions valid for this (selector, value) pair.
func (r *run) validateConditions(sel *ast.Selector) []ast.Condition {
	vocab := conditionVocabulary(sel)
	parent := string(sel.Key)
	if sel.Key == ast.KeyHas {
		parent = parent + ":" + sel.Value
	}

	kept := make([]ast.Condition, 0, len(sel.Conditions))
	for _, cond := range sel.Conditions {
		kind, ok := vocab[cond.Key]
		if !ok {
			r.warnf("ignoring condition %q: not valid for %s", cond.Key, parent)
			continue
		}
		switch kind {
		case condDate:
			if !r.dates.Valid(cond.Value) {
				r.warnf("ignoring condition %s: %q is not a valid date", cond.Key, cond.Value)
				continue
			}
		case condCount:
			if !countPattern.MatchString(cond.Value) {
				r.warnf("ignoring condition %s: %q is not a valid count", cond.Key, cond.Value)
				continue
			}
		case condAuthor, condText:
			if strings.TrimSpace(cond.Value) == "" {
				r.warnf("ignoring condition %s: missing a value", cond.Key)
				continue
			}
		}
		kept = append(kept, cond)
	}
	return kept
}
