package plan

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/loreline/topicsearch/internal/ast"
	"github.com/loreline/topicsearch/internal/resolve"
)

// DateParser is the slice of the date-parser collaborator the builder
// needs. Values reaching the builder already passed validation, so a
// parse failure here is a warning, not an error.
type DateParser interface {
	Parse(s string) (time.Time, bool)
}

// Builder compiles validated ASTs into Plans. Safe for concurrent use;
// each Build call is independent.
type Builder struct {
	resolver *resolve.Resolver
	dates    DateParser
}

// NewBuilder creates a Builder bound to a resolver (which carries the
// requesting principal) and a date parser.
func NewBuilder(resolver *resolve.Resolver, dates DateParser) *Builder {
	return &Builder{resolver: resolver, dates: dates}
}

// Build compiles a validated AST into a Plan plus accumulated warnings.
// A nil AST compiles to All: an empty query applies no filter.
func (b *Builder) Build(ctx context.Context, node ast.Node) (Plan, []string) {
	c := &compilation{resolver: b.resolver, dates: b.dates, warnings: []string{}}
	if node == nil {
		return All{}, c.warnings
	}
	return c.compile(ctx, node), c.warnings
}

// compilation accumulates warnings during a single Build.
type compilation struct {
	resolver *resolve.Resolver
	dates    DateParser
	warnings []string
}

func (c *compilation) warn(warnings ...string) {
	c.warnings = append(c.warnings, warnings...)
}

// compile compiles one node. Compound negation wraps the compiled group
// in Not, deferring the exclusion to the enclosing context; leaf
// negation becomes the leaf's own exclusion form.
func (c *compilation) compile(ctx context.Context, n ast.Node) Plan {
	switch node := n.(type) {
	case *ast.And:
		plans := make([]Plan, 0, len(node.Children))
		for _, child := range node.Children {
			plans = append(plans, c.compile(ctx, child))
		}
		return negateCompound(Intersect{Plans: plans}, node.Negated())
	case *ast.Or:
		plans := make([]Plan, 0, len(node.Children))
		for _, child := range node.Children {
			plans = append(plans, c.compile(ctx, child))
		}
		return negateCompound(Union{Plans: plans}, node.Negated())
	case *ast.Selector:
		return c.compileSelector(ctx, node)
	case *ast.Text:
		query := TextQuery{Term: node.Value, Phrase: node.Quoted}
		p := Union{Plans: []Plan{
			TextMatch{Field: FieldTitle, Query: query},
			TextMatch{Field: FieldBody, Query: query},
		}}
		return negateCompound(p, node.Negated())
	default:
		return All{}
	}
}

func negateCompound(p Plan, negated bool) Plan {
	if negated {
		return Not{Inner: p}
	}
	return p
}

// emptyResolution is the plan for a selector whose symbolic value
// resolved to nothing: it matches no topic, and its negation therefore
// excludes nothing.
func emptyResolution(negated bool) Plan {
	if negated {
		return All{}
	}
	return None{}
}

func (c *compilation) compileSelector(ctx context.Context, sel *ast.Selector) Plan {
	negated := sel.Negated()

	switch sel.Key {
	case ast.KeyFrom, ast.KeyStarter, ast.KeyLastFrom:
		return c.compileAuthor(ctx, sel)

	case ast.KeyTitle:
		return TextMatch{
			Field:   FieldTitle,
			Query:   TextQuery{Term: sel.Value, Phrase: sel.Quoted},
			Exclude: negated,
		}
	case ast.KeyBody:
		return TextMatch{
			Field:   FieldBody,
			Query:   TextQuery{Term: sel.Value, Phrase: sel.Quoted},
			Exclude: negated,
		}

	case ast.KeyFirstAfter, ast.KeyFirstBefore,
		ast.KeyLastAfter, ast.KeyLastBefore,
		ast.KeyMessagesAfter, ast.KeyMessagesBefore:
		return c.compileDate(sel)

	case ast.KeyMessages:
		return CounterCmp{Counter: CounterMessages, Cmp: parseCount(sel.Value), Exclude: negated}
	case ast.KeyParticipants:
		return CounterCmp{Counter: CounterParticipants, Cmp: parseCount(sel.Value), Exclude: negated}
	case ast.KeyContributors:
		return CounterCmp{Counter: CounterContributors, Cmp: parseCount(sel.Value), Exclude: negated}

	case ast.KeyUnread, ast.KeyRead, ast.KeyReading, ast.KeyNew:
		ids, warnings := c.resolver.ResolveStateSubject(ctx, sel.Value)
		c.warn(warnings...)
		if len(ids) == 0 {
			return emptyResolution(negated)
		}
		return ReadState{State: stateFor(sel.Key), UserIDs: ids, Exclude: negated}

	case ast.KeyStarred:
		ids, warnings := c.resolver.ResolveStateSubject(ctx, sel.Value)
		c.warn(warnings...)
		if len(ids) == 0 {
			return emptyResolution(negated)
		}
		return StarredBy{UserIDs: ids, Exclude: negated}

	case ast.KeyNotes:
		ids, warnings := c.resolver.ResolveStateSubject(ctx, sel.Value)
		c.warn(warnings...)
		if len(ids) == 0 {
			return emptyResolution(negated)
		}
		return NotesBy{UserIDs: ids, ViewerID: c.viewerID(), Exclude: negated}

	case ast.KeyTag:
		return c.compileTag(ctx, sel)

	case ast.KeyHas:
		return c.compileHas(ctx, sel)

	default:
		return All{}
	}
}

func (c *compilation) viewerID() int64 {
	if p := c.resolver.Principal(); p != nil {
		return p.PersonID
	}
	return 0
}

func (c *compilation) compileAuthor(ctx context.Context, sel *ast.Selector) Plan {
	ids, warnings := c.resolver.ResolveAuthor(ctx, sel.Value, sel.Quoted)
	c.warn(warnings...)
	if len(ids) == 0 {
		return emptyResolution(sel.Negated())
	}

	match := AuthorMatch{PersonIDs: ids, Exclude: sel.Negated()}
	switch sel.Key {
	case ast.KeyStarter:
		match.Role = RoleStarter
	case ast.KeyLastFrom:
		match.Role = RoleLastSender
	default:
		match.Role = RoleAnySender
	}

	for _, cond := range sel.Conditions {
		switch cond.Key {
		case "messages":
			cmp := parseCount(cond.Value)
			match.Messages = &cmp
		case "first_before":
			match.FirstBefore = c.parseDate(cond.Value)
		case "first_after":
			match.FirstAfter = c.parseDate(cond.Value)
		case "last_before":
			match.LastBefore = c.parseDate(cond.Value)
		case "last_after":
			match.LastAfter = c.parseDate(cond.Value)
		case "body":
			query := TextQuery{Term: cond.Value, Phrase: cond.Quoted}
			match.Body = &query
		}
	}
	return match
}

func (c *compilation) compileDate(sel *ast.Selector) Plan {
	when, ok := c.dates.Parse(sel.Value)
	if !ok {
		c.warn("ignoring " + string(sel.Key) + ": could not parse date " + strconv.Quote(sel.Value))
		return emptyResolution(sel.Negated())
	}
	negated := sel.Negated()

	// Scalar fields flip the operator under negation instead of wrapping
	// in NOT; the exists-form messages_after/before use exclusion.
	switch sel.Key {
	case ast.KeyFirstAfter:
		return DateCmp{Field: DateCreated, Op: flipIf(OpGt, negated), When: when}
	case ast.KeyFirstBefore:
		return DateCmp{Field: DateCreated, Op: flipIf(OpLt, negated), When: when}
	case ast.KeyLastAfter:
		return DateCmp{Field: DateLastMessage, Op: flipIf(OpGt, negated), When: when}
	case ast.KeyLastBefore:
		return DateCmp{Field: DateLastMessage, Op: flipIf(OpLt, negated), When: when}
	case ast.KeyMessagesAfter:
		return DateCmp{Field: DateAnyMessage, Op: OpGt, When: when, Exclude: negated}
	default: // messages_before
		return DateCmp{Field: DateAnyMessage, Op: OpLt, When: when, Exclude: negated}
	}
}

// flipIf complements a strict comparison: NOT (x > t) is x <= t.
func flipIf(op CmpOp, negated bool) CmpOp {
	if !negated {
		return op
	}
	switch op {
	case OpGt:
		return OpLte
	case OpLt:
		return OpGte
	}
	return op
}

func (c *compilation) compileTag(ctx context.Context, sel *ast.Selector) Plan {
	tag, ok, warnings := c.resolver.ResolveTag(sel.Value)
	c.warn(warnings...)
	if !ok {
		return emptyResolution(sel.Negated())
	}

	match := TagMatch{
		Tag:      tag,
		AnyTag:   tag == "",
		ViewerID: c.viewerID(),
		Exclude:  sel.Negated(),
	}
	for _, cond := range sel.Conditions {
		switch cond.Key {
		case "from":
			ids, warnings := c.resolver.ResolveAuthor(ctx, cond.Value, cond.Quoted)
			c.warn(warnings...)
			if len(ids) == 0 {
				return emptyResolution(sel.Negated())
			}
			match.FromIDs = ids
		case "added_before":
			match.AddedBefore = c.parseDate(cond.Value)
		case "added_after":
			match.AddedAfter = c.parseDate(cond.Value)
		}
	}
	return match
}

var hasKinds = map[string]HasKind{
	"attachment":  HasAttachment,
	"patch":       HasPatch,
	"contributor": HasContributor,
	"committer":   HasCommitter,
	"core_team":   HasCoreTeam,
}

func (c *compilation) compileHas(ctx context.Context, sel *ast.Selector) Plan {
	kind, ok := hasKinds[sel.Value]
	if !ok {
		return emptyResolution(sel.Negated())
	}

	match := HasMatch{Kind: kind, Exclude: sel.Negated()}
	for _, cond := range sel.Conditions {
		switch cond.Key {
		case "from":
			ids, warnings := c.resolver.ResolveAuthor(ctx, cond.Value, cond.Quoted)
			c.warn(warnings...)
			if len(ids) == 0 {
				return emptyResolution(sel.Negated())
			}
			match.FromIDs = ids
		case "count":
			cmp := parseCount(cond.Value)
			match.Count = &cmp
		case "name":
			match.Name = cond.Value
		}
	}
	return match
}

func (c *compilation) parseDate(value string) *time.Time {
	when, ok := c.dates.Parse(value)
	if !ok {
		c.warn("ignoring condition: could not parse date " + strconv.Quote(value))
		return nil
	}
	return &when
}

// parseCount parses an already-validated count value like ">=10" into an
// operator/threshold pair. A bare number means equality.
func parseCount(value string) CountCmp {
	op := OpEq
	for _, prefix := range []CmpOp{OpGte, OpLte, OpGt, OpLt} {
		if strings.HasPrefix(value, string(prefix)) {
			op = prefix
			value = value[len(prefix):]
			break
		}
	}
	n, _ := strconv.ParseInt(value, 10, 64)
	return CountCmp{Op: op, Value: n}
}

var stateByKey = map[ast.Key]State{
	ast.KeyUnread:  StateUnread,
	ast.KeyRead:    StateRead,
	ast.KeyReading: StateReading,
	ast.KeyNew:     StateNew,
}

func stateFor(key ast.Key) State {
	return stateByKey[key]
}
