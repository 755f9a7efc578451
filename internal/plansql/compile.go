// Package plansql renders a plan.Plan as parameterized SQL over the
// archive schema.
//
// Every value is passed as a ? parameter, never interpolated, and every
// top-level query carries a deterministic ORDER BY. The compilation
// strategy is what realizes the boolean-combination contract:
//
//   - Intersect children join into one WHERE conjunction, so each child
//     progressively narrows the running result.
//   - Union children each become an independent full-domain subquery;
//     the subqueries are UNIONed and the union's id-set is intersected
//     into the enclosing relation via IN.
//   - Not becomes NOT IN over a full-domain subquery, appended to the
//     enclosing conjunction: exclusion relative to the context at the
//     point it appears.
package plansql

import (
	"fmt"
	"strings"

	"github.com/loreline/topicsearch/internal/plan"
)

// Compiler compiles Plans to SQL. Not safe for concurrent use; create
// one per compilation.
type Compiler struct {
	// BodyFTS selects the full-text index for message-body matches.
	// When false the compiler falls back to case-insensitive substring
	// matching with LIKE.
	BodyFTS bool

	aliasSeq int
}

// New creates a Compiler. bodyFTS reports whether the messages_fts
// index exists in the target database.
func New(bodyFTS bool) *Compiler {
	return &Compiler{BodyFTS: bodyFTS}
}

// Compile converts a Plan to a parameterized topic-id query.
// Returns (sql, params, error).
func (c *Compiler) Compile(p plan.Plan) (string, []any, error) {
	c.aliasSeq = 0
	cond, params, err := c.condition(p, "t")
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT t.id FROM topics t WHERE %s ORDER BY t.id ASC", cond)
	return sql, params, nil
}

// nextAlias returns a fresh topics alias for an independent subquery.
func (c *Compiler) nextAlias() string {
	c.aliasSeq++
	return fmt.Sprintf("t%d", c.aliasSeq)
}

// subquery compiles p as a self-contained topic-id SELECT over the full
// domain.
func (c *Compiler) subquery(p plan.Plan) (string, []any, error) {
	alias := c.nextAlias()
	cond, params, err := c.condition(p, alias)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT %s.id FROM topics %s WHERE %s", alias, alias, cond), params, nil
}

// condition compiles p to a WHERE fragment over the topics alias a.
func (c *Compiler) condition(p plan.Plan, a string) (string, []any, error) {
	switch node := p.(type) {
	case plan.All:
		return "1 = 1", nil, nil
	case plan.None:
		return "1 = 0", nil, nil
	case plan.Intersect:
		return c.compileIntersect(node, a)
	case plan.Union:
		return c.compileUnion(node, a)
	case plan.Not:
		sub, params, err := c.subquery(node.Inner)
		if err != nil {
			return "", nil, fmt.Errorf("compile negation: %w", err)
		}
		return fmt.Sprintf("%s.id NOT IN (%s)", a, sub), params, nil
	case plan.AuthorMatch:
		return c.compileAuthor(node, a)
	case plan.TextMatch:
		return c.compileText(node, a)
	case plan.CounterCmp:
		return compileCounter(node, a)
	case plan.DateCmp:
		return compileDate(node, a)
	case plan.ReadState:
		return compileReadState(node, a)
	case plan.StarredBy:
		ph, params := idParams(node.UserIDs)
		cond := fmt.Sprintf("EXISTS (SELECT 1 FROM topic_stars s WHERE s.topic_id = %s.id AND s.user_id IN (%s))", a, ph)
		return excludeIf(cond, node.Exclude), params, nil
	case plan.NotesBy:
		return compileNotesBy(node, a)
	case plan.TagMatch:
		return compileTag(node, a)
	case plan.HasMatch:
		return c.compileHas(node, a)
	default:
		return "", nil, fmt.Errorf("unsupported plan type: %T", p)
	}
}

func (c *Compiler) compileIntersect(node plan.Intersect, a string) (string, []any, error) {
	if len(node.Plans) == 0 {
		return "1 = 1", nil, nil
	}
	var parts []string
	var params []any
	for _, child := range node.Plans {
		cond, childParams, err := c.condition(child, a)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, cond)
		params = append(params, childParams...)
	}
	if len(parts) == 1 {
		return parts[0], params, nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}

// compileUnion compiles each child against the full domain, unions the
// resulting id-sets, and membership-tests the enclosing alias. Sibling
// conditions in the enclosing conjunction cannot leak into a branch.
func (c *Compiler) compileUnion(node plan.Union, a string) (string, []any, error) {
	if len(node.Plans) == 0 {
		return "1 = 0", nil, nil
	}
	var subs []string
	var params []any
	for _, child := range node.Plans {
		sub, childParams, err := c.subquery(child)
		if err != nil {
			return "", nil, err
		}
		subs = append(subs, sub)
		params = append(params, childParams...)
	}
	return fmt.Sprintf("%s.id IN (%s)", a, strings.Join(subs, " UNION ")), params, nil
}

func (c *Compiler) compileAuthor(node plan.AuthorMatch, a string) (string, []any, error) {
	ph, ids := idParams(node.PersonIDs)

	switch node.Role {
	case plan.RoleStarter:
		cond := fmt.Sprintf("%s.creator_person_id IN (%s)", a, ph)
		return excludeIf(cond, node.Exclude), ids, nil
	case plan.RoleLastSender:
		cond := fmt.Sprintf("%s.last_sender_person_id IN (%s)", a, ph)
		return excludeIf(cond, node.Exclude), ids, nil
	}

	single := len(node.PersonIDs) == 1

	// Row-level conditions apply inside the participant-row EXISTS. The
	// aggregate messages comparison only joins them there for a single
	// identity; a team compares the summed counts across members.
	rowConds := []string{
		fmt.Sprintf("tp.topic_id = %s.id", a),
		fmt.Sprintf("tp.person_id IN (%s)", ph),
	}
	params := append([]any{}, ids...)
	if node.FirstBefore != nil {
		rowConds = append(rowConds, "tp.first_message_at < ?")
		params = append(params, node.FirstBefore.Unix())
	}
	if node.FirstAfter != nil {
		rowConds = append(rowConds, "tp.first_message_at > ?")
		params = append(params, node.FirstAfter.Unix())
	}
	if node.LastBefore != nil {
		rowConds = append(rowConds, "tp.last_message_at < ?")
		params = append(params, node.LastBefore.Unix())
	}
	if node.LastAfter != nil {
		rowConds = append(rowConds, "tp.last_message_at > ?")
		params = append(params, node.LastAfter.Unix())
	}
	if node.Messages != nil && single {
		rowConds = append(rowConds, fmt.Sprintf("tp.message_count %s ?", opSQL(node.Messages.Op)))
		params = append(params, node.Messages.Value)
	}

	parts := []string{
		"EXISTS (SELECT 1 FROM topic_participants tp WHERE " + strings.Join(rowConds, " AND ") + ")",
	}

	if node.Messages != nil && !single {
		parts = append(parts, fmt.Sprintf(
			"(SELECT COALESCE(SUM(tp2.message_count), 0) FROM topic_participants tp2 WHERE tp2.topic_id = %s.id AND tp2.person_id IN (%s)) %s ?",
			a, ph, opSQL(node.Messages.Op)))
		params = append(params, ids...)
		params = append(params, node.Messages.Value)
	}

	if node.Body != nil {
		match, matchParams := c.bodyCondition("m", *node.Body)
		parts = append(parts, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM messages m WHERE m.topic_id = %s.id AND m.sender_person_id IN (%s) AND %s)",
			a, ph, match))
		params = append(params, ids...)
		params = append(params, matchParams...)
	}

	cond := strings.Join(parts, " AND ")
	if len(parts) > 1 {
		cond = "(" + cond + ")"
	}
	return excludeIf(cond, node.Exclude), params, nil
}

// bodyCondition returns a match fragment for a message-body text query
// against the messages alias, using the FTS index when available and a
// substring LIKE otherwise.
func (c *Compiler) bodyCondition(alias string, query plan.TextQuery) (string, []any) {
	if c.BodyFTS {
		return alias + ".id IN (SELECT rowid FROM messages_fts WHERE messages_fts MATCH ?)",
			[]any{ftsQuery(query)}
	}
	return alias + ".body LIKE ? ESCAPE '\\'", []any{likePattern(query.Term)}
}

func (c *Compiler) compileText(node plan.TextMatch, a string) (string, []any, error) {
	switch node.Field {
	case plan.FieldTitle:
		cond := fmt.Sprintf("%s.title LIKE ? ESCAPE '\\'", a)
		return excludeIf(cond, node.Exclude), []any{likePattern(node.Query.Term)}, nil
	case plan.FieldBody:
		match, params := c.bodyCondition("m", node.Query)
		cond := fmt.Sprintf("EXISTS (SELECT 1 FROM messages m WHERE m.topic_id = %s.id AND %s)", a, match)
		return excludeIf(cond, node.Exclude), params, nil
	default:
		return "", nil, fmt.Errorf("unsupported text field: %d", node.Field)
	}
}

var counterColumns = map[plan.Counter]string{
	plan.CounterMessages:     "message_count",
	plan.CounterParticipants: "participant_count",
	plan.CounterContributors: "contributor_participant_count",
}

func compileCounter(node plan.CounterCmp, a string) (string, []any, error) {
	column, ok := counterColumns[node.Counter]
	if !ok {
		return "", nil, fmt.Errorf("unsupported counter: %d", node.Counter)
	}
	cond := fmt.Sprintf("%s.%s %s ?", a, column, opSQL(node.Cmp.Op))
	return excludeIf(cond, node.Exclude), []any{node.Cmp.Value}, nil
}

func compileDate(node plan.DateCmp, a string) (string, []any, error) {
	when := node.When.Unix()
	switch node.Field {
	case plan.DateCreated:
		return fmt.Sprintf("%s.created_at %s ?", a, opSQL(node.Op)), []any{when}, nil
	case plan.DateLastMessage:
		return fmt.Sprintf("%s.last_message_at %s ?", a, opSQL(node.Op)), []any{when}, nil
	case plan.DateAnyMessage:
		cond := fmt.Sprintf("EXISTS (SELECT 1 FROM messages m WHERE m.topic_id = %s.id AND m.created_at %s ?)",
			a, opSQL(node.Op))
		return excludeIf(cond, node.Exclude), []any{when}, nil
	default:
		return "", nil, fmt.Errorf("unsupported date field: %d", node.Field)
	}
}

// compileReadState compiles read-state predicates. The formulas are
// uniform over single users and teams: "read" is any user in the set
// having fully read, "unread" is no user having fully read, "new" is no
// awareness record at all, and "reading" is a started-but-unfinished
// record.
func compileReadState(node plan.ReadState, a string) (string, []any, error) {
	ph, params := idParams(node.UserIDs)

	fully := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM topic_read_states r WHERE r.topic_id = %s.id AND r.user_id IN (%s) AND r.messages_read >= %s.message_count)",
		a, ph, a)
	anyRecord := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM topic_read_states r WHERE r.topic_id = %s.id AND r.user_id IN (%s))",
		a, ph)
	started := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM topic_read_states r WHERE r.topic_id = %s.id AND r.user_id IN (%s) AND r.messages_read > 0 AND r.messages_read < %s.message_count)",
		a, ph, a)

	var cond string
	switch node.State {
	case plan.StateRead:
		cond = fully
	case plan.StateUnread:
		cond = "NOT " + fully
	case plan.StateNew:
		cond = "NOT " + anyRecord
	case plan.StateReading:
		cond = started
	default:
		return "", nil, fmt.Errorf("unsupported read state: %d", node.State)
	}
	return excludeIf(cond, node.Exclude), params, nil
}

func compileNotesBy(node plan.NotesBy, a string) (string, []any, error) {
	ph, params := idParams(node.UserIDs)
	cond := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM notes n WHERE n.topic_id = %s.id AND n.author_person_id IN (%s) AND n.deleted_at IS NULL AND (n.visibility = 'public' OR n.author_person_id = ?))",
		a, ph)
	params = append(params, node.ViewerID)
	return excludeIf(cond, node.Exclude), params, nil
}

func compileTag(node plan.TagMatch, a string) (string, []any, error) {
	conds := []string{
		fmt.Sprintf("n.topic_id = %s.id", a),
		"n.deleted_at IS NULL",
		"(n.visibility = 'public' OR n.author_person_id = ?)",
	}
	params := []any{node.ViewerID}
	if !node.AnyTag {
		conds = append(conds, "g.tag = ?")
		params = append(params, node.Tag)
	}
	if len(node.FromIDs) > 0 {
		ph, ids := idParams(node.FromIDs)
		conds = append(conds, fmt.Sprintf("n.author_person_id IN (%s)", ph))
		params = append(params, ids...)
	}
	if node.AddedBefore != nil {
		conds = append(conds, "n.created_at < ?")
		params = append(params, node.AddedBefore.Unix())
	}
	if node.AddedAfter != nil {
		conds = append(conds, "n.created_at > ?")
		params = append(params, node.AddedAfter.Unix())
	}
	cond := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM notes n JOIN note_tags g ON g.note_id = n.id WHERE %s)",
		strings.Join(conds, " AND "))
	return excludeIf(cond, node.Exclude), params, nil
}

func (c *Compiler) compileHas(node plan.HasMatch, a string) (string, []any, error) {
	switch node.Kind {
	case plan.HasAttachment, plan.HasPatch:
		return compileHasAttachment(node, a)
	case plan.HasContributor, plan.HasCommitter, plan.HasCoreTeam:
		return compileHasRank(node, a)
	default:
		return "", nil, fmt.Errorf("unsupported has kind: %d", node.Kind)
	}
}

func compileHasAttachment(node plan.HasMatch, a string) (string, []any, error) {
	conds := []string{fmt.Sprintf("m.topic_id = %s.id", a)}
	var params []any
	if node.Kind == plan.HasPatch {
		// Patch-likeness pre-filters before any conditions apply.
		conds = append(conds, "(x.filename LIKE '%.patch' OR x.filename LIKE '%.diff')")
	}
	if len(node.FromIDs) > 0 {
		ph, ids := idParams(node.FromIDs)
		conds = append(conds, fmt.Sprintf("m.sender_person_id IN (%s)", ph))
		params = append(params, ids...)
	}
	if node.Name != "" {
		conds = append(conds, "x.filename LIKE ? ESCAPE '\\'")
		params = append(params, likePattern(node.Name))
	}

	where := strings.Join(conds, " AND ")
	if node.Count != nil {
		cond := fmt.Sprintf(
			"(SELECT COUNT(*) FROM attachments x JOIN messages m ON m.id = x.message_id WHERE %s) %s ?",
			where, opSQL(node.Count.Op))
		params = append(params, node.Count.Value)
		return excludeIf(cond, node.Exclude), params, nil
	}
	cond := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM attachments x JOIN messages m ON m.id = x.message_id WHERE %s)",
		where)
	return excludeIf(cond, node.Exclude), params, nil
}

func compileHasRank(node plan.HasMatch, a string) (string, []any, error) {
	conds := []string{fmt.Sprintf("m.topic_id = %s.id", a)}
	var params []any
	switch node.Kind {
	case plan.HasCommitter:
		conds = append(conds, "cm.rank = ?")
		params = append(params, "committer")
	case plan.HasCoreTeam:
		conds = append(conds, "cm.rank = ?")
		params = append(params, "core_team")
	}
	cond := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM messages m JOIN contributor_memberships cm ON cm.person_id = m.sender_person_id WHERE %s)",
		strings.Join(conds, " AND "))
	return excludeIf(cond, node.Exclude), params, nil
}

// excludeIf wraps a fragment in NOT for leaf-level exclusion forms.
func excludeIf(cond string, exclude bool) string {
	if exclude {
		return "NOT (" + cond + ")"
	}
	return cond
}

// idParams renders an id slice as IN-list placeholders plus parameters.
func idParams(ids []int64) (string, []any) {
	ph := make([]string, len(ids))
	params := make([]any, len(ids))
	for i, id := range ids {
		ph[i] = "?"
		params[i] = id
	}
	return strings.Join(ph, ", "), params
}

// opSQL renders a comparison operator. Operators come from the plan
// package's closed enum; anything else degrades to equality.
func opSQL(op plan.CmpOp) string {
	switch op {
	case plan.OpGt, plan.OpLt, plan.OpGte, plan.OpLte, plan.OpEq:
		return string(op)
	default:
		return "="
	}
}

// likePattern escapes LIKE metacharacters and wraps the term for a
// case-insensitive substring match.
func likePattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
	return "%" + escaped + "%"
}

// ftsQuery renders a text query for FTS5 MATCH. Wrapping in double
// quotes yields phrase semantics for multi-word phrases and neutralizes
// FTS operator syntax in single terms.
func ftsQuery(query plan.TextQuery) string {
	return `"` + strings.ReplaceAll(query.Term, `"`, `""`) + `"`
}
