// Package plan compiles a validated query AST into an executable
// predicate tree over the topic domain.
//
// A Plan denotes a set of topic ids as nested predicate/id-set
// operations: intersections, unions, complements, and leaf predicates
// per selector family. The plansql package renders a Plan as
// parameterized SQL; nothing in this package touches storage.
//
// The boolean-combination semantics are deliberate and load-bearing:
//
//   - Intersect children narrow the running result left to right.
//   - Union children are each compiled independently against the full
//     domain, never against whatever the enclosing Intersect has
//     accumulated, and their id-sets are unioned before the union is
//     intersected into the surrounding context.
//   - Not computes its inner id-set from the full domain and excludes it
//     from the relation accumulating at the point it appears - a scoped
//     exclusion, not a global complement.
package plan

import "time"

// Plan represents a predicate over the topic domain.
//
// This is a sealed interface - only types in this package implement it.
type Plan interface {
	plan() // Marker method - seals interface to this package
}

// All matches every topic ("no filter").
type All struct{}

func (All) plan() {}

// None matches no topic. Produced when a symbolic value resolved to
// nothing; the query as a whole still evaluates its other clauses.
type None struct{}

func (None) plan() {}

// Intersect matches topics satisfying every child plan.
type Intersect struct {
	Plans []Plan
}

func (Intersect) plan() {}

// Union matches topics satisfying any child plan. Children are
// independent: each denotes an id-set over the full domain.
type Union struct {
	Plans []Plan
}

func (Union) plan() {}

// Not excludes the inner plan's id-set from the enclosing context.
type Not struct {
	Inner Plan
}

func (Not) plan() {}

// CmpOp is a comparison operator parsed from a count value like ">=10".
type CmpOp string

const (
	OpEq  CmpOp = "="
	OpGt  CmpOp = ">"
	OpLt  CmpOp = "<"
	OpGte CmpOp = ">="
	OpLte CmpOp = "<="
)

// CountCmp is an operator/threshold pair. A bare number means equality.
type CountCmp struct {
	Op    CmpOp
	Value int64
}

// Role selects which message authorship an AuthorMatch tests.
type Role int

const (
	// RoleAnySender matches topics with any message by the person set.
	RoleAnySender Role = iota
	// RoleStarter matches topics created by the person set.
	RoleStarter
	// RoleLastSender matches topics whose most recent message is by the set.
	RoleLastSender
)

// TextQuery is a term or phrase for the full-text collaborator.
type TextQuery struct {
	Term   string
	Phrase bool
}

// AuthorMatch matches topics by message authorship, optionally narrowed
// by the from[...] dependent conditions.
//
// The aggregate Messages comparison branches on the size of PersonIDs:
// a single identity compares that person's precomputed per-topic
// aggregate row directly, while multiple identities (a team) compare the
// sum of all members' message counts within the topic. Date bounds are
// row-level and apply per participant row either way.
type AuthorMatch struct {
	Role      Role
	PersonIDs []int64

	Messages    *CountCmp
	FirstBefore *time.Time
	FirstAfter  *time.Time
	LastBefore  *time.Time
	LastAfter   *time.Time
	Body        *TextQuery

	Exclude bool
}

func (AuthorMatch) plan() {}

// Field names a full-text searchable field.
type Field int

const (
	FieldTitle Field = iota
	FieldBody
)

// TextMatch matches topics by title or message-body text.
type TextMatch struct {
	Field   Field
	Query   TextQuery
	Exclude bool
}

func (TextMatch) plan() {}

// Counter names a denormalized topic counter.
type Counter int

const (
	CounterMessages Counter = iota
	CounterParticipants
	CounterContributors
)

// CounterCmp compares a denormalized topic counter.
type CounterCmp struct {
	Counter Counter
	Cmp     CountCmp
	Exclude bool
}

func (CounterCmp) plan() {}

// DateField names a topic timestamp for date comparisons.
type DateField int

const (
	// DateCreated is the topic creation time (first_after/first_before).
	DateCreated DateField = iota
	// DateAnyMessage tests any message's timestamp (messages_after/before).
	DateAnyMessage
	// DateLastMessage is the topic's last message timestamp.
	DateLastMessage
)

// DateCmp compares a topic timestamp against a parsed date.
//
// Negating a scalar field (DateCreated, DateLastMessage) flips Op
// instead of setting Exclude; Exclude is used only for DateAnyMessage,
// where the negation is "no message past the bound".
type DateCmp struct {
	Field   DateField
	Op      CmpOp
	When    time.Time
	Exclude bool
}

func (DateCmp) plan() {}

// State names a read-state predicate.
type State int

const (
	// StateRead: any user in the set has fully read the topic.
	StateRead State = iota
	// StateUnread: no user in the set has fully read the topic.
	StateUnread
	// StateReading: some user in the set has started but not finished.
	StateReading
	// StateNew: no user in the set has any awareness record.
	StateNew
)

// ReadState matches topics by read-state relative to a user set.
type ReadState struct {
	State   State
	UserIDs []int64
	Exclude bool
}

func (ReadState) plan() {}

// StarredBy matches topics starred by any user in the set.
type StarredBy struct {
	UserIDs []int64
	Exclude bool
}

func (StarredBy) plan() {}

// NotesBy matches topics carrying a visible, non-deleted note from any
// user in the set. ViewerID scopes note visibility.
type NotesBy struct {
	UserIDs  []int64
	ViewerID int64
	Exclude  bool
}

func (NotesBy) plan() {}

// TagMatch matches topics with a visible note carrying Tag (or any tag
// when AnyTag), narrowed by the tag[...] conditions.
type TagMatch struct {
	Tag      string
	AnyTag   bool
	ViewerID int64

	FromIDs     []int64
	AddedBefore *time.Time
	AddedAfter  *time.Time

	Exclude bool
}

func (TagMatch) plan() {}

// HasKind names a presence predicate.
type HasKind int

const (
	HasAttachment HasKind = iota
	HasPatch
	HasContributor
	HasCommitter
	HasCoreTeam
)

// HasMatch matches topics by presence of attachments or rank-authored
// messages, narrowed by the has[...] conditions where supported.
// HasPatch pre-filters to patch-like filenames before conditions apply.
type HasMatch struct {
	Kind HasKind

	FromIDs []int64
	Count   *CountCmp
	Name    string

	Exclude bool
}

func (HasMatch) plan() {}
