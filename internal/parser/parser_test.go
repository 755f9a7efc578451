package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loreline/topicsearch/internal/ast"
)

func TestParse_Empty(t *testing.T) {
	assert.Nil(t, Parse(""))
	assert.Nil(t, Parse("   \t\n"))
	assert.Nil(t, Parse(`""`))
}

func TestParse_SingleWord(t *testing.T) {
	node := Parse("cache")
	text, ok := node.(*ast.Text)
	require.True(t, ok, "expected *ast.Text, got %T", node)
	assert.Equal(t, "cache", text.Value)
	assert.False(t, text.Quoted)
}

func TestParse_AdjacencyIsAnd(t *testing.T) {
	node := Parse("build cache")
	and, ok := node.(*ast.And)
	require.True(t, ok, "expected *ast.And, got %T", node)
	require.Len(t, and.Children, 2)
	assert.Equal(t, "build", and.Children[0].(*ast.Text).Value)
	assert.Equal(t, "cache", and.Children[1].(*ast.Text).Value)
}

func TestParse_ExplicitAndIsIgnoredKeyword(t *testing.T) {
	// "a AND b" parses identically to "a b".
	assert.Equal(t, Parse("a b"), Parse("a AND b"))
	assert.Equal(t, Parse("a b"), Parse("a and b"))
}

func TestParse_OrPrecedence(t *testing.T) {
	// Adjacency binds tighter than OR: "a b OR c" is (a AND b) OR c.
	node := Parse("a b OR c")
	or, ok := node.(*ast.Or)
	require.True(t, ok, "expected *ast.Or, got %T", node)
	require.Len(t, or.Children, 2)

	and, ok := or.Children[0].(*ast.And)
	require.True(t, ok)
	require.Len(t, and.Children, 2)
	assert.Equal(t, "c", or.Children[1].(*ast.Text).Value)
}

func TestParse_OrCaseInsensitive(t *testing.T) {
	for _, query := range []string{"a OR b", "a or b", "a Or b"} {
		node := Parse(query)
		_, ok := node.(*ast.Or)
		assert.True(t, ok, "query %q: expected *ast.Or, got %T", query, node)
	}
}

func TestParse_KeywordsAreWholeTokens(t *testing.T) {
	// "orbit" and "android" contain the keywords but are plain words.
	node := Parse("orbit android")
	and, ok := node.(*ast.And)
	require.True(t, ok, "expected *ast.And, got %T", node)
	require.Len(t, and.Children, 2)
	assert.Equal(t, "orbit", and.Children[0].(*ast.Text).Value)
	assert.Equal(t, "android", and.Children[1].(*ast.Text).Value)
}

func TestParse_Selector(t *testing.T) {
	testCases := []struct {
		query string
		key   ast.Key
		value string
	}{
		{"from:bruce", ast.KeyFrom, "bruce"},
		{"starter:me", ast.KeyStarter, "me"},
		{"title:roadmap", ast.KeyTitle, "roadmap"},
		{"messages:>=10", ast.KeyMessages, ">=10"},
		{"unread:", ast.KeyUnread, ""},
		{"has:attachment", ast.KeyHas, "attachment"},
	}

	for _, tc := range testCases {
		t.Run(tc.query, func(t *testing.T) {
			node := Parse(tc.query)
			sel, ok := node.(*ast.Selector)
			require.True(t, ok, "expected *ast.Selector, got %T", node)
			assert.Equal(t, tc.key, sel.Key)
			assert.Equal(t, tc.value, sel.Value)
		})
	}
}

func TestParse_MaximalMunch(t *testing.T) {
	// Longer keys win over their prefixes: messages_after must not parse
	// as messages with a dangling value, last_from not as a word.
	testCases := []struct {
		query string
		key   ast.Key
	}{
		{"messages_after:2024-01-01", ast.KeyMessagesAfter},
		{"messages_before:2024-01-01", ast.KeyMessagesBefore},
		{"last_from:bruce", ast.KeyLastFrom},
		{"last_after:7d", ast.KeyLastAfter},
		{"reading:", ast.KeyReading},
	}

	for _, tc := range testCases {
		t.Run(tc.query, func(t *testing.T) {
			sel, ok := Parse(tc.query).(*ast.Selector)
			require.True(t, ok)
			assert.Equal(t, tc.key, sel.Key)
		})
	}
}

func TestParse_UnknownSelectorStaysText(t *testing.T) {
	node := Parse("fro:bruce")
	text, ok := node.(*ast.Text)
	require.True(t, ok, "expected *ast.Text, got %T", node)
	assert.Equal(t, "fro:bruce", text.Value)
}

func TestParse_WordsKeepInternalColons(t *testing.T) {
	node := Parse("https://example.org/path")
	text, ok := node.(*ast.Text)
	require.True(t, ok, "expected *ast.Text, got %T", node)
	assert.Equal(t, "https://example.org/path", text.Value)
}

func TestParse_QuotedPhrase(t *testing.T) {
	node := Parse(`"big bang"`)
	text, ok := node.(*ast.Text)
	require.True(t, ok)
	assert.Equal(t, "big bang", text.Value)
	assert.True(t, text.Quoted)
}

func TestParse_QuotedEscapes(t *testing.T) {
	node := Parse(`"say \"hi\" \\ there"`)
	text, ok := node.(*ast.Text)
	require.True(t, ok)
	assert.Equal(t, `say "hi" \ there`, text.Value)
}

func TestParse_UnterminatedQuoteConsumesRest(t *testing.T) {
	node := Parse(`"never closed`)
	text, ok := node.(*ast.Text)
	require.True(t, ok)
	assert.Equal(t, "never closed", text.Value)
	assert.True(t, text.Quoted)
}

func TestParse_QuotedSelectorValue(t *testing.T) {
	node := Parse(`title:"big bang"`)
	sel, ok := node.(*ast.Selector)
	require.True(t, ok)
	assert.Equal(t, ast.KeyTitle, sel.Key)
	assert.Equal(t, "big bang", sel.Value)
	assert.True(t, sel.Quoted)
}

func TestParse_Negation(t *testing.T) {
	node := Parse("-from:bruce")
	sel, ok := node.(*ast.Selector)
	require.True(t, ok)
	assert.True(t, sel.Negated())

	node = Parse("-cache")
	text, ok := node.(*ast.Text)
	require.True(t, ok)
	assert.True(t, text.Negated())
}

func TestParse_DashBeforeSpaceIsLiteral(t *testing.T) {
	node := Parse("- cache")
	and, ok := node.(*ast.And)
	require.True(t, ok, "expected *ast.And, got %T", node)
	require.Len(t, and.Children, 2)
	assert.Equal(t, "-", and.Children[0].(*ast.Text).Value)
	assert.False(t, and.Children[1].Negated())
}

func TestParse_NegatedGroup(t *testing.T) {
	node := Parse("-(a OR b)")
	or, ok := node.(*ast.Or)
	require.True(t, ok, "expected *ast.Or, got %T", node)
	assert.True(t, or.Negated())
	assert.Len(t, or.Children, 2)
}

func TestParse_Grouping(t *testing.T) {
	node := Parse("(a OR b) c")
	and, ok := node.(*ast.And)
	require.True(t, ok, "expected *ast.And, got %T", node)
	require.Len(t, and.Children, 2)

	or, ok := and.Children[0].(*ast.Or)
	require.True(t, ok)
	assert.Len(t, or.Children, 2)
}

func TestParse_MissingCloseParen(t *testing.T) {
	// Tolerated: the group extends to end of input.
	assert.Equal(t, Parse("(a OR b)"), Parse("(a OR b"))
}

func TestParse_StrayCloseParen(t *testing.T) {
	// Tolerated: the stray paren is dropped.
	assert.Equal(t, Parse("a b"), Parse("a ) b"))
}

func TestParse_BracketedTextIsLiteral(t *testing.T) {
	node := Parse("[foo bar]")
	text, ok := node.(*ast.Text)
	require.True(t, ok, "expected *ast.Text, got %T", node)
	assert.Equal(t, "foo bar", text.Value)
}

func TestParse_Conditions(t *testing.T) {
	node := Parse(`from:bruce[messages:>5,body:"hot dog"]`)
	sel, ok := node.(*ast.Selector)
	require.True(t, ok)
	require.Len(t, sel.Conditions, 2)
	assert.Equal(t, ast.Condition{Key: "messages", Value: ">5"}, sel.Conditions[0])
	assert.Equal(t, ast.Condition{Key: "body", Value: "hot dog", Quoted: true}, sel.Conditions[1])
}

func TestParse_ConditionsMissingCloseBracket(t *testing.T) {
	node := Parse("from:bruce[messages:>5")
	sel, ok := node.(*ast.Selector)
	require.True(t, ok)
	require.Len(t, sel.Conditions, 1)
	assert.Equal(t, ast.Condition{Key: "messages", Value: ">5"}, sel.Conditions[0])
}

func TestParse_EmptyConditionList(t *testing.T) {
	node := Parse("from:bruce[]")
	sel, ok := node.(*ast.Selector)
	require.True(t, ok)
	assert.Empty(t, sel.Conditions)
}

func TestParse_MixedQuery(t *testing.T) {
	node := Parse(`from:me unread: "release notes" OR starred:`)
	or, ok := node.(*ast.Or)
	require.True(t, ok, "expected *ast.Or, got %T", node)
	require.Len(t, or.Children, 2)

	and, ok := or.Children[0].(*ast.And)
	require.True(t, ok)
	assert.Len(t, and.Children, 3)

	sel, ok := or.Children[1].(*ast.Selector)
	require.True(t, ok)
	assert.Equal(t, ast.KeyStarred, sel.Key)
}

func TestParse_NormalizedOutput(t *testing.T) {
	// The parser hands back trees already in normal form.
	node := Parse("((a b) c)")
	and, ok := node.(*ast.And)
	require.True(t, ok)
	assert.Len(t, and.Children, 3)

	assert.Equal(t, node, ast.Normalize(node))
}
