// Package ast defines the abstract syntax tree for archive search queries.
//
// A query string like:
//
//	from:bruce[messages:>=10] -has:patch "exact phrase" OR starred:me
//
// parses into a tree of Node values. Node is a sealed interface - only
// And, Or, Selector, and Text implement it. The marker method pattern
// prevents external implementations and enables exhaustive type switches
// in the validator and plan builder.
//
// Every node carries a Negated flag. For leaf nodes negation compiles
// directly into an exclusion form; for compound nodes it is distributed
// at plan-build time relative to the enclosing context.
package ast
