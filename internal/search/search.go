// Package search runs the full query pipeline: parse the raw string,
// validate the AST, compile it to a plan for a principal, render SQL,
// and execute it against the archive.
//
// Warnings accumulate across every stage and come back alongside the
// result; no stage fails the query.
package search

import (
	"context"
	"fmt"

	"github.com/loreline/topicsearch/internal/ast"
	"github.com/loreline/topicsearch/internal/dates"
	"github.com/loreline/topicsearch/internal/parser"
	"github.com/loreline/topicsearch/internal/plan"
	"github.com/loreline/topicsearch/internal/plansql"
	"github.com/loreline/topicsearch/internal/resolve"
	"github.com/loreline/topicsearch/internal/store"
	"github.com/loreline/topicsearch/internal/validate"
)

// Engine compiles and executes queries against one archive.
// Safe for concurrent use.
type Engine struct {
	store *store.Store
	dates *dates.Parser
}

// New creates an Engine over an open store. clock may be nil for the
// system clock.
func New(st *store.Store, clock dates.Clock) *Engine {
	return &Engine{store: st, dates: dates.New(clock)}
}

// Checked is the outcome of parsing and validating a raw query.
type Checked struct {
	AST      ast.Node
	Warnings []string
}

// Check parses and validates a raw query without touching the store.
func (e *Engine) Check(raw string) Checked {
	parsed := parser.Parse(raw)
	validated, warnings := validate.New(e.dates).Validate(parsed)
	return Checked{AST: validated, Warnings: warnings}
}

// Planned is a compiled query: the plan, its SQL rendering, and every
// warning produced on the way.
type Planned struct {
	AST      ast.Node
	Plan     plan.Plan
	SQL      string
	Params   []any
	Warnings []string
}

// Plan compiles a raw query for a principal down to executable SQL.
// principal may be nil for an anonymous request.
func (e *Engine) Plan(ctx context.Context, raw string, principal *resolve.Principal) (*Planned, error) {
	checked := e.Check(raw)
	warnings := checked.Warnings

	resolver := resolve.New(e.store, principal)
	compiled, buildWarnings := plan.NewBuilder(resolver, e.dates).Build(ctx, checked.AST)
	warnings = append(warnings, buildWarnings...)

	fts, err := e.store.HasBodyIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("plan query: %w", err)
	}
	sql, params, err := plansql.New(fts).Compile(compiled)
	if err != nil {
		return nil, fmt.Errorf("plan query: %w", err)
	}

	return &Planned{
		AST:      checked.AST,
		Plan:     compiled,
		SQL:      sql,
		Params:   params,
		Warnings: warnings,
	}, nil
}

// Result is a search outcome: matching topic ids in ascending order
// plus accumulated warnings.
type Result struct {
	TopicIDs []int64
	Warnings []string
}

// Search compiles and executes a raw query for a principal.
func (e *Engine) Search(ctx context.Context, raw string, principal *resolve.Principal) (*Result, error) {
	planned, err := e.Plan(ctx, raw, principal)
	if err != nil {
		return nil, err
	}
	ids, err := e.store.QueryTopics(ctx, planned.SQL, planned.Params...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	return &Result{TopicIDs: ids, Warnings: planned.Warnings}, nil
}
