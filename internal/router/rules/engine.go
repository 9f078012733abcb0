// Package rules wraps the Google Mangle Datalog engine for the router's
// normative routing tables: decision points are expressed as facts joined
// against a small set of rules rather than as if/else chains, so the
// routing tables and the code that evaluates them stay the same shape.
// Trimmed to what routing needs: no persistence, no file-fact indexing.
package rules

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
)

// Engine holds one compiled Datalog program and its fact store.
type Engine struct {
	store          factstore.FactStoreWithRemove
	programInfo    *analysis.ProgramInfo
	predicateIndex map[string]ast.PredicateSym
}

// NewEngine compiles program (Decl + rule clauses) into a fresh Engine.
func NewEngine(program string) (*Engine, error) {
	unit, err := parse.Unit(bytes.NewReader([]byte(program)))
	if err != nil {
		return nil, fmt.Errorf("rules: parse program: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(parse.SourceUnit{Clauses: unit.Clauses, Decls: unit.Decls}, nil)
	if err != nil {
		return nil, fmt.Errorf("rules: analyze program: %w", err)
	}
	idx := make(map[string]ast.PredicateSym, len(programInfo.Decls))
	for sym := range programInfo.Decls {
		idx[sym.Symbol] = sym
	}
	return &Engine{
		store:          factstore.NewSimpleInMemoryStore(),
		programInfo:    programInfo,
		predicateIndex: idx,
	}, nil
}

// AddFact inserts predicate(args...) as a base fact. It does not evaluate
// the program; call Eval before Query so derived predicates reflect it
// (routing decisions are decided fresh per call; there is no long-lived
// fact history).
func (e *Engine) AddFact(predicate string, args ...any) error {
	sym, ok := e.predicateIndex[predicate]
	if !ok {
		return fmt.Errorf("rules: predicate %s not declared", predicate)
	}
	if len(args) != sym.Arity {
		return fmt.Errorf("rules: predicate %s expects %d args, got %d", predicate, sym.Arity, len(args))
	}
	terms := make([]ast.BaseTerm, len(args))
	for i, a := range args {
		terms[i] = toTerm(a)
	}
	e.store.Add(ast.Atom{Predicate: sym, Args: terms})
	return nil
}

// Eval runs the program's rules to a fixpoint over the current facts.
func (e *Engine) Eval() error {
	_, err := mengine.EvalProgramWithStats(e.programInfo, e.store)
	if err != nil {
		return fmt.Errorf("rules: eval: %w", err)
	}
	return nil
}

// Fact is a predicate application with its argument strings already
// unwrapped from Mangle's constant representation.
type Fact struct {
	Predicate string
	Args      []string
}

// Query returns every derived fact for predicate after Eval.
func (e *Engine) Query(predicate string) ([]Fact, error) {
	sym, ok := e.predicateIndex[predicate]
	if !ok {
		return nil, fmt.Errorf("rules: predicate %s not declared", predicate)
	}
	var out []Fact
	err := e.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		args := make([]string, len(atom.Args))
		for i, a := range atom.Args {
			args[i] = termString(a)
		}
		out = append(out, Fact{Predicate: predicate, Args: args})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rules: query %s: %w", predicate, err)
	}
	return out, nil
}

// toTerm converts a Go value into a Mangle base term, preferring Name
// constants (/foo) for identifier-like strings, matching the convention the
// routing rules below are written against.
func toTerm(v any) ast.BaseTerm {
	switch x := v.(type) {
	case string:
		if strings.HasPrefix(x, "/") {
			if n, err := ast.Name(x); err == nil {
				return n
			}
		}
		return ast.String(x)
	case bool:
		if x {
			return ast.TrueConstant
		}
		return ast.FalseConstant
	case int:
		return ast.Number(int64(x))
	case int64:
		return ast.Number(x)
	case float64:
		return ast.Float64(x)
	default:
		return ast.String(fmt.Sprintf("%v", x))
	}
}

func termString(t ast.BaseTerm) string {
	if c, ok := t.(ast.Constant); ok {
		return strings.TrimPrefix(c.String(), "/")
	}
	return t.String()
}
