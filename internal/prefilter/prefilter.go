// Package prefilter gates D candidates on their upstream selection flags
// before pairing. The gate expression is written in CEL, compiled once, and
// evaluated per candidate.
package prefilter

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/kinematics"
)

// Gate is a compiled keep/drop predicate over a D candidate.
//
// Expressions see these variables:
//   - kind     (int)    1 = D+, 2 = D*
//   - selDplus (int)    cut cascade outcome of the D+ -> pi K pi selector
//   - selDstar (bool)   decision of the D* -> D0 pi selector
//   - pt       (double) transverse momentum of the candidate, GeV/c
//
// An empty expression keeps every candidate.
type Gate struct {
	expr string
	prg  cel.Program
}

// New compiles the gate expression. The returned Gate is safe for
// concurrent use.
func New(expr string) (*Gate, error) {
	if expr == "" {
		return &Gate{}, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("kind", cel.IntType),
		cel.Variable("selDplus", cel.IntType),
		cel.Variable("selDstar", cel.BoolType),
		cel.Variable("pt", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile prefilter %q: %w", expr, issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build prefilter program: %w", err)
	}

	return &Gate{expr: expr, prg: prg}, nil
}

// Keep evaluates the gate for one candidate.
func (g *Gate) Keep(d *domain.DCandidate) (bool, error) {
	if g.prg == nil {
		return true, nil
	}

	out, _, err := g.prg.Eval(map[string]interface{}{
		"kind":     int64(d.Kind),
		"selDplus": int64(d.SelDplus),
		"selDstar": d.SelDstar,
		"pt":       kinematics.Pt(d.P),
	})
	if err != nil {
		return false, fmt.Errorf("eval prefilter: %w", err)
	}

	keep, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("prefilter expression must return boolean, got %T", out.Value())
	}

	return keep, nil
}

// Expression returns the source expression the gate was compiled from.
func (g *Gate) Expression() string {
	return g.expr
}

// DefaultExpression returns the stock gate for a decay channel: D* candidates
// need the D* -> D0 pi decision, D+ candidates need the pi K pi cascade flag.
func DefaultExpression(ch domain.DecayChannel) string {
	if ch.ParentKind() == domain.DKindDstar {
		return "selDstar"
	}
	return "selDplus >= 1"
}
