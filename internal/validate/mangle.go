package validate

import (
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"github.com/diagramforge/core/internal/scene"
)

// kirchhoffProgram derives the transitive closure of connects_to edges and
// checks whether any node reaches back to itself through the declared
// power source — i.e. the circuit contains a closed loop through the
// source, per Kirchhoff's voltage law's topological precondition.
const kirchhoffProgram = `
	Decl connects_to(From, To).
	Decl reaches(From, To).
	Decl loop(Source).

	reaches(X, Y) :- connects_to(X, Y).
	reaches(X, Y) :- connects_to(X, Z), reaches(Z, Y).

	loop(S) :- reaches(S, N), connects_to(N, S).
`

// checkKirchhoffLoop builds a connects_to fact store from the scene's line
// objects (each line carries its endpoints in Properties, per
// internal/interpret's addConnectionLines) and checks that every declared
// power source participates in at least one closed loop.
func checkKirchhoffLoop(sc *scene.Scene) []Finding {
	edges := connectsToEdges(sc)
	if len(edges) == 0 {
		return nil
	}
	sources := powerSources(sc)
	if len(sources) == 0 {
		return nil // nothing declared as a source; no loop to require
	}

	loopers, err := evalLoopClosure(edges)
	if err != nil {
		return []Finding{{
			Category: "circuit_kirchhoff_loop",
			Severity: SeverityMinor,
			Message:  "could not evaluate loop closure: " + err.Error(),
		}}
	}

	var findings []Finding
	for _, src := range sources {
		if !loopers[src] {
			findings = append(findings, Finding{
				Category:    "circuit_kirchhoff_loop",
				Severity:    SeverityCritical,
				ObjectIDs:   []string{src},
				Message:     "power source " + src + " is not part of a closed loop",
				AutoFixHint: "add_return_connection",
			})
		}
	}
	return findings
}

func connectsToEdges(sc *scene.Scene) [][2]string {
	var edges [][2]string
	for _, o := range sc.Objects {
		if o.PrimitiveType != "line" {
			continue
		}
		kind, _ := o.Properties["relation_kind"].(string)
		if kind != "connects_to" {
			continue
		}
		from, _ := o.Properties["from"].(string)
		to, _ := o.Properties["to"].(string)
		if from == "" || to == "" {
			continue
		}
		edges = append(edges, [2]string{from, to})
	}
	return edges
}

func powerSources(sc *scene.Scene) []string {
	var sources []string
	for _, o := range sc.Objects {
		kind, _ := o.Properties["primitive_hint"].(string)
		if kind == "battery" || kind == "power_source" {
			sources = append(sources, o.ID)
		}
	}
	return sources
}

// evalLoopClosure runs kirchhoffProgram over edges and returns the set of
// node ids that loop/1 derives.
func evalLoopClosure(edges [][2]string) (map[string]bool, error) {
	unit, err := parse.Unit(strings.NewReader(kirchhoffProgram))
	if err != nil {
		return nil, err
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, err
	}
	store := factstore.NewSimpleInMemoryStore()
	for _, e := range edges {
		store.Add(ast.NewAtom("connects_to", ast.String(e[0]), ast.String(e[1])))
	}
	if _, err := engine.EvalProgramWithStats(programInfo, store); err != nil {
		return nil, err
	}

	loopers := make(map[string]bool)
	query := ast.NewQuery(ast.PredicateSym{Symbol: "loop", Arity: 1})
	err = store.GetFacts(query, func(atom ast.Atom) error {
		if len(atom.Args) != 1 {
			return nil
		}
		if c, ok := atom.Args[0].(ast.Constant); ok {
			loopers[c.Symbol] = true
		}
		return nil
	})
	return loopers, err
}
