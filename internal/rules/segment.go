// Package rules provides the CEL-Go based customer segment decision engine.
package rules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/opensource-commerce/kestrel/internal/domain"
)

// DefaultSegment is returned when no rule in the decision table matches.
const DefaultSegment = domain.SegmentNeedAttention

// SegmentEngine evaluates the RFM segment decision table.
// Rules are pre-compiled CEL programs evaluated in priority order; the first
// rule whose expression is true names the segment.
type SegmentEngine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled []*compiledSegmentRule
}

type compiledSegmentRule struct {
	rule    *domain.SegmentRule
	program cel.Program
}

// NewSegmentEngine creates a segment engine with an environment exposing the
// three scores and the score ceiling.
func NewSegmentEngine() (*SegmentEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("r", cel.IntType),
		cel.Variable("f", cel.IntType),
		cel.Variable("m", cel.IntType),
		cel.Variable("max_score", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &SegmentEngine{env: env}, nil
}

// LoadRules compiles and installs a rule set, replacing any loaded rules.
// Rules are ordered by ascending priority.
func (e *SegmentEngine) LoadRules(rules []*domain.SegmentRule) error {
	compiled := make([]*compiledSegmentRule, 0, len(rules))
	for _, rule := range rules {
		program, err := e.compile(rule)
		if err != nil {
			return err
		}
		compiled = append(compiled, &compiledSegmentRule{rule: rule, program: program})
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].rule.Priority < compiled[j].rule.Priority
	})

	e.mu.Lock()
	e.compiled = compiled
	e.mu.Unlock()
	return nil
}

// Segment maps a score triple to a segment name. Evaluation is top-down,
// first match wins; an expression error skips that rule. Falls back to
// DefaultSegment when nothing matches.
func (e *SegmentEngine) Segment(r, f, m, maxScore int) string {
	e.mu.RLock()
	compiled := e.compiled
	e.mu.RUnlock()

	activation := map[string]any{
		"r":         int64(r),
		"f":         int64(f),
		"m":         int64(m),
		"max_score": int64(maxScore),
	}

	for _, c := range compiled {
		out, _, err := c.program.Eval(activation)
		if err != nil {
			continue
		}
		if matched, ok := out.(types.Bool); ok && bool(matched) {
			return c.rule.Segment
		}
	}
	return DefaultSegment
}

// RulesCount returns the number of loaded rules.
func (e *SegmentEngine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

func (e *SegmentEngine) compile(rule *domain.SegmentRule) (cel.Program, error) {
	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile segment rule %s: %w", rule.Name, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("segment rule %s: expression must return bool, got %s", rule.Name, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for segment rule %s: %w", rule.Name, err)
	}
	return program, nil
}
