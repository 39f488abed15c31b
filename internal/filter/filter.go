// Package filter implements the boolean expression trees used to decide
// which rows of a reminder target get notified. A tree is parsed once per
// target from the configuration document and evaluated against flat
// column-name -> cell-value records.
package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type kind int

const (
	kindAnd kind = iota
	kindOr
	kindNot
	kindLeaf
)

// Expr is one node of a filter tree. Exactly one variant is populated:
// a composite (and/or/not) or a leaf comparison {column, op, value}.
type Expr struct {
	kind     kind
	children []*Expr
	child    *Expr
	column   string
	op       string
	value    any
}

// And builds a conjunction node. An empty conjunction is vacuously true.
func And(children ...*Expr) *Expr {
	return &Expr{kind: kindAnd, children: children}
}

// Or builds a disjunction node. An empty disjunction is false.
func Or(children ...*Expr) *Expr {
	return &Expr{kind: kindOr, children: children}
}

// Not builds a negation node.
func Not(child *Expr) *Expr {
	return &Expr{kind: kindNot, child: child}
}

// Leaf builds a comparison node.
func Leaf(column, op string, value any) *Expr {
	return &Expr{kind: kindLeaf, column: column, op: op, value: value}
}

// Parse decodes a YAML/JSON filter document into an expression tree.
func Parse(data []byte) (*Expr, error) {
	var e Expr
	if err := yaml.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// UnmarshalYAML decodes a filter node. A mapping must contain exactly one
// of the composite keys (and/or/not) or a leaf shape (column + op).
func (e *Expr) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("filter: expected mapping node, got %v", node.Kind)
	}

	var (
		andNode, orNode, notNode *yaml.Node
		column, op               string
		value                    any
		hasColumn, hasOp         bool
	)

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		switch key {
		case "and":
			andNode = val
		case "or":
			orNode = val
		case "not":
			notNode = val
		case "column":
			if err := val.Decode(&column); err != nil {
				return err
			}
			hasColumn = true
		case "op":
			if err := val.Decode(&op); err != nil {
				return err
			}
			hasOp = true
		case "value":
			if err := val.Decode(&value); err != nil {
				return err
			}
		default:
			return fmt.Errorf("filter: unknown key %q", key)
		}
	}

	kinds := 0
	if andNode != nil {
		kinds++
	}
	if orNode != nil {
		kinds++
	}
	if notNode != nil {
		kinds++
	}
	if hasColumn || hasOp {
		kinds++
	}
	if kinds != 1 {
		return fmt.Errorf("filter: node must be exactly one of and/or/not/leaf, got %d kinds", kinds)
	}

	switch {
	case andNode != nil:
		e.kind = kindAnd
		return andNode.Decode(&e.children)
	case orNode != nil:
		e.kind = kindOr
		return orNode.Decode(&e.children)
	case notNode != nil:
		e.kind = kindNot
		e.child = &Expr{}
		return notNode.Decode(e.child)
	default:
		if !hasColumn || !hasOp {
			return fmt.Errorf("filter: leaf node requires both column and op")
		}
		e.kind = kindLeaf
		e.column = column
		e.op = op
		e.value = value
		return nil
	}
}

// MarshalYAML emits the same document shape Parse accepts, so a loaded
// configuration can be saved back without loss.
func (e *Expr) MarshalYAML() (any, error) {
	switch e.kind {
	case kindAnd:
		return map[string]any{"and": e.children}, nil
	case kindOr:
		return map[string]any{"or": e.children}, nil
	case kindNot:
		return map[string]any{"not": e.child}, nil
	default:
		m := map[string]any{"column": e.column, "op": e.op}
		if e.value != nil {
			m["value"] = e.value
		}
		return m, nil
	}
}

// Evaluate reports whether the record matches the tree. A nil tree matches
// everything. Evaluation is side-effect free and never panics on malformed
// operands; comparisons that make no sense yield false.
func (e *Expr) Evaluate(record map[string]any) bool {
	if e == nil {
		return true
	}
	switch e.kind {
	case kindAnd:
		for _, c := range e.children {
			if !c.Evaluate(record) {
				return false
			}
		}
		return true
	case kindOr:
		for _, c := range e.children {
			if c.Evaluate(record) {
				return true
			}
		}
		return false
	case kindNot:
		return !e.child.Evaluate(record)
	default:
		return e.evaluateLeaf(record)
	}
}

func (e *Expr) evaluateLeaf(record map[string]any) bool {
	value, present := record[e.column]
	if !present {
		// An absent column equals nothing, so only != can match.
		return e.op == "!="
	}

	switch e.op {
	case "==":
		return looseEqual(value, e.value)
	case "!=":
		return !looseEqual(value, e.value)
	case "<":
		c, ok := compareOrder(value, e.value)
		return ok && c < 0
	case "<=":
		c, ok := compareOrder(value, e.value)
		return ok && c <= 0
	case ">":
		c, ok := compareOrder(value, e.value)
		return ok && c > 0
	case ">=":
		c, ok := compareOrder(value, e.value)
		return ok && c >= 0
	case "in":
		arr, ok := e.value.([]any)
		if !ok {
			return false
		}
		want := strings.TrimSpace(Stringify(value))
		for _, v := range arr {
			if strings.TrimSpace(Stringify(v)) == want {
				return true
			}
		}
		return false
	case "includes":
		if arr, ok := value.([]any); ok {
			want := Stringify(e.value)
			for _, v := range arr {
				if Stringify(v) == want {
					return true
				}
			}
			return false
		}
		return strings.Contains(Stringify(value), Stringify(e.value))
	default:
		// Fail closed on unknown operators.
		return false
	}
}

// looseEqual replicates the coercive equality the configuration format
// relies on: if both operands parse as numbers they compare numerically
// (so "5" equals 5), otherwise their string forms compare.
func looseEqual(a, b any) bool {
	na, aok := toNumber(a)
	nb, bok := toNumber(b)
	if aok && bok {
		return na == nb
	}
	return Stringify(a) == Stringify(b)
}

// compareOrder orders two operands. Numbers order numerically, strings
// lexically, times chronologically. Mixed or non-orderable operands
// report ok=false and the comparison fails.
func compareOrder(a, b any) (int, bool) {
	na, aok := toNumber(a)
	nb, bok := toNumber(b)
	if aok && bok {
		switch {
		case na < nb:
			return -1, true
		case na > nb:
			return 1, true
		default:
			return 0, true
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt), true
		}
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Stringify renders a cell value the way the comparison operators see it.
func Stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case time.Time:
		return s.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}
