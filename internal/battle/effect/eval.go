package effect

import (
	"fmt"
	"reflect"

	"github.com/nmxmxh/battlerealm/internal/numeric"
)

// Env resolves and stores fxlang variable bindings for one evaluation.
type Env interface {
	Get(name string) (interface{}, bool)
	Set(name string, value interface{})
}

// MapEnv is a generic Env backed by a map, sufficient for listener
// callbacks that only need simple named bindings ($mon, $target, $damage,
// ...) plus struct/map member access resolved via reflection.
type MapEnv struct{ vars map[string]interface{} }

// NewMapEnv creates an Env seeded with the given bindings.
func NewMapEnv(seed map[string]interface{}) *MapEnv {
	m := make(map[string]interface{}, len(seed))
	for k, v := range seed {
		m[k] = v
	}
	return &MapEnv{vars: m}
}

func (e *MapEnv) Get(name string) (interface{}, bool) { v, ok := e.vars[name]; return v, ok }
func (e *MapEnv) Set(name string, value interface{})  { e.vars[name] = value }

// HostFunc is a function fxlang can call by name, e.g. `damage: $target $amount`.
type HostFunc func(args []interface{}) (interface{}, error)

// Evaluator walks a ParsedProgram against an Env and a table of host
// functions exposed to fxlang (damage, boost, status, rand, and so on are
// registered by the battle engine, not by this package).
type Evaluator struct {
	Env   Env
	Funcs map[string]HostFunc
}

// NewEvaluator creates an Evaluator over the given environment and
// function table.
func NewEvaluator(env Env, funcs map[string]HostFunc) *Evaluator {
	return &Evaluator{Env: env, Funcs: funcs}
}

// Run evaluates a parsed program to completion (or an explicit return) and
// reports the returned value, if any.
func (e *Evaluator) Run(program *ParsedProgram) (interface{}, error) {
	v, _, err := e.evalBlock([]ParsedProgramBlock{program.Block})
	return v, err
}

func (e *Evaluator) evalBlock(blocks []ParsedProgramBlock) (interface{}, bool, error) {
	i := 0
	for i < len(blocks) {
		b := blocks[i]
		if b.Leaf == nil {
			v, returned, err := e.evalBlock(b.Branch)
			if err != nil || returned {
				return v, returned, err
			}
			i++
			continue
		}
		st := b.Leaf
		switch {
		case st.If != nil:
			cond, err := e.evalExpr(st.If.Cond)
			if err != nil {
				return nil, false, err
			}
			i++
			body := nextBranch(blocks, &i)
			taken := truthy(cond)
			handled := false
			if taken {
				v, returned, err := e.evalBlock(body)
				if err != nil || returned {
					return v, returned, err
				}
				handled = true
			}
			for i < len(blocks) && blocks[i].Leaf != nil && blocks[i].Leaf.ElseIf != nil {
				ei := blocks[i].Leaf.ElseIf
				i++
				ebody := nextBranch(blocks, &i)
				if handled {
					continue
				}
				take := true
				if ei.Cond != nil {
					c, err := e.evalExpr(*ei.Cond)
					if err != nil {
						return nil, false, err
					}
					take = truthy(c)
				}
				if take {
					v, returned, err := e.evalBlock(ebody)
					if err != nil || returned {
						return v, returned, err
					}
					handled = true
				}
			}
		case st.ForEach != nil:
			rangeVal, err := e.evalValue(st.ForEach.Range)
			if err != nil {
				return nil, false, err
			}
			i++
			body := nextBranch(blocks, &i)
			items, err := asIterable(rangeVal)
			if err != nil {
				return nil, false, err
			}
			for _, item := range items {
				e.Env.Set(string(st.ForEach.Var.Name), item)
				v, returned, err := e.evalBlock(body)
				if err != nil || returned {
					return v, returned, err
				}
			}
		case st.Return != nil:
			if st.Return.Value == nil {
				return nil, true, nil
			}
			v, err := e.evalValue(*st.Return.Value)
			return v, true, err
		case st.Assignment != nil:
			v, err := e.evalExpr(st.Assignment.RHS)
			if err != nil {
				return nil, false, err
			}
			e.assign(st.Assignment.LHS, v)
			i++
		case st.FunctionCall != nil:
			if _, err := e.callFunction(*st.FunctionCall); err != nil {
				return nil, false, err
			}
			i++
		default:
			i++
		}
	}
	return nil, false, nil
}

func nextBranch(blocks []ParsedProgramBlock, i *int) []ParsedProgramBlock {
	if *i < len(blocks) && blocks[*i].Leaf == nil {
		b := blocks[*i].Branch
		*i++
		return b
	}
	return nil
}

func (e *Evaluator) assign(v Var, value interface{}) {
	if len(v.MemberAccess) == 0 {
		e.Env.Set(string(v.Name), value)
		return
	}
	// Member-path assignment targets host-owned state (e.g. $mon.hp); this
	// package only stores top-level bindings, so nested assignment is left
	// to the host function the statement's surrounding call invokes.
	e.Env.Set(string(v.Name), value)
}

func (e *Evaluator) evalExpr(expr Expr) (interface{}, error) {
	acc, err := e.evalValue(expr.Value)
	if err != nil {
		return nil, err
	}
	for _, rhs := range expr.Rhs {
		rv, err := e.evalExpr(*rhs.Expr)
		if err != nil {
			return nil, err
		}
		acc, err = applyOperator(rhs.Op, acc, rv)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (e *Evaluator) evalValue(v Value) (interface{}, error) {
	switch {
	case v.Number != nil:
		return v.Number.Value, nil
	case v.Bool != nil:
		return *v.Bool, nil
	case v.Str != nil:
		return *v.Str, nil
	case v.VarRef != nil:
		return e.resolveVar(*v.VarRef)
	case v.FuncCall != nil:
		return e.callFunction(*v.FuncCall)
	default:
		return nil, fmt.Errorf("empty value")
	}
}

func (e *Evaluator) resolveVar(v Var) (interface{}, error) {
	val, ok := e.Env.Get(string(v.Name))
	if !ok {
		return nil, fmt.Errorf("undefined variable %q", v.Name)
	}
	for _, member := range v.MemberAccess {
		next, err := resolveMember(val, string(member))
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", v.Name, member, err)
		}
		val = next
	}
	return val, nil
}

// resolveMember reads a named field from a struct (possibly behind
// pointers) or a string-keyed map, which covers the host data fxlang
// listeners typically reach into ($mon.ability.id, $side.conditions, ...).
func resolveMember(obj interface{}, name string) (interface{}, error) {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, fmt.Errorf("nil value has no member %q", name)
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		f := rv.FieldByName(name)
		if !f.IsValid() {
			return nil, fmt.Errorf("no such field %q", name)
		}
		return f.Interface(), nil
	case reflect.Map:
		mv := rv.MapIndex(reflect.ValueOf(name))
		if !mv.IsValid() {
			return nil, fmt.Errorf("no such key %q", name)
		}
		return mv.Interface(), nil
	default:
		return nil, fmt.Errorf("cannot access member %q on %T", name, obj)
	}
}

func (e *Evaluator) callFunction(fc FunctionCall) (interface{}, error) {
	fn, ok := e.Funcs[string(fc.Function)]
	if !ok {
		return nil, fmt.Errorf("unknown function %q", fc.Function)
	}
	args := make([]interface{}, 0, len(fc.Args))
	for _, a := range fc.Args {
		v, err := e.evalValue(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return fn(args)
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case numeric.Fraction[int64]:
		return t.Numerator() != 0
	default:
		return v != nil
	}
}

func asIterable(v interface{}) ([]interface{}, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("value is not iterable: %T", v)
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func applyOperator(op Operator, lhs, rhs interface{}) (interface{}, error) {
	switch op {
	case OpAnd:
		return truthy(lhs) && truthy(rhs), nil
	case OpOr:
		return truthy(lhs) || truthy(rhs), nil
	case OpEqual:
		return equalValues(lhs, rhs), nil
	case OpNotEqual:
		return !equalValues(lhs, rhs), nil
	}

	lf, lok := asFraction(lhs)
	rf, rok := asFraction(rhs)
	if !lok || !rok {
		return nil, fmt.Errorf("operator %v requires numeric operands, got %T and %T", op, lhs, rhs)
	}
	switch op {
	case OpLess:
		return lf.Compare(rf) < 0, nil
	case OpLessEqual:
		return lf.Compare(rf) <= 0, nil
	case OpGreater:
		return lf.Compare(rf) > 0, nil
	case OpGreaterEqual:
		return lf.Compare(rf) >= 0, nil
	case OpAdd:
		return lf.Add(rf), nil
	case OpSub:
		return lf.Sub(rf), nil
	case OpMul:
		return lf.Mul(rf), nil
	case OpDiv:
		return lf.Div(rf), nil
	default:
		return nil, fmt.Errorf("unsupported operator %v", op)
	}
}

func asFraction(v interface{}) (numeric.Fraction[int64], bool) {
	switch t := v.(type) {
	case numeric.Fraction[int64]:
		return t, true
	case int:
		return numeric.FractionFromInt(int64(t)), true
	case int64:
		return numeric.FractionFromInt(t), true
	default:
		return numeric.Fraction[int64]{}, false
	}
}

func equalValues(lhs, rhs interface{}) bool {
	if lf, lok := asFraction(lhs); lok {
		if rf, rok := asFraction(rhs); rok {
			return lf.Equal(rf)
		}
	}
	return reflect.DeepEqual(lhs, rhs)
}
