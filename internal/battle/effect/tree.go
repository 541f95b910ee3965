// Package effect implements fxlang, the line-oriented scripting DSL that
// every listener callback in the effect pipeline is written in (spec.md
// §4.6). It parses a nested-array program into a syntax tree and evaluates
// it against a caller-supplied environment and function table.
package effect

import "github.com/nmxmxh/battlerealm/internal/numeric"

// Identifier is a bare name: a function, variable, or member name.
type Identifier string

// Var is a variable reference with optional dotted member access, e.g.
// `$mon.ability.id` parses to Var{Name: "mon", MemberAccess: ["ability", "id"]}.
type Var struct {
	Name         Identifier
	MemberAccess []Identifier
}

// NumberLiteral is either a bare fraction or one made negative by a unary
// minus; fxlang has no separate signed/unsigned literal distinction in this
// port, so this simply wraps a Fraction.
type NumberLiteral struct {
	Value numeric.Fraction[int64]
}

// FunctionCall is `name: arg1 arg2 ...` or `name(arg1, arg2, ...)`.
type FunctionCall struct {
	Function Identifier
	Args     []Value
}

// Value is one operand: a literal, a variable reference, or a nested
// function call used for its return value.
type Value struct {
	Number   *NumberLiteral
	Bool     *bool
	Str      *string
	VarRef   *Var
	FuncCall *FunctionCall
}

// Operator is a binary operator, listed in fxlang's precedence order
// (lowest first): or, and, comparison, additive, multiplicative.
type Operator int

const (
	OpOr Operator = iota
	OpAnd
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpAdd
	OpSub
	OpMul
	OpDiv
)

// BinaryExprRhs is one `op expr` pair chained onto a left-hand expression.
type BinaryExprRhs struct {
	Op   Operator
	Expr *Expr
}

// Expr is either a bare Value or a Value followed by a chain of binary
// operator applications, evaluated left-to-right (fxlang does not nest
// parenthesized sub-expressions; it relies on statement composition
// instead, matching the original's line-oriented design).
type Expr struct {
	Value Value
	Rhs   []BinaryExprRhs
}

// Assignment is `$var = expr` or `$var.member = expr`.
type Assignment struct {
	LHS Var
	RHS Expr
}

// IfStatement is `if <expr>:`, heading a branch block.
type IfStatement struct{ Cond Expr }

// ElseIfStatement is `else if <expr>:` (Cond set) or bare `else:` (Cond nil).
type ElseIfStatement struct{ Cond *Expr }

// ForEachStatement is `foreach $var in <range>:`.
type ForEachStatement struct {
	Var   Var
	Range Value
}

// ReturnStatement is `return` or `return <value>`.
type ReturnStatement struct{ Value *Value }

// Statement is one parsed fxlang line.
type Statement struct {
	Empty        bool
	FunctionCall *FunctionCall
	Assignment   *Assignment
	If           *IfStatement
	ElseIf       *ElseIfStatement
	ForEach      *ForEachStatement
	Return       *ReturnStatement
}
