package effect

import (
	"testing"

	"github.com/nmxmxh/battlerealm/internal/numeric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatementEmptyAndComment(t *testing.T) {
	for _, line := range []string{"", "   ", "# a comment", "  # indented comment"} {
		st, err := ParseStatement(line)
		require.NoError(t, err)
		assert.True(t, st.Empty)
	}
}

func TestParseStatementFunctionCallColonForm(t *testing.T) {
	st, err := ParseStatement("damage: $target 20")
	require.NoError(t, err)
	require.NotNil(t, st.FunctionCall)
	assert.Equal(t, Identifier("damage"), st.FunctionCall.Function)
	require.Len(t, st.FunctionCall.Args, 2)
	assert.Equal(t, Identifier("target"), st.FunctionCall.Args[0].VarRef.Name)
}

func TestParseStatementFunctionCallParenForm(t *testing.T) {
	st, err := ParseStatement("rand(0, 1)")
	require.NoError(t, err)
	require.NotNil(t, st.FunctionCall)
	assert.Equal(t, Identifier("rand"), st.FunctionCall.Function)
	require.Len(t, st.FunctionCall.Args, 2)
}

func TestParseStatementAssignment(t *testing.T) {
	st, err := ParseStatement("$a = 2/5")
	require.NoError(t, err)
	require.NotNil(t, st.Assignment)
	assert.Equal(t, Identifier("a"), st.Assignment.LHS.Name)
	assert.NotNil(t, st.Assignment.RHS.Value.Number)
}

func TestParseStatementIfElse(t *testing.T) {
	ifSt, err := ParseStatement("if $mon.fainted:")
	require.NoError(t, err)
	require.NotNil(t, ifSt.If)
	assert.Equal(t, Identifier("mon"), ifSt.If.Cond.Value.VarRef.Name)
	assert.Equal(t, []Identifier{"fainted"}, ifSt.If.Cond.Value.VarRef.MemberAccess)

	elseSt, err := ParseStatement("else:")
	require.NoError(t, err)
	require.NotNil(t, elseSt.ElseIf)
	assert.Nil(t, elseSt.ElseIf.Cond)
}

func TestParseStatementForEach(t *testing.T) {
	st, err := ParseStatement("foreach $mon in $team:")
	require.NoError(t, err)
	require.NotNil(t, st.ForEach)
	assert.Equal(t, Identifier("mon"), st.ForEach.Var.Name)
	assert.Equal(t, Identifier("team"), st.ForEach.Range.VarRef.Name)
}

func TestParseStatementReturn(t *testing.T) {
	st, err := ParseStatement("return 2")
	require.NoError(t, err)
	require.NotNil(t, st.Return)
	require.NotNil(t, st.Return.Value)

	bare, err := ParseStatement("return")
	require.NoError(t, err)
	assert.Nil(t, bare.Return.Value)
}

func TestParseProgramSingleStatement(t *testing.T) {
	prog, err := ParseProgram(LeafProgram("function_call"))
	require.NoError(t, err)
	require.NotNil(t, prog.Block.Leaf)
	assert.Equal(t, Identifier("function_call"), prog.Block.Leaf.FunctionCall.Function)
}

func TestParseProgramEmptyFails(t *testing.T) {
	_, err := ParseProgram(LeafProgram(""))
	assert.Error(t, err)
}

func TestParseProgramBranchesAndComments(t *testing.T) {
	prog, err := ParseProgram(BranchProgram(
		LeafProgram("function_1"),
		LeafProgram("$a = 2/5"),
		LeafProgram("# comment, ignored"),
		LeafProgram("function_2: $a"),
	))
	require.NoError(t, err)
	require.Len(t, prog.Block.Branch, 3)
}

func TestParseProgramMaxDepthExceeded(t *testing.T) {
	p := LeafProgram("if true:")
	for i := 0; i < 6; i++ {
		p = BranchProgram(LeafProgram("if true:"), p)
	}
	_, err := ParseProgram(p)
	assert.ErrorContains(t, err, "exceeded maximum depth")
}

func TestEvalIfElseAndFunctionCall(t *testing.T) {
	prog, err := ParseProgram(BranchProgram(
		LeafProgram("if $x == 1:"),
		BranchProgram(LeafProgram("$damage = 20")),
		LeafProgram("else:"),
		BranchProgram(LeafProgram("$damage = 40")),
		LeafProgram("record: $damage"),
	))
	require.NoError(t, err)

	var recorded interface{}
	env := NewMapEnv(map[string]interface{}{"x": numeric.FractionFromInt[int64](1)})
	ev := NewEvaluator(env, map[string]HostFunc{
		"record": func(args []interface{}) (interface{}, error) {
			recorded = args[0]
			return nil, nil
		},
	})
	_, err = ev.Run(prog)
	require.NoError(t, err)
	assert.Equal(t, int64(20), recorded.(numeric.Fraction[int64]).Numerator())
}

func TestEvalForEachAndReturn(t *testing.T) {
	prog, err := ParseProgram(BranchProgram(
		LeafProgram("foreach $n in $items:"),
		BranchProgram(
			LeafProgram("if $n == 2:"),
			BranchProgram(LeafProgram("return $n")),
		),
	))
	require.NoError(t, err)

	env := NewMapEnv(map[string]interface{}{
		"items": []interface{}{
			numeric.FractionFromInt[int64](1),
			numeric.FractionFromInt[int64](2),
			numeric.FractionFromInt[int64](3),
		},
	})
	ev := NewEvaluator(env, map[string]HostFunc{})
	v, err := ev.Run(prog)
	require.NoError(t, err)
	require.NotNil(t, v)
}

func TestBusDispatchOrdersByPriorityThenOrder(t *testing.T) {
	bus := NewBus()
	bus.Register("ModifyDamage", Listener{Name: "b", Order: 2, Priority: 0})
	bus.Register("ModifyDamage", Listener{Name: "a", Order: 1, Priority: 0})
	bus.Register("ModifyDamage", Listener{Name: "high", Order: 5, Priority: 10})

	ls := bus.Listeners("ModifyDamage")
	require.Len(t, ls, 3)
	assert.Equal(t, "high", ls[0].Name)
	assert.Equal(t, "a", ls[1].Name)
	assert.Equal(t, "b", ls[2].Name)
}
