package numeric

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFractionSerializesToString(t *testing.T) {
	assert.Equal(t, "1/4", FractionPercentage[int64](25).String())
	assert.Equal(t, "1", FractionPercentage[int64](100).String())
	assert.Equal(t, "1/2", NewFraction[int64](1, 2).String())
	assert.Equal(t, "20/147", NewFraction[int64](20, 147).String())
}

func TestFractionParsesIntegers(t *testing.T) {
	for _, s := range []string{"25", "77", "100"} {
		f, err := ParseFraction64(s)
		require.NoError(t, err)
		assert.True(t, f.IsWhole())
	}
}

func TestFractionParsesPercentages(t *testing.T) {
	f, err := ParseFraction64("25%")
	require.NoError(t, err)
	assert.True(t, f.Equal(NewFraction[int64](1, 4)))

	f, err = ParseFraction64("100%")
	require.NoError(t, err)
	assert.True(t, f.Equal(NewFraction[int64](1, 1)))
}

func TestFractionParsesFractionForm(t *testing.T) {
	f, err := ParseFraction64("1/2")
	require.NoError(t, err)
	assert.True(t, f.Equal(NewFraction[int64](1, 2)))
}

func TestFractionEquality(t *testing.T) {
	assert.True(t, FractionPercentage[int64](10).Equal(FractionPercentage[int64](10)))
	assert.True(t, FractionPercentage[int64](20).Equal(NewFraction[int64](1, 5)))
	assert.True(t, NewFraction[int64](35, 100).Equal(FractionPercentage[int64](35)))
	assert.True(t, NewFraction[int64](3, 4).Equal(NewFraction[int64](12, 16)))
}

func TestFractionInequality(t *testing.T) {
	assert.False(t, FractionPercentage[int64](10).Equal(FractionPercentage[int64](100)))
	assert.False(t, NewFraction[int64](35, 100).Equal(FractionPercentage[int64](12)))
}

func TestFractionOrdering(t *testing.T) {
	percentages := []Fraction[int64]{
		NewFraction[int64](3, 4),
		NewFraction[int64](3, 200),
		FractionPercentage[int64](1),
		NewFraction[int64](2, 7),
		NewFraction[int64](2, 100),
		FractionPercentage[int64](100),
		NewFraction[int64](1, 4),
		NewFraction[int64](1, 2),
		FractionPercentage[int64](60),
	}
	sort.Slice(percentages, func(i, j int) bool {
		return percentages[i].Compare(percentages[j]) < 0
	})
	expected := []Fraction[int64]{
		FractionPercentage[int64](1),
		NewFraction[int64](3, 200),
		NewFraction[int64](2, 100),
		NewFraction[int64](1, 4),
		NewFraction[int64](2, 7),
		NewFraction[int64](1, 2),
		FractionPercentage[int64](60),
		NewFraction[int64](3, 4),
		FractionPercentage[int64](100),
	}
	require.Len(t, percentages, len(expected))
	for i := range expected {
		assert.True(t, percentages[i].Equal(expected[i]), "index %d", i)
	}
}

func TestFractionFloorDivision(t *testing.T) {
	assert.Equal(t, int64(0), FractionPercentage[int64](1).Floor())
	assert.Equal(t, int64(6), NewFraction[int64](77, 12).Floor())
	assert.Equal(t, int64(25), FractionPercentage[int64](2500).Floor())
	assert.Equal(t, int64(2), NewFraction[int64](33, 15).Floor())
	assert.Equal(t, int64(40), NewFraction[int64](1020, 25).Floor())
	assert.Equal(t, int64(0), NewFraction[int64](1, 2).Floor())
}

func TestFractionRoundDivision(t *testing.T) {
	assert.Equal(t, int64(0), FractionPercentage[int64](1).Round())
	assert.Equal(t, int64(6), NewFraction[int64](77, 12).Round())
	assert.Equal(t, int64(25), FractionPercentage[int64](2500).Round())
	assert.Equal(t, int64(2), NewFraction[int64](33, 15).Round())
	assert.Equal(t, int64(41), NewFraction[int64](1020, 25).Round())

	assert.Equal(t, int64(1), NewFraction[int64](1, 2).Round())
	assert.Equal(t, int64(1), NewFraction[int64](2, 2).Round())
	assert.Equal(t, int64(2), NewFraction[int64](3, 2).Round())
	assert.Equal(t, int64(2), NewFraction[int64](4, 2).Round())

	assert.Equal(t, int64(0), NewFraction[int64](1, 7).Round())
	assert.Equal(t, int64(0), NewFraction[int64](2, 7).Round())
	assert.Equal(t, int64(0), NewFraction[int64](3, 7).Round())
	assert.Equal(t, int64(1), NewFraction[int64](4, 7).Round())
	assert.Equal(t, int64(1), NewFraction[int64](5, 7).Round())
	assert.Equal(t, int64(1), NewFraction[int64](6, 7).Round())
	assert.Equal(t, int64(1), NewFraction[int64](7, 7).Round())
	assert.Equal(t, int64(1), NewFraction[int64](8, 7).Round())
}

func TestFractionCeilDivision(t *testing.T) {
	assert.Equal(t, int64(1), FractionPercentage[int64](1).Ceil())
	assert.Equal(t, int64(7), NewFraction[int64](77, 12).Ceil())
	assert.Equal(t, int64(25), FractionPercentage[int64](2500).Ceil())
}

func TestFractionIntegerAddition(t *testing.T) {
	assert.True(t, FractionPercentage[int64](1).AddInt(10000).Equal(NewFraction[int64](1000001, 100)))
	assert.True(t, NewFraction[int64](12, 77).AddInt(2).Equal(NewFraction[int64](166, 77)))
	assert.True(t, FractionPercentage[int64](25).AddInt(0).Equal(NewFraction[int64](1, 4)))
}

func TestFractionAddition(t *testing.T) {
	assert.True(t, NewFraction[int64](12, 77).Add(NewFraction[int64](5, 6)).Equal(NewFraction[int64](457, 462)))
	assert.True(t, NewFraction[int64](12, 12).Add(NewFraction[int64](53, 53)).Equal(FractionFromInt[int64](2)))
	assert.True(t, NewFraction[int64](1, 4).Add(NewFraction[int64](2, 4)).Equal(NewFraction[int64](3, 4)))
}

func TestFractionIntegerSubtraction(t *testing.T) {
	assert.True(t, FractionPercentage[int64](1).SubInt(10000).Equal(NewFraction[int64](-999999, 100)))
	assert.True(t, NewFraction[int64](2000, 77).SubInt(2).Equal(NewFraction[int64](1846, 77)))
}

func TestFractionSubtraction(t *testing.T) {
	assert.True(t, NewFraction[int64](12, 77).Sub(NewFraction[int64](5, 6)).Equal(NewFraction[int64](-313, 462)))
	assert.True(t, NewFraction[int64](12, 12).Sub(NewFraction[int64](53, 53)).Equal(FractionFromInt[int64](0)))
}

func TestFractionIntegerMultiplication(t *testing.T) {
	assert.True(t, FractionPercentage[int64](1).MulInt(10000).Equal(FractionFromInt[int64](100)))
	assert.True(t, NewFraction[int64](12, 77).MulInt(85).Equal(NewFraction[int64](1020, 77)))
	assert.True(t, FractionPercentage[int64](25).MulInt(100).Equal(FractionFromInt[int64](25)))
}

func TestFractionMultiplication(t *testing.T) {
	assert.True(t, NewFraction[int64](12, 77).Mul(NewFraction[int64](5, 6)).Equal(NewFraction[int64](10, 77)))
	assert.True(t, NewFraction[int64](12, 12).Mul(NewFraction[int64](53, 53)).Equal(FractionFromInt[int64](1)))
}

func TestFractionIntegerDivision(t *testing.T) {
	assert.True(t, FractionPercentage[int64](1).DivInt(10000).Equal(NewFraction[int64](1, 1000000)))
	assert.True(t, NewFraction[int64](12, 77).DivInt(85).Equal(NewFraction[int64](12, 6545)))
}

func TestFractionDivision(t *testing.T) {
	assert.True(t, NewFraction[int64](12, 77).Div(NewFraction[int64](5, 6)).Equal(NewFraction[int64](72, 385)))
	assert.True(t, NewFraction[int64](12, 12).Div(NewFraction[int64](53, 53)).Equal(FractionFromInt[int64](1)))
}

func TestFractionDistributesOverAddition(t *testing.T) {
	a := NewFraction[int64](1, 3)
	b := NewFraction[int64](2, 5)
	c := NewFraction[int64](3, 7)
	lhs := a.Add(b).Mul(c)
	rhs := a.Mul(c).Add(b.Mul(c))
	assert.True(t, lhs.Equal(rhs))
}
