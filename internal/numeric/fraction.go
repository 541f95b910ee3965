package numeric

import (
	"fmt"
	"strconv"
	"strings"
)

// Integer is the set of signed integer types usable as a Fraction's
// inner representation (spec.md §4.6 "Fraction arithmetic").
type Integer interface {
	~int | ~int32 | ~int64
}

// Fraction is a rational number used throughout damage and modifier
// calculations instead of floating point, so that results are
// reproducible across implementations given the same seed (spec.md
// §4.6).
type Fraction[I Integer] struct {
	num I
	den I
}

// NewFraction constructs n/d without simplifying.
func NewFraction[I Integer](n, d I) Fraction[I] {
	return Fraction[I]{num: n, den: d}
}

// FractionFromInt wraps a whole number as n/1.
func FractionFromInt[I Integer](n I) Fraction[I] {
	return Fraction[I]{num: n, den: 1}
}

// FractionPercentage constructs n/100, simplified.
func FractionPercentage[I Integer](n I) Fraction[I] {
	return Fraction[I]{num: n, den: 100}.Simplify()
}

// Numerator returns the fraction's numerator.
func (f Fraction[I]) Numerator() I { return f.num }

// Denominator returns the fraction's denominator.
func (f Fraction[I]) Denominator() I { return f.den }

// IsWhole reports whether the fraction is an integer (denominator 1).
func (f Fraction[I]) IsWhole() bool { return f.den == 1 }

func gcd[I Integer](a, b I) I {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm[I Integer](a, b I) I {
	g := gcd(a, b)
	if g == 0 {
		return 0
	}
	return a / g * b
}

// Simplify reduces the fraction by its numerator/denominator GCD.
func (f Fraction[I]) Simplify() Fraction[I] {
	g := gcd(f.num, f.den)
	if g == 0 {
		return f
	}
	return Fraction[I]{num: f.num / g, den: f.den / g}
}

// Floor truncates toward zero, as integer division does.
func (f Fraction[I]) Floor() I { return f.num / f.den }

// Ceil rounds away from zero toward positive infinity for the quotient.
func (f Fraction[I]) Ceil() I {
	q := f.num / f.den
	if f.num%f.den != 0 && (f.num < 0) == (f.den < 0) {
		q++
	}
	return q
}

// Round rounds half-up: (num + den/2) / den.
func (f Fraction[I]) Round() I {
	return (f.num + f.den/2) / f.den
}

// Inverse swaps numerator and denominator.
func (f Fraction[I]) Inverse() Fraction[I] {
	return Fraction[I]{num: f.den, den: f.num}
}

func normalize[I Integer](a, b Fraction[I]) (Fraction[I], Fraction[I]) {
	l := lcm(a.den, b.den)
	aMul := l / a.den
	bMul := l / b.den
	return Fraction[I]{num: a.num * aMul, den: l}, Fraction[I]{num: b.num * bMul, den: l}
}

// Add returns f + other, normalized to a common denominator (spec.md
// §4.6: "(a/b) + (c/d) normalizes to lcm(b,d) then adds").
func (f Fraction[I]) Add(other Fraction[I]) Fraction[I] {
	lhs, rhs := normalize(f, other)
	return Fraction[I]{num: lhs.num + rhs.num, den: lhs.den}
}

// AddInt returns f + n.
func (f Fraction[I]) AddInt(n I) Fraction[I] {
	return Fraction[I]{num: f.num + n*f.den, den: f.den}.Simplify()
}

// Sub returns f - other.
func (f Fraction[I]) Sub(other Fraction[I]) Fraction[I] {
	lhs, rhs := normalize(f, other)
	return Fraction[I]{num: lhs.num - rhs.num, den: lhs.den}
}

// SubInt returns f - n.
func (f Fraction[I]) SubInt(n I) Fraction[I] {
	return Fraction[I]{num: f.num - n*f.den, den: f.den}.Simplify()
}

// Mul returns f * other.
func (f Fraction[I]) Mul(other Fraction[I]) Fraction[I] {
	return Fraction[I]{num: f.num * other.num, den: f.den * other.den}.Simplify()
}

// MulInt returns f * n.
func (f Fraction[I]) MulInt(n I) Fraction[I] {
	return Fraction[I]{num: f.num * n, den: f.den}.Simplify()
}

// Div returns f / other.
func (f Fraction[I]) Div(other Fraction[I]) Fraction[I] {
	return f.Mul(other.Inverse())
}

// DivInt returns f / n.
func (f Fraction[I]) DivInt(n I) Fraction[I] {
	return f.Mul(Fraction[I]{num: 1, den: n})
}

// Equal reports whether f and other represent the same rational value
// regardless of representation (e.g. 1/2 == 2/4).
func (f Fraction[I]) Equal(other Fraction[I]) bool {
	lhs, rhs := normalize(f, other)
	return lhs.num == rhs.num
}

// Compare returns -1, 0, or 1 as f is less than, equal to, or greater
// than other.
func (f Fraction[I]) Compare(other Fraction[I]) int {
	lhs, rhs := normalize(f, other)
	switch {
	case lhs.num < rhs.num:
		return -1
	case lhs.num > rhs.num:
		return 1
	default:
		return 0
	}
}

func (f Fraction[I]) String() string {
	if f.den == 1 {
		return fmt.Sprintf("%d", f.num)
	}
	return fmt.Sprintf("%d/%d", f.num, f.den)
}

// ParseFraction64 parses a fraction in any of the forms spec.md §4.6
// names: "n/d", "n%", a bare integer, or a decimal (converted to a
// fraction out of 4096 to preserve precision).
func ParseFraction64(s string) (Fraction[int64], error) {
	s = strings.TrimSpace(s)
	if n, d, found := strings.Cut(s, "/"); found {
		num, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return Fraction[int64]{}, fmt.Errorf("invalid numerator: %w", err)
		}
		den, err := strconv.ParseInt(strings.TrimSpace(d), 10, 64)
		if err != nil {
			return Fraction[int64]{}, fmt.Errorf("invalid denominator: %w", err)
		}
		return NewFraction(num, den), nil
	}
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(pct), 10, 64)
		if err != nil {
			return Fraction[int64]{}, fmt.Errorf("invalid percentage: %w", err)
		}
		return FractionPercentage(n), nil
	}
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Fraction[int64]{}, fmt.Errorf("invalid decimal: %w", err)
		}
		return FractionFromFloat64(f), nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Fraction[int64]{}, fmt.Errorf("invalid fraction: %w", err)
	}
	return FractionFromInt(n), nil
}

// FractionFromFloat64 preserves floating-point precision by
// representing the value out of a denominator of 4096.
func FractionFromFloat64(v float64) Fraction[int64] {
	return NewFraction(int64(v*4096), int64(4096)).Simplify()
}
