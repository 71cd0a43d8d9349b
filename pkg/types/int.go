package types

import "math"

// AddInt returns a+b and whether the sum fits in an int64.
func AddInt(a, b int64) (int64, bool) {
	c := a + b
	return c, (c > a) == (b > 0)
}

// SubInt returns a-b and whether the difference fits in an int64.
func SubInt(a, b int64) (int64, bool) {
	c := a - b
	return c, (c < a) == (b > 0)
}

// MulInt returns a*b and whether the product fits in an int64.
func MulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	c := a * b
	return c, c/b == a
}

// NegInt returns -a and whether it fits in an int64.
func NegInt(a int64) (int64, bool) {
	return -a, a != math.MinInt64
}

// PowInt returns base^exp for exp >= 0 and whether it fits in an int64.
func PowInt(base, exp int64) (int64, bool) {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			var ok bool
			if result, ok = MulInt(result, base); !ok {
				return 0, false
			}
		}
		exp >>= 1
		if exp > 0 {
			var ok bool
			if base, ok = MulInt(base, base); !ok {
				return 0, false
			}
		}
	}
	return result, true
}
