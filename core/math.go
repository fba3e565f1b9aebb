package core

import (
	"fmt"
	"math/bits"
)

// AddUint64 returns a+b or ErrArithmeticOverflow.
func AddUint64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%d + %d: %w", a, b, ErrArithmeticOverflow)
	}
	return sum, nil
}

// SumUint64 adds every value, failing on the first overflow.
func SumUint64(values []uint64) (uint64, error) {
	var total uint64
	for _, v := range values {
		next, err := AddUint64(total, v)
		if err != nil {
			return 0, err
		}
		total = next
	}
	return total, nil
}
