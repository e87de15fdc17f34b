// Package order implements fractional order keys.
//
// An order key is a non-empty string over 'a'..'z' encoding a task's
// position within its sequence. Between always finds a key strictly between
// two neighbors by extending key length only when the gap between them
// leaves no room at the current length, so repositioning one task never
// rewrites any other task's key. Keys generated here never end in 'a',
// which keeps room below every generated key.
package order

import (
	"strings"

	"github.com/oneconcern/braid/pkg/core/status"
)

const (
	minDigit = 'a'
	maxDigit = 'z'

	// base is the size of the key alphabet
	base = int(maxDigit-minDigit) + 1

	// DefaultMaxKeyLength bounds key growth before compaction kicks in
	DefaultMaxKeyLength = 32
)

// Engine produces and inspects order keys
type Engine struct {
	maxLen int
}

// Option is a functor to configure the engine
type Option func(*Engine)

// MaxKeyLength overrides the key length threshold triggering compaction
func MaxKeyLength(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxLen = n
		}
	}
}

// New builds a key engine
func New(opts ...Option) *Engine {
	e := &Engine{maxLen: DefaultMaxKeyLength}
	for _, apply := range opts {
		apply(e)
	}
	return e
}

// Initial is the key assigned to the first task of a sequence
func Initial() string {
	return string(rune(minDigit + base/2))
}

// Validate checks that a key is well formed
func Validate(key string) error {
	if key == "" {
		return status.ErrValidation.WrapMessage("empty order key")
	}
	for i := 0; i < len(key); i++ {
		if key[i] < minDigit || key[i] > maxDigit {
			return status.ErrValidation.WrapMessage("order key %q: invalid character %q", key, key[i])
		}
	}
	return nil
}

// Between returns a key sorting strictly between before and after under
// lexicographic order. An empty before means the open low end, an empty
// after the open high end.
func (e *Engine) Between(before, after string) (string, error) {
	return Between(before, after)
}

// NeedsCompaction tells whether a key has grown past the configured maximum
// length, signalling that the sequence should be compacted.
func (e *Engine) NeedsCompaction(key string) bool {
	return len(key) > e.maxLen
}

// Between is the engine-independent key computation
func Between(before, after string) (string, error) {
	if before != "" {
		if err := Validate(before); err != nil {
			return "", err
		}
	}
	if after != "" {
		if err := Validate(after); err != nil {
			return "", err
		}
	}
	if before != "" && after != "" && before >= after {
		return "", status.ErrValidation.WrapMessage("order keys out of order: %q >= %q", before, after)
	}

	var out strings.Builder
	i := 0
	for {
		da := digitAt(before, i)
		db := upperDigitAt(after, i)
		if after != "" && i >= len(after) {
			// the upper bound is exhausted: it ends in trailing 'a's
			// relative to before, leaving no room underneath
			return "", status.ErrValidation.WrapMessage("no key fits between %q and %q", before, after)
		}
		if da == db {
			out.WriteByte(da)
			i++
			continue
		}
		if int(db)-int(da) > 1 {
			out.WriteByte(mid(da, db))
			return out.String(), nil
		}
		// adjacent digits: keep the lower digit and extend past before's
		// remaining suffix until a gap opens up
		out.WriteByte(da)
		i++
		for {
			da = digitAt(before, i)
			if da < maxDigit {
				out.WriteByte(mid(da, maxDigit+1))
				return out.String(), nil
			}
			out.WriteByte(maxDigit)
			i++
		}
	}
}

// digitAt reads the lower bound's digit, an implicit minimum past its end
func digitAt(key string, i int) byte {
	if i >= len(key) {
		return minDigit
	}
	return key[i]
}

// upperDigitAt reads the upper bound's digit, an implicit maximum past the
// end of the open bound
func upperDigitAt(key string, i int) byte {
	if key == "" || i >= len(key) {
		return maxDigit + 1
	}
	return key[i]
}

// mid picks a digit strictly above lo and strictly below hi
func mid(lo, hi byte) byte {
	return lo + (hi-lo)/2
}

// Spread produces n distinct, evenly spaced keys in ascending order, used
// by compaction to reassign a whole sequence. The key length is the
// smallest leaving at least one slot of slack between consecutive keys.
func Spread(n int) []string {
	if n <= 0 {
		return nil
	}
	length := 1
	total := base
	for total < 2*(n+1) {
		length++
		total *= base
	}
	step := total / (n + 1)
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		key := encode(i*step, length)
		// avoid the trailing minimum digit; the slack guarantees the bump
		// cannot collide with the next key
		if key[len(key)-1] == minDigit {
			key = key[:len(key)-1] + string(rune(minDigit+1))
		}
		out = append(out, key)
	}
	return out
}

// encode renders v as a fixed-length base-26 key
func encode(v, length int) string {
	digits := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		digits[i] = byte(minDigit + v%base)
		v /= base
	}
	return string(digits)
}
