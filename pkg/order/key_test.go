package order

import (
	"errors"
	"sort"
	"testing"

	"github.com/oneconcern/braid/pkg/core/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitial(t *testing.T) {
	require.NoError(t, Validate(Initial()))
	assert.Equal(t, "n", Initial())
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate("n"))
	require.NoError(t, Validate("abcz"))

	for _, bad := range []string{"", "A", "a1", "n n", "né"} {
		err := Validate(bad)
		require.Error(t, err, bad)
		assert.True(t, errors.Is(err, status.ErrValidation))
	}
}

func TestBetween(t *testing.T) {
	cases := []struct {
		name           string
		before, after  string
	}{
		{"both open", "", ""},
		{"open low end", "", "n"},
		{"open high end", "n", ""},
		{"wide gap", "c", "t"},
		{"adjacent digits", "n", "o"},
		{"shared prefix", "abc", "abd"},
		{"before is prefix of after", "a", "ab"},
		{"lower bound at top digit", "nz", "o"},
		{"long bounds", "nzzzz", "o"},
	}
	for _, toPin := range cases {
		testcase := toPin
		t.Run(testcase.name, func(t *testing.T) {
			key, err := Between(testcase.before, testcase.after)
			require.NoError(t, err)
			require.NoError(t, Validate(key))
			if testcase.before != "" {
				assert.Greater(t, key, testcase.before)
			}
			if testcase.after != "" {
				assert.Less(t, key, testcase.after)
			}
			assert.NotEqual(t, byte('a'), key[len(key)-1])
		})
	}
}

func TestBetweenErrors(t *testing.T) {
	for _, toPin := range []struct {
		name          string
		before, after string
	}{
		{"equal bounds", "n", "n"},
		{"inverted bounds", "t", "c"},
		{"invalid lower bound", "N", "x"},
		{"invalid upper bound", "c", ""},
	} {
		testcase := toPin
		if testcase.name == "invalid upper bound" {
			testcase.after = "c1"
		}
		t.Run(testcase.name, func(t *testing.T) {
			_, err := Between(testcase.before, testcase.after)
			require.Error(t, err)
			assert.True(t, errors.Is(err, status.ErrValidation))
		})
	}
}

func TestBetweenExhaustedUpperBound(t *testing.T) {
	// no key sorts strictly between "ab" and "aba"
	_, err := Between("ab", "aba")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrValidation))
}

func TestRepeatedInsertionsStayOrdered(t *testing.T) {
	// keep inserting right above the same lower neighbor: keys must remain
	// strictly ordered and grow only gradually
	lower := "n"
	upper := "o"
	keys := []string{lower, upper}
	for i := 0; i < 50; i++ {
		key, err := Between(lower, upper)
		require.NoError(t, err)
		keys = append(keys, key)
		upper = key
	}
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	unique := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		unique[key] = struct{}{}
	}
	assert.Len(t, unique, len(keys))
	assert.True(t, sort.StringsAreSorted(sorted))
}

func TestNeedsCompaction(t *testing.T) {
	e := New(MaxKeyLength(4))
	assert.False(t, e.NeedsCompaction("abcd"))
	assert.True(t, e.NeedsCompaction("abcde"))

	// repeated insertions at the same point eventually cross the threshold
	lower, upper := "n", "o"
	triggered := false
	for i := 0; i < 50; i++ {
		key, err := e.Between(lower, upper)
		require.NoError(t, err)
		if e.NeedsCompaction(key) {
			triggered = true
			break
		}
		upper = key
	}
	assert.True(t, triggered)
}

func TestSpread(t *testing.T) {
	for _, n := range []int{1, 2, 5, 26, 52, 100} {
		keys := Spread(n)
		require.Len(t, keys, n)
		for i, key := range keys {
			require.NoError(t, Validate(key))
			assert.NotEqual(t, byte('a'), key[len(key)-1])
			if i > 0 {
				assert.Greater(t, key, keys[i-1])
			}
		}
		// compaction leaves room to keep inserting between any two neighbors
		for i := 1; i < len(keys); i++ {
			_, err := Between(keys[i-1], keys[i])
			require.NoError(t, err)
		}
	}
	assert.Nil(t, Spread(0))
}
