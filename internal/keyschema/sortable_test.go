package keyschema

import (
	"bytes"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeSortableInt64Orders(t *testing.T) {
	vals := []int64{math.MinInt64, -1 << 40, -1, 0, 1, 1 << 40, math.MaxInt64}
	for i := 0; i < len(vals)-1; i++ {
		a := EncodeSortableInt64(vals[i])
		b := EncodeSortableInt64(vals[i+1])
		require.True(t, bytes.Compare(a, b) < 0, "expected %d < %d in encoded form", vals[i], vals[i+1])
	}
}

func TestEncodeSortableInt64RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		v := int64(r.Uint64())
		require.Equal(t, v, DecodeSortableInt64(EncodeSortableInt64(v)))
	}
}

func TestEncodeSortableFloat64Orders(t *testing.T) {
	vals := []float64{math.Inf(-1), -1e300, -1.5, -0.0, 0.0, 1.5, 1e300, math.Inf(1)}
	for i := 0; i < len(vals)-1; i++ {
		a := EncodeSortableFloat64(vals[i])
		b := EncodeSortableFloat64(vals[i+1])
		require.True(t, bytes.Compare(a, b) <= 0, "expected %v <= %v in encoded form", vals[i], vals[i+1])
	}
}

func TestEncodeSortableFloat64RoundTrip(t *testing.T) {
	for _, v := range []float64{0, -0.0, 1.25, -1.25, 1e300, -1e300, math.MaxFloat64, -math.MaxFloat64} {
		require.Equal(t, v, DecodeSortableFloat64(EncodeSortableFloat64(v)))
	}
}

func TestEncodeSortableStringMatchesNaturalOrder(t *testing.T) {
	words := []string{"banana", "apple", "cherry", "", "a", "ab"}
	encoded := make([][]byte, len(words))
	for i, w := range words {
		encoded[i] = EncodeSortableString(w)
	}
	sorted := append([]string(nil), words...)
	sort.Strings(sorted)

	sortedEncoded := append([][]byte(nil), encoded...)
	sort.Slice(sortedEncoded, func(i, j int) bool { return bytes.Compare(sortedEncoded[i], sortedEncoded[j]) < 0 })

	for i, w := range sorted {
		require.Equal(t, w, string(sortedEncoded[i]))
	}
}
