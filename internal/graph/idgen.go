package graph

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// base36Alphabet is the digit set used to render random edge ids, chosen
// for compactness over hex.
const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// edgeIDRandomLen is the number of base36 characters following the "ge_"
// prefix.
const edgeIDRandomLen = 10

// newEdgeID generates a "ge_<random>" id: a fixed prefix plus a random
// base36 suffix. Edges are flat, so there's no hierarchy to encode into
// the id the way there is for other entity kinds.
func newEdgeID() (string, error) {
	max := new(big.Int).Exp(big.NewInt(36), big.NewInt(edgeIDRandomLen), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return "ge_" + encodeBase36(n, edgeIDRandomLen), nil
}

// encodeBase36 renders n as a zero-padded base36 string of length, least
// significant digit last.
func encodeBase36(n *big.Int, length int) string {
	if n.Sign() == 0 {
		return strings.Repeat("0", length)
	}
	base := big.NewInt(36)
	zero := big.NewInt(0)
	mod := new(big.Int)
	num := new(big.Int).Set(n)

	chars := make([]byte, 0, length)
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}
	for i, j := 0, len(chars)-1; i < j; i, j = i+1, j-1 {
		chars[i], chars[j] = chars[j], chars[i]
	}
	out := string(chars)
	if len(out) < length {
		out = strings.Repeat("0", length-len(out)) + out
	}
	return out
}
