package themisql

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func setsOf(ids ...string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func fakeResolver(data map[string]map[string]bool) Resolver {
	return func(field, value string) (map[string]bool, error) {
		key := field + "=" + value
		ids, ok := data[key]
		if !ok {
			return map[string]bool{}, nil
		}
		return ids, nil
	}
}

func TestParseLeafEquality(t *testing.T) {
	expr, err := NewParser(`status=active`).Parse()
	require.NoError(t, err)
	require.Equal(t, Eq{Field: "status", Value: "active"}, expr)
}

func TestParseQuotedValue(t *testing.T) {
	expr, err := NewParser(`name="Ada Lovelace"`).Parse()
	require.NoError(t, err)
	require.Equal(t, Eq{Field: "name", Value: "Ada Lovelace"}, expr)
}

func TestParseAndOrPrecedenceAndParens(t *testing.T) {
	expr, err := NewParser(`a=1 AND b=2 OR c=3`).Parse()
	require.NoError(t, err)
	require.Equal(t, Or{
		Left:  And{Left: Eq{Field: "a", Value: "1"}, Right: Eq{Field: "b", Value: "2"}},
		Right: Eq{Field: "c", Value: "3"},
	}, expr)

	parenExpr, err := NewParser(`a=1 AND (b=2 OR c=3)`).Parse()
	require.NoError(t, err)
	require.Equal(t, And{
		Left:  Eq{Field: "a", Value: "1"},
		Right: Or{Left: Eq{Field: "b", Value: "2"}, Right: Eq{Field: "c", Value: "3"}},
	}, parenExpr)
}

func TestParseUnexpectedCharacter(t *testing.T) {
	_, err := NewParser(`status#active`).Parse()
	require.Error(t, err)
}

func TestParseUnterminatedString(t *testing.T) {
	_, err := NewParser(`name="Ada`).Parse()
	require.Error(t, err)
}

func TestParseTrailingGarbage(t *testing.T) {
	_, err := NewParser(`a=1 b=2`).Parse()
	require.Error(t, err)
}

func TestParseEmptyInput(t *testing.T) {
	_, err := NewParser(``).Parse()
	require.Error(t, err)
}

func TestParseMissingClosingParen(t *testing.T) {
	_, err := NewParser(`(a=1`).Parse()
	require.Error(t, err)
}

func TestEvaluateLeafResolvesViaCallback(t *testing.T) {
	resolve := fakeResolver(map[string]map[string]bool{
		"status=active": setsOf("pk1", "pk2"),
	})
	expr, err := NewParser(`status=active`).Parse()
	require.NoError(t, err)

	got, err := Evaluate(expr, resolve)
	require.NoError(t, err)
	require.Equal(t, setsOf("pk1", "pk2"), got)
}

func TestEvaluateAndIntersects(t *testing.T) {
	resolve := fakeResolver(map[string]map[string]bool{
		"status=active": setsOf("pk1", "pk2", "pk3"),
		"region=us":     setsOf("pk2", "pk3", "pk4"),
	})
	expr, err := NewParser(`status=active AND region=us`).Parse()
	require.NoError(t, err)

	got, err := Evaluate(expr, resolve)
	require.NoError(t, err)
	require.Equal(t, setsOf("pk2", "pk3"), got)
}

func TestEvaluateOrUnions(t *testing.T) {
	resolve := fakeResolver(map[string]map[string]bool{
		"status=active":  setsOf("pk1", "pk2"),
		"status=pending": setsOf("pk2", "pk3"),
	})
	expr, err := NewParser(`status=active OR status=pending`).Parse()
	require.NoError(t, err)

	got, err := Evaluate(expr, resolve)
	require.NoError(t, err)
	require.Equal(t, setsOf("pk1", "pk2", "pk3"), got)
}

func TestEvaluateNestedParensRespectsGrouping(t *testing.T) {
	resolve := fakeResolver(map[string]map[string]bool{
		"a=1": setsOf("p1", "p2"),
		"b=2": setsOf("p2", "p3"),
		"c=3": setsOf("p4"),
	})
	expr, err := NewParser(`a=1 AND (b=2 OR c=3)`).Parse()
	require.NoError(t, err)

	got, err := Evaluate(expr, resolve)
	require.NoError(t, err)
	require.Equal(t, setsOf("p2"), got)
}

func TestEvaluatePropagatesResolverError(t *testing.T) {
	boom := fmt.Errorf("resolver exploded")
	resolve := func(field, value string) (map[string]bool, error) {
		return nil, boom
	}
	expr, err := NewParser(`a=1`).Parse()
	require.NoError(t, err)

	_, err = Evaluate(expr, resolve)
	require.ErrorIs(t, err, boom)
}

func TestStringRoundTripsAst(t *testing.T) {
	expr, err := NewParser(`a=1 AND b=2`).Parse()
	require.NoError(t, err)
	require.Equal(t, "(a=1 AND b=2)", expr.String())
}
