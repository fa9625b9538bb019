// Package keyschema builds the deterministic byte-string keys Themis uses
// across every family in the shared badger keyspace. Lexicographic order
// of the returned keys matches each family's intended semantic order.
package keyschema

import (
	"fmt"
	"strings"
)

const (
	sepByte    = ':'
	tupleSep   = 0x1F // unit separator, joins composite-index value tuples
	changefeedPadWidth = 20
)

// Primary builds the primary-record key "<table>:<pk>".
func Primary(table, pk string) []byte {
	return join(table, pk)
}

// PrimaryPrefix builds the scan prefix for an entire table.
func PrimaryPrefix(table string) []byte {
	return append(join(table), sepByte)
}

// Equality builds "idx:<table>:<col>:<val>:<pk>".
func Equality(table, col, val, pk string) []byte {
	return join("idx", table, col, val, pk)
}

// EqualityPrefix builds the scan prefix "idx:<table>:<col>:<val>:".
func EqualityPrefix(table, col, val string) []byte {
	return append(join("idx", table, col, val), sepByte)
}

// EqualityColPrefix builds "idx:<table>:<col>:" for full-column scans.
func EqualityColPrefix(table, col string) []byte {
	return append(join("idx", table, col), sepByte)
}

// Composite builds "idx:<table>:<c1>+<c2>+...:<v1>\x1f<v2>\x1f...:<pk>".
func Composite(table string, cols []string, vals []string, pk string) []byte {
	colKey := strings.Join(cols, "+")
	valKey := joinTuple(vals)
	return join("idx", table, colKey, valKey, pk)
}

// CompositePrefix builds the scan prefix for a fully-bound composite tuple.
func CompositePrefix(table string, cols []string, vals []string) []byte {
	colKey := strings.Join(cols, "+")
	valKey := joinTuple(vals)
	return append(join("idx", table, colKey, valKey), sepByte)
}

// CompositeColPrefix builds "idx:<table>:<c1>+<c2>+...:" for whole-index
// scans across every value tuple.
func CompositeColPrefix(table string, cols []string) []byte {
	colKey := strings.Join(cols, "+")
	return append(join("idx", table, colKey), sepByte)
}

// joinTuple joins composite values with the reserved unit-separator byte,
// a byte value not expected to occur in ordinary field values.
func joinTuple(vals []string) string {
	b := make([]byte, 0, len(vals)*8)
	for i, v := range vals {
		if i > 0 {
			b = append(b, tupleSep)
		}
		b = append(b, v...)
	}
	return string(b)
}

// Range builds "ridx:<table>:<col>:<sortable(val)>:<pk>". sval must already
// be encoded via the sortable-byte-string scheme (see sortable.go).
func Range(table, col string, sval []byte, pk string) []byte {
	return joinBytes([]byte("ridx"), []byte(table), []byte(col), sval, []byte(pk))
}

// RangeColPrefix builds "ridx:<table>:<col>:" for unbounded range scans.
func RangeColPrefix(table, col string) []byte {
	return append(join("ridx", table, col), sepByte)
}

// Geo builds "gidx:<table>:<col>:<geohash>:<pk>".
func Geo(table, col, geohash, pk string) []byte {
	return join("gidx", table, col, geohash, pk)
}

// GeoPrefix builds "gidx:<table>:<col>:<geohash-prefix>" for spatial scans.
func GeoPrefix(table, col, geohashPrefix string) []byte {
	return []byte(fmt.Sprintf("gidx:%s:%s:%s", table, col, geohashPrefix))
}

// TTL builds "ttl:<table>:<col>:<expiry_be>:<pk>". expBE must already be a
// fixed-width big-endian encoding of the expiry epoch.
func TTL(table, col string, expBE []byte, pk string) []byte {
	return joinBytes([]byte("ttl"), []byte(table), []byte(col), expBE, []byte(pk))
}

// TTLColPrefix builds "ttl:<table>:<col>:" for sweep scans.
func TTLColPrefix(table, col string) []byte {
	return append(join("ttl", table, col), sepByte)
}

// Fulltext builds "ftx:<table>:<col>:<token>:<pk>".
func Fulltext(table, col, token, pk string) []byte {
	return join("ftx", table, col, token, pk)
}

// FulltextTokenPrefix builds "ftx:<table>:<col>:<token>:" for postings scans.
func FulltextTokenPrefix(table, col, token string) []byte {
	return append(join("ftx", table, col, token), sepByte)
}

// FulltextColPrefix builds "ftx:<table>:<col>:" for whole-column scans.
func FulltextColPrefix(table, col string) []byte {
	return append(join("ftx", table, col), sepByte)
}

// Unique builds "uniq:<table>:<col>:<val>" -> owner pk.
func Unique(table, col, val string) []byte {
	return join("uniq", table, col, val)
}

// IndexMeta builds "idxmeta:<table>:<col-or-composite>".
func IndexMeta(table, colKey string) []byte {
	return join("idxmeta", table, colKey)
}

// IndexMetaTablePrefix builds "idxmeta:<table>:" for reindexTable discovery.
func IndexMetaTablePrefix(table string) []byte {
	return append(join("idxmeta", table), sepByte)
}

// Edge builds "edge:<eid>".
func Edge(eid string) []byte {
	return join("edge", eid)
}

// AdjacencyOut builds "graph:out:<graphID>:<from>:<eid>".
func AdjacencyOut(graphID, from, eid string) []byte {
	return join("graph", "out", graphID, from, eid)
}

// AdjacencyOutPrefix builds "graph:out:<graphID>:<from>:" for neighbor scans.
func AdjacencyOutPrefix(graphID, from string) []byte {
	return append(join("graph", "out", graphID, from), sepByte)
}

// AdjacencyIn builds "graph:in:<graphID>:<to>:<eid>".
func AdjacencyIn(graphID, to, eid string) []byte {
	return join("graph", "in", graphID, to, eid)
}

// AdjacencyInPrefix builds "graph:in:<graphID>:<to>:" for in-neighbor scans.
func AdjacencyInPrefix(graphID, to string) []byte {
	return append(join("graph", "in", graphID, to), sepByte)
}

// NodeLabel builds "label:<graphID>:<label>:<pk>".
func NodeLabel(graphID, label, pk string) []byte {
	return join("label", graphID, label, pk)
}

// NodeLabelPrefix builds "label:<graphID>:<label>:" for getNodesByLabel.
func NodeLabelPrefix(graphID, label string) []byte {
	return append(join("label", graphID, label), sepByte)
}

// NodeLabelGraphPrefix builds "label:<graphID>:" for listGraphs discovery.
func NodeLabelGraphPrefix(graphID string) []byte {
	return append(join("label", graphID), sepByte)
}

// NodePrefix builds "node:<graphID>:" for cross-graph node discovery.
func NodePrefix(graphID string) []byte {
	return append(join("node", graphID), sepByte)
}

// AllNodesPrefix builds "node:" for listGraphs, which scans every node key
// regardless of graph id.
func AllNodesPrefix() []byte {
	return []byte("node:")
}

// Node builds "node:<graphID>:<pk>".
func Node(graphID, pk string) []byte {
	return join("node", graphID, pk)
}

// EdgeType builds "type:<graphID>:<edgeType>:<eid>".
func EdgeType(graphID, edgeType, eid string) []byte {
	return join("type", graphID, edgeType, eid)
}

// EdgeTypePrefix builds "type:<graphID>:<edgeType>:" for getEdgesByType.
func EdgeTypePrefix(graphID, edgeType string) []byte {
	return append(join("type", graphID, edgeType), sepByte)
}

// VectorObject builds "<objectName>:<pk>" in the vector table's own namespace.
func VectorObject(objectName, pk string) []byte {
	return join(objectName, pk)
}

// VectorObjectPrefix builds "<objectName>:" for full-object scans.
func VectorObjectPrefix(objectName string) []byte {
	return append(join(objectName), sepByte)
}

// VectorConfig builds the "config:vector:<objectName>" metadata key.
func VectorConfig(objectName string) []byte {
	return join("config", "vector", objectName)
}

// ChangefeedEvent builds "changefeed:<20-digit zero-padded seq>".
func ChangefeedEvent(seq uint64) []byte {
	return []byte(fmt.Sprintf("changefeed:%0*d", changefeedPadWidth, seq))
}

// ChangefeedPrefix is the scan prefix for every changefeed event.
func ChangefeedPrefix() []byte {
	return []byte("changefeed:")
}

// ChangefeedCounter is the single global sequence counter key.
func ChangefeedCounter() []byte {
	return []byte("changefeed_sequence")
}

func join(parts ...string) []byte {
	return []byte(strings.Join(parts, string(sepByte)))
}

func joinBytes(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p) + 1
	}
	out := make([]byte, 0, n)
	for i, p := range parts {
		if i > 0 {
			out = append(out, sepByte)
		}
		out = append(out, p...)
	}
	return out
}
