package index

import (
	"encoding/binary"
	"strings"
	"unicode"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
	"golang.org/x/text/cases"

	"github.com/themis-db/themis/internal/entity"
	"github.com/themis-db/themis/internal/keyschema"
	"github.com/themis-db/themis/internal/kv"
)

// FulltextConfig toggles each tokenizer stage independently. Stages are
// opt-in; callers wanting the full pipeline set all four booleans on
// DeclareIndex.
type FulltextConfig struct {
	CaseFold         bool     `json:"case_fold,omitempty"`
	NormalizeAccents bool     `json:"normalize_accents,omitempty"`
	RemoveStopwords  bool     `json:"remove_stopwords,omitempty"`
	Stem             bool     `json:"stem,omitempty"`
	ExtraStopwords   []string `json:"extra_stopwords,omitempty"`
}

var foldCaser = cases.Fold()

var defaultStopwords = map[string]bool{
	// English
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "were": true, "will": true,
	"with": true,
	// German
	"der": true, "die": true, "das": true, "und": true, "ist": true, "ein": true,
	"eine": true, "nicht": true, "mit": true, "den": true, "dem": true,
}

var umlautFolds = map[rune]string{
	'ä': "ae", 'ö': "oe", 'ü': "ue", 'ß': "ss",
	'Ä': "Ae", 'Ö': "Oe", 'Ü': "Ue",
}

// tokenize runs text through the declared stages and returns the surviving
// tokens in document order, alongside each token's original position
// (word index, not byte offset) for phrase verification.
func tokenize(text string, cfg FulltextConfig) (tokens []string, positions []uint32) {
	words := splitWords(text)
	var pos uint32
	for _, w := range words {
		tok := w
		if cfg.CaseFold {
			tok = foldCaser.String(tok)
		}
		if cfg.NormalizeAccents {
			tok = normalizeAccents(tok)
		}
		if cfg.RemoveStopwords && isStopword(tok, cfg.ExtraStopwords) {
			pos++
			continue
		}
		if cfg.Stem {
			tok = porterstemmer.StemString(tok)
		}
		if tok == "" {
			pos++
			continue
		}
		tokens = append(tokens, tok)
		positions = append(positions, pos)
		pos++
	}
	return tokens, positions
}

func splitWords(text string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return out
}

func normalizeAccents(s string) string {
	var b strings.Builder
	for _, r := range s {
		if repl, ok := umlautFolds[r]; ok {
			b.WriteString(repl)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isStopword(tok string, extra []string) bool {
	lower := strings.ToLower(tok)
	if defaultStopwords[lower] {
		return true
	}
	for _, e := range extra {
		if strings.ToLower(e) == lower {
			return true
		}
	}
	return false
}

// encodePositions varint-packs a token's occurrence positions into the
// postings value, supporting phrase queries that need position adjacency.
func encodePositions(positions []uint32) []byte {
	buf := make([]byte, 0, len(positions)*2)
	tmp := make([]byte, binary.MaxVarintLen32)
	for _, p := range positions {
		n := binary.PutUvarint(tmp, uint64(p))
		buf = append(buf, tmp[:n]...)
	}
	return buf
}

func decodePositions(b []byte) []uint32 {
	var out []uint32
	for len(b) > 0 {
		v, n := binary.Uvarint(b)
		if n <= 0 {
			break
		}
		out = append(out, uint32(v))
		b = b[n:]
	}
	return out
}

func fulltextFieldTokens(e *entity.Entity, col string, cfg FulltextConfig) (map[string][]uint32, bool, error) {
	if e == nil {
		return nil, false, nil
	}
	v, ok, err := e.Get(col)
	if err != nil {
		return nil, false, err
	}
	if !ok || v.IsNull() {
		return nil, false, nil
	}
	s, err := v.AsString()
	if err != nil {
		return nil, false, nil
	}
	tokens, positions := tokenize(s, cfg)
	out := map[string][]uint32{}
	for i, tok := range tokens {
		out[tok] = append(out[tok], positions[i])
	}
	return out, true, nil
}

func applyFulltext(txn *kv.Txn, meta Meta, pk string, old, newEnt *entity.Entity) error {
	col := meta.Columns[0]
	oldTokens, oldOk, err := fulltextFieldTokens(old, col, meta.Params.Fulltext)
	if err != nil {
		return err
	}
	newTokens, newOk, err := fulltextFieldTokens(newEnt, col, meta.Params.Fulltext)
	if err != nil {
		return err
	}

	if oldOk {
		for tok := range oldTokens {
			if _, still := newTokens[tok]; newOk && still {
				continue
			}
			if err := txn.Delete(keyschema.Fulltext(meta.Table, col, tok, pk)); err != nil {
				return err
			}
		}
	}
	if newOk {
		for tok, positions := range newTokens {
			if oldOk {
				if oldPos, had := oldTokens[tok]; had && sameUint32s(oldPos, positions) {
					continue
				}
			}
			if err := txn.Put(keyschema.Fulltext(meta.Table, col, tok, pk), encodePositions(positions)); err != nil {
				return err
			}
		}
	}
	return nil
}

func sameUint32s(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ScanFulltext AND-matches every term in query against table.col's postings,
// intersecting candidate pks across terms. When phrase is true, query's
// terms must additionally appear as a contiguous run of positions within a
// single document, verified against the stored position lists.
func (m *Manager) ScanFulltext(table, col, query string, phrase bool) ([]string, error) {
	meta, ok := m.meta[metaCacheKey(table, col)]
	if !ok {
		return nil, ErrNoSuchIndex
	}
	terms, _ := tokenize(query, meta.Params.Fulltext)
	if len(terms) == 0 {
		return nil, nil
	}

	postings := make([]map[string][]uint32, len(terms))
	for i, term := range terms {
		p, err := m.postingsForTerm(table, col, term)
		if err != nil {
			return nil, err
		}
		postings[i] = p
	}

	candidates := postings[0]
	for i := 1; i < len(postings); i++ {
		next := map[string][]uint32{}
		for pk, pos := range candidates {
			if op, ok := postings[i][pk]; ok {
				next[pk] = op
				_ = pos
			}
		}
		candidates = next
	}

	var out []string
	for pk := range candidates {
		if !phrase {
			out = append(out, pk)
			continue
		}
		if matchesPhrase(postings, terms, pk) {
			out = append(out, pk)
		}
	}
	return out, nil
}

func (m *Manager) postingsForTerm(table, col, term string) (map[string][]uint32, error) {
	prefix := keyschema.FulltextTokenPrefix(table, col, term)
	out := map[string][]uint32{}
	err := m.store.ScanPrefix(prefix, func(k, v []byte) (bool, error) {
		pk := lastSegment(k)
		out[pk] = decodePositions(v)
		return true, nil
	})
	return out, err
}

// matchesPhrase verifies that pk's stored positions for each term form a
// contiguous, in-order run (term[i+1]'s position is term[i]'s plus one).
func matchesPhrase(postings []map[string][]uint32, terms []string, pk string) bool {
	firstPositions := postings[0][pk]
	for _, start := range firstPositions {
		ok := true
		for i := 1; i < len(terms); i++ {
			want := start + uint32(i)
			if !containsUint32(postings[i][pk], want) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func containsUint32(s []uint32, v uint32) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
