package propertygraph

import "github.com/themis-db/themis/internal/keyschema"

// AddNodeLabel adds a single label to pk without touching its other labels
// or fields.
func (m *Manager) AddNodeLabel(graphID, pk, label string) error {
	return m.store.Put(keyschema.NodeLabel(graphID, label, pk), nil)
}

// RemoveNodeLabel drops a single label from pk.
func (m *Manager) RemoveNodeLabel(graphID, pk, label string) error {
	return m.store.Delete(keyschema.NodeLabel(graphID, label, pk))
}

// GetNodesByLabel returns every pk tagged with label in graphID.
func (m *Manager) GetNodesByLabel(graphID, label string) ([]string, error) {
	var pks []string
	err := m.store.ScanPrefix(keyschema.NodeLabelPrefix(graphID, label), func(k, _ []byte) (bool, error) {
		pks = append(pks, lastColonSegment(k))
		return true, nil
	})
	return pks, err
}

func lastColonSegment(key []byte) string {
	i := len(key) - 1
	for ; i >= 0; i-- {
		if key[i] == ':' {
			break
		}
	}
	return string(key[i+1:])
}
