// Package vector implements the approximate-nearest-neighbor index: an HNSW
// graph per configured object with a brute-force fallback, filtered k-NN,
// and on-disk persistence.
package vector

import "encoding/json"

// Metric selects the distance function a vector object searches under.
type Metric string

const (
	MetricL2     Metric = "L2"
	MetricCosine Metric = "COSINE"
	MetricDot    Metric = "DOT"
)

// PrefilterConfig tunes SearchKnn's whitelist-prefiltering retry loop.
type PrefilterConfig struct {
	Enabled       bool    `json:"whitelist_prefilter_enabled"`
	InitialFactor int     `json:"whitelist_initial_factor"`
	MinCandidates int     `json:"whitelist_min_candidates"`
	MaxAttempts   int     `json:"whitelist_max_attempts"`
	GrowthFactor  float64 `json:"whitelist_growth_factor"`
}

// DefaultPrefilterConfig ships a usable zero-config default rather than
// requiring every caller to set every knob.
func DefaultPrefilterConfig() PrefilterConfig {
	return PrefilterConfig{
		Enabled:       true,
		InitialFactor: 4,
		MinCandidates: 1,
		MaxAttempts:   3,
		GrowthFactor:  2.0,
	}
}

// ObjectConfig is one vector object's per-object configuration: dimension,
// metric, and HNSW beam-size parameters, persisted as meta.txt by
// SaveIndex.
type ObjectConfig struct {
	ObjectName     string          `json:"object_name"`
	VectorField    string          `json:"vector_field"`
	Dim            int             `json:"dim"`
	Metric         Metric          `json:"metric"`
	EfSearch       int             `json:"ef_search"`
	M              int             `json:"m"`
	EfConstruction int             `json:"ef_construction"`
	Prefilter      PrefilterConfig `json:"prefilter"`
}

// DefaultObjectConfig returns sane construction/search beam sizes (M=16,
// efConstruction=200, efSearch=50) and a conventional vector field name.
func DefaultObjectConfig(objectName string, dim int, metric Metric) ObjectConfig {
	return ObjectConfig{
		ObjectName:     objectName,
		VectorField:    "embedding",
		Dim:            dim,
		Metric:         metric,
		EfSearch:       50,
		M:              16,
		EfConstruction: 200,
		Prefilter:      DefaultPrefilterConfig(),
	}
}

func (c ObjectConfig) marshal() ([]byte, error) { return json.Marshal(c) }

func unmarshalObjectConfig(raw []byte) (ObjectConfig, error) {
	var c ObjectConfig
	err := json.Unmarshal(raw, &c)
	return c, err
}
