// Package engine wires the kv, index, graph, vector, changefeed, and txn
// managers behind one Engine facade, instrumented with OTel
// metrics registered against the global Meter at init time.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/themis-db/themis/internal/changefeed"
	"github.com/themis-db/themis/internal/config"
	"github.com/themis-db/themis/internal/entity"
	"github.com/themis-db/themis/internal/index"
	"github.com/themis-db/themis/internal/keyschema"
	"github.com/themis-db/themis/internal/kv"
	"github.com/themis-db/themis/internal/propertygraph"
	"github.com/themis-db/themis/internal/telemetry"
	"github.com/themis-db/themis/internal/txn"
	"github.com/themis-db/themis/internal/vector"
)

// engineMetrics mirrors doltMetrics: instruments registered once against
// the global Meter, forwarding to whatever provider telemetry.Init installs.
var engineMetrics struct {
	commitLatencyMs   metric.Float64Histogram
	indexScanCount    metric.Int64Counter
	vectorSearchCount metric.Int64Counter
}

func init() {
	m := telemetry.Meter("github.com/themis-db/themis/engine")
	engineMetrics.commitLatencyMs, _ = m.Float64Histogram("themis.engine.commit_latency_ms",
		metric.WithDescription("Time spent committing a Put/Erase through the write coordinator"),
		metric.WithUnit("ms"),
	)
	engineMetrics.indexScanCount, _ = m.Int64Counter("themis.engine.index_scan_count",
		metric.WithDescription("Secondary-index scans served (equality, range, geo, fulltext, sparse)"),
		metric.WithUnit("{scan}"),
	)
	engineMetrics.vectorSearchCount, _ = m.Int64Counter("themis.engine.vector_search_count",
		metric.WithDescription("searchKnn/searchKnnFiltered calls served"),
		metric.WithUnit("{search}"),
	)
}

// Engine owns one kv.Store and every manager layered on top of it. Open
// returns a ready-to-use Engine; Close releases the underlying store.
type Engine struct {
	store      *kv.Store
	Index      *index.Manager
	Graph      *propertygraph.Manager
	Changefeed *changefeed.Manager
	Txn        *txn.Coordinator
	Config     config.Config

	log *slog.Logger

	vecMu   sync.Mutex
	vectors map[string]*vector.Manager
}

// Open opens the kv.Store at cfg.KV.DBPath, loads persisted index metadata,
// and wires the index/graph/changefeed/txn managers on top of it.
func Open(cfg config.Config) (*Engine, error) {
	store, err := kv.Open(toKVOptions(cfg.KV))
	if err != nil {
		return nil, fmt.Errorf("engine.Open: %w", err)
	}
	return wire(store, cfg)
}

// Restore replaces cfg.KV.DBPath's contents with the checkpoint found in
// dir, reopens the store, and wires a fresh Engine on top.
func Restore(dir string, cfg config.Config) (*Engine, error) {
	store, err := kv.Restore(dir, toKVOptions(cfg.KV))
	if err != nil {
		return nil, fmt.Errorf("engine.Restore: %w", err)
	}
	return wire(store, cfg)
}

func wire(store *kv.Store, cfg config.Config) (*Engine, error) {
	idx := index.NewManager(store)
	if err := idx.LoadMeta(); err != nil {
		store.Close()
		return nil, fmt.Errorf("engine.wire: loading index metadata: %w", err)
	}

	graph := propertygraph.NewManager(store)
	if err := graph.Edges().RebuildTopology(); err != nil {
		store.Close()
		return nil, fmt.Errorf("engine.wire: rebuilding graph topology: %w", err)
	}

	feed := changefeed.NewManager(store)
	coord := txn.NewCoordinator(store, idx, feed)

	return &Engine{
		store:      store,
		Index:      idx,
		Graph:      graph,
		Changefeed: feed,
		Txn:        coord,
		Config:     cfg,
		log:        slog.Default().With("component", "engine"),
		vectors:    map[string]*vector.Manager{},
	}, nil
}

// Close releases the underlying kv.Store. Safe to call more than once.
func (e *Engine) Close() error { return e.store.Close() }

// Store exposes the underlying kv.Store for operations (checkpoint/restore,
// raw scans) the facade doesn't wrap directly.
func (e *Engine) Store() *kv.Store { return e.store }

// Put writes one entity's fields through the write coordinator: primary
// record, index maintenance, and changefeed event committed atomically.
func (e *Engine) Put(table, pk string, fields map[string]entity.Value, metadata map[string]string) error {
	start := time.Now()
	err := e.Txn.Put(table, pk, fields, metadata)
	e.recordCommit(start, "put", err)
	return err
}

// Erase removes one entity's primary record and index entries, appending a
// DELETE changefeed event.
func (e *Engine) Erase(table, pk string, metadata map[string]string) error {
	start := time.Now()
	err := e.Txn.Erase(table, pk, metadata)
	e.recordCommit(start, "erase", err)
	return err
}

// Get reads one entity's primary record directly from the store, bypassing
// the write coordinator (a plain point read needs no transaction).
func (e *Engine) Get(table, pk string) (*entity.Entity, error) {
	raw, err := e.store.Get(keyschema.Primary(table, pk))
	if err != nil {
		return nil, err
	}
	return entity.FromBytes(pk, raw), nil
}

func (e *Engine) recordCommit(start time.Time, op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	engineMetrics.commitLatencyMs.Record(context.Background(), float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(attrOp(op), attrStatus(status)))
}

// ScanKeysEqual resolves an equality index lookup, recording a scan-count
// metric alongside the index manager's own result.
func (e *Engine) ScanKeysEqual(table, col, val string) ([]string, error) {
	pks, err := e.Index.ScanKeysEqual(table, col, val)
	e.recordIndexScan("equality", err)
	return pks, err
}

func (e *Engine) recordIndexScan(flavor string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	engineMetrics.indexScanCount.Add(context.Background(), 1,
		metric.WithAttributes(attrFlavor(flavor), attrStatus(status)))
}

// VectorObject returns the manager for an already-configured vector object,
// opening (and caching) it on first use.
func (e *Engine) VectorObject(objectName string) (*vector.Manager, error) {
	e.vecMu.Lock()
	defer e.vecMu.Unlock()

	if m, ok := e.vectors[objectName]; ok {
		return m, nil
	}
	m, err := vector.Open(e.store, objectName)
	if err != nil {
		return nil, err
	}
	e.vectors[objectName] = m
	return m, nil
}

// InitVectorObject declares a new vector object and caches its manager.
func (e *Engine) InitVectorObject(cfg vector.ObjectConfig) (*vector.Manager, error) {
	e.vecMu.Lock()
	defer e.vecMu.Unlock()

	m, err := vector.Init(e.store, cfg)
	if err != nil {
		return nil, err
	}
	e.vectors[cfg.ObjectName] = m
	return m, nil
}

// SearchKnn runs an unfiltered k-NN search against objectName, recording a
// vector-search-count metric.
func (e *Engine) SearchKnn(objectName string, query []float32, k int) ([]vector.Result, error) {
	m, err := e.VectorObject(objectName)
	if err != nil {
		return nil, err
	}
	results, err := m.SearchKnn(query, k, nil)
	e.recordVectorSearch(objectName, err)
	return results, err
}

func (e *Engine) recordVectorSearch(objectName string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	engineMetrics.vectorSearchCount.Add(context.Background(), 1,
		metric.WithAttributes(attrObject(objectName), attrStatus(status)))
}

func toKVOptions(c config.KVConfig) kv.Options {
	return kv.Options{
		DBPath:                           c.DBPath,
		WALDir:                           c.WALDir,
		DBPaths:                          c.DBPaths,
		MemtableSizeMB:                   c.MemtableSizeMB,
		BlockCacheSizeMB:                 c.BlockCacheSizeMB,
		BloomBitsPerKey:                  c.BloomBitsPerKey,
		EnableWAL:                        c.EnableWAL,
		MaxBackgroundJobs:                c.MaxBackgroundJobs,
		CompressionDefault:               kv.Compression(c.CompressionDefault),
		CompressionBottommost:            kv.Compression(c.CompressionBottommost),
		UseDirectReads:                   c.UseDirectReads,
		UseDirectIOForFlushAndCompaction: c.UseDirectIOForFlushAndCompaction,
		DynamicLevelBytes:                c.DynamicLevelBytes,
		TargetFileSizeBaseMB:             c.TargetFileSizeBaseMB,
		MaxBytesForLevelBaseMB:           c.MaxBytesForLevelBaseMB,
	}
}
