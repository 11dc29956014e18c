package memory

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// DefaultDimension matches the embedding size of the default embedding model.
const DefaultDimension = 1536

// InMemoryVectorIndex is the process-lifetime VectorIndex implementation. It
// keeps every record in a map and answers searches with an exhaustive cosine
// scan over all stored vectors. That is O(N·D) per query, which is the point:
// the store trades scale for having no index to maintain or persist.
type InMemoryVectorIndex struct {
	mu      sync.RWMutex
	dim     int
	records map[string]EmbeddingRecord
}

// NewVectorIndex creates an index with the given fixed dimension. A dimension
// of zero or less falls back to DefaultDimension.
func NewVectorIndex(dim int) *InMemoryVectorIndex {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &InMemoryVectorIndex{
		dim:     dim,
		records: make(map[string]EmbeddingRecord),
	}
}

func (idx *InMemoryVectorIndex) Dimension() int {
	return idx.dim
}

// Store writes a record, overwriting any prior record with the same id.
func (idx *InMemoryVectorIndex) Store(id string, vector []float32, metadata map[string]any) error {
	if len(vector) != idx.dim {
		return fmt.Errorf("%w: got %d, index dimension is %d", ErrDimensionMismatch, len(vector), idx.dim)
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)

	meta := make(map[string]any, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.records[id] = EmbeddingRecord{
		ID:        id,
		Vector:    vec,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// Search scans every stored vector whose metadata matches all filter pairs,
// keeps hits with similarity >= threshold, and returns them sorted descending
// and truncated to the limit. Results are recomputed per call and never alias
// index memory.
func (idx *InMemoryVectorIndex) Search(query []float32, params SearchParams) ([]SearchResult, error) {
	if len(query) != idx.dim {
		return nil, fmt.Errorf("%w: query has %d, index dimension is %d", ErrDimensionMismatch, len(query), idx.dim)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := make([]SearchResult, 0)
	for _, rec := range idx.records {
		if !matchesFilter(rec.Metadata, params.Filter) {
			continue
		}
		sim := cosineSimilarity(query, rec.Vector)
		if sim < params.Threshold {
			continue
		}
		results = append(results, SearchResult{
			EmbeddingRecord: copyRecord(rec),
			Similarity:      sim,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if params.Limit > 0 && len(results) > params.Limit {
		results = results[:params.Limit]
	}
	return results, nil
}

// Retrieve returns a copy of the record for id, if present.
func (idx *InMemoryVectorIndex) Retrieve(id string) (EmbeddingRecord, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rec, ok := idx.records[id]
	if !ok {
		return EmbeddingRecord{}, false
	}
	return copyRecord(rec), true
}

// Delete removes the record for id and reports whether it existed.
func (idx *InMemoryVectorIndex) Delete(id string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, ok := idx.records[id]
	delete(idx.records, id)
	return ok
}

// Clear drops every record and returns how many were deleted.
func (idx *InMemoryVectorIndex) Clear() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	n := len(idx.records)
	idx.records = make(map[string]EmbeddingRecord)
	return n
}

// matchesFilter requires every filter key to be present and exactly equal in
// the metadata. No range or boolean composition.
func matchesFilter(metadata, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// cosineSimilarity returns the dot product of a and b divided by the product
// of their magnitudes, or 0 when either magnitude is zero.
func cosineSimilarity(a, b []float32) float64 {
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func copyRecord(rec EmbeddingRecord) EmbeddingRecord {
	vec := make([]float32, len(rec.Vector))
	copy(vec, rec.Vector)

	meta := make(map[string]any, len(rec.Metadata))
	for k, v := range rec.Metadata {
		meta[k] = v
	}

	rec.Vector = vec
	rec.Metadata = meta
	return rec
}
