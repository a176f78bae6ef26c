// Package ranking orders candidate images by cosine similarity to a query image.
package ranking

import (
	"math"
	"sort"

	"github.com/hyperjump/ruiji/internal/models"
	"github.com/hyperjump/ruiji/internal/vector"
)

// Candidate is an image key with its embedding. Vector is read-only.
type Candidate struct {
	Key    string
	Vector []float32
}

// Scored is a candidate with its cosine similarity to the query and its
// position in the input, which breaks ties.
type Scored struct {
	Key        string
	Similarity float64
	Index      int
}

// Score computes the similarity of every candidate to query, dropping any
// candidate whose key equals excludeKey. An empty excludeKey excludes nothing.
// Zero vectors score 0 against everything.
func Score(query []float32, candidates []Candidate, excludeKey string) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for i, c := range candidates {
		if excludeKey != "" && c.Key == excludeKey {
			continue
		}
		scored = append(scored, Scored{
			Key:        c.Key,
			Similarity: vector.CosineSimilarity(query, c.Vector),
			Index:      i,
		})
	}
	return scored
}

// TopK sorts scored by descending similarity, earlier input first on ties,
// and returns at most k entries. The input slice is reordered.
func TopK(scored []Scored, k int) []Scored {
	if k <= 0 || len(scored) == 0 {
		return nil
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Index < scored[j].Index
	})
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

// Normalize clips similarities at 0 and divides by their sum. When nothing
// scores above 0 every weight is 0. Order is preserved.
func Normalize(scored []Scored) []models.Result {
	results := make([]models.Result, len(scored))
	var sum float64
	for i, s := range scored {
		w := math.Max(s.Similarity, 0)
		results[i] = models.Result{Key: s.Key, Weight: w}
		sum += w
	}
	if sum <= 0 {
		for i := range results {
			results[i].Weight = 0
		}
		return results
	}
	for i := range results {
		results[i].Weight /= sum
	}
	return results
}

// Rank returns the k candidates most similar to query with normalized
// non-negative weights, in descending order. The candidate keyed excludeKey
// never appears. An empty candidate list or k <= 0 yields an empty result.
func Rank(query []float32, candidates []Candidate, excludeKey string, k int) []models.Result {
	if k <= 0 || len(candidates) == 0 {
		return []models.Result{}
	}
	top := TopK(Score(query, candidates, excludeKey), k)
	return Normalize(top)
}
