package knowledge

import "context"

// Reranker reorders retrieval results by relevance to the query and reduces
// them to topN. It is a capability interface: a cross-encoder or hosted
// rerank API plugs in here. The similarity search already orders by cosine
// distance, so SimilarityReranker is an adequate default.
type Reranker interface {
	Rerank(ctx context.Context, query string, results []Result, topN int) ([]Result, error)
}

// SimilarityReranker keeps the vector-similarity order and truncates to topN.
type SimilarityReranker struct{}

// Rerank implements Reranker.
func (SimilarityReranker) Rerank(_ context.Context, _ string, results []Result, topN int) ([]Result, error) {
	if topN <= 0 || topN >= len(results) {
		return results, nil
	}
	return results[:topN], nil
}
