package toolregistry

import (
	"context"
	"math"
	"sort"
	"strings"
)

// SearchResult pairs a catalogue Tool with the score of whichever half of
// the search (lexical or vector) surfaced it.
type SearchResult struct {
	Tool  Tool
	Score float64
}

// Search implements combined_tool_search (spec.md §4.5): a full-text pass
// over tool name+description and a vector pass over precomputed tool
// embeddings, merged by interleaving rather than a weighted blend — the top
// FTS hit always leads (pinning exact-name matches), then the top vector
// hit, then the remaining FTS hits, then the remaining vector hits,
// deduplicated by router key. There is no third-party vector/full-text
// index in this deployment's dependency graph (see DESIGN.md), so both
// passes are computed in plain Go over the already-loaded catalogue:
// lexical score is a token-overlap ratio against name+description, vector
// score is cosine similarity against each tool's stored embedding.
func (r *Registry) Search(ctx context.Context, query string, queryEmbedding []float32, limit int, includeDisabled, includeNetwork bool) ([]SearchResult, error) {
	tools, err := r.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	queryTokens := tokenize(query)
	lexResults := make([]SearchResult, 0, len(tools))
	vecResults := make([]SearchResult, 0, len(tools))
	for _, t := range tools {
		if t.Disabled && !includeDisabled {
			continue
		}
		if t.Variant == VariantNetwork && !includeNetwork {
			continue
		}
		if lexScore := lexicalScore(queryTokens, tokenize(t.Name+" "+t.Description)); lexScore > 0 {
			lexResults = append(lexResults, SearchResult{Tool: t, Score: lexScore})
		}
		if len(queryEmbedding) > 0 && len(t.Embedding) > 0 {
			if vecScore := cosineSimilarity(queryEmbedding, t.Embedding); vecScore > 0 {
				vecResults = append(vecResults, SearchResult{Tool: t, Score: vecScore})
			}
		}
	}

	sortResults(lexResults)
	sortResults(vecResults)

	merged := make([]SearchResult, 0, len(lexResults)+len(vecResults))
	seen := make(map[string]struct{}, len(lexResults)+len(vecResults))
	add := func(sr SearchResult) {
		if _, ok := seen[sr.Tool.RouterKey]; ok {
			return
		}
		seen[sr.Tool.RouterKey] = struct{}{}
		merged = append(merged, sr)
	}

	if len(lexResults) > 0 {
		add(lexResults[0])
	}
	if len(vecResults) > 0 {
		add(vecResults[0])
	}
	for _, sr := range lexResults[min(1, len(lexResults)):] {
		add(sr)
	}
	for _, sr := range vecResults[min(1, len(vecResults)):] {
		add(sr)
	}

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func sortResults(results []SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Tool.RouterKey < results[j].Tool.RouterKey
	})
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return fields
}

// lexicalScore is the fraction of query tokens present in the document's
// token set — simple, cheap, and order-independent, matching the
// token-overlap approach used elsewhere in this deployment for matching
// free text without a dedicated search engine.
func lexicalScore(query, doc []string) float64 {
	if len(query) == 0 {
		return 0
	}
	docSet := make(map[string]struct{}, len(doc))
	for _, tok := range doc {
		docSet[tok] = struct{}{}
	}
	hits := 0
	for _, tok := range query {
		if _, ok := docSet[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
