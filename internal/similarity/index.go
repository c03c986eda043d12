package similarity

// Item is a stored question and its embedding.
type Item struct {
	Key    string
	Vector []float32
}

// Scored is an item key with its similarity to a query.
type Scored struct {
	Key   string
	Score float64
}

// Index finds the item nearest to a query vector.
//
// LinearIndex scans every item, which is fine for a personal knowledge base
// of a few thousand entries. An approximate nearest-neighbour structure can
// be dropped in behind this interface when that stops being true.
type Index interface {
	// Nearest returns the highest-scoring item. When scores tie, the item
	// that comes first in items wins. ok is false only when items is empty.
	Nearest(query []float32, items []Item) (best Scored, ok bool)
}

// LinearIndex is an exhaustive scan in item order.
type LinearIndex struct {
	// Similarity scores two vectors. Nil means CosineSimilarity.
	Similarity func(a, b []float32) float64
}

// Nearest implements Index.
func (l LinearIndex) Nearest(query []float32, items []Item) (Scored, bool) {
	sim := l.Similarity
	if sim == nil {
		sim = CosineSimilarity
	}

	var best Scored
	for i, item := range items {
		score := sim(query, item.Vector)
		if i == 0 || score > best.Score {
			best = Scored{Key: item.Key, Score: score}
		}
	}
	return best, len(items) > 0
}
