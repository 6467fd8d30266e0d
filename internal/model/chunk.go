package model

// RetrievedChunk is one textbook passage returned by the vector store.
// Score is cosine similarity normalized to [0,1].
type RetrievedChunk struct {
	SourceID     string   `json:"source_id"`
	DocumentName string   `json:"document_name"`
	ChapterLabel string   `json:"chapter_label"`
	Page         int      `json:"page"`
	Text         string   `json:"text"`
	Score        float64  `json:"score"`
	ImageURLs    []string `json:"image_urls,omitempty"`
}

// RetrievalResult is the ordered candidate set for one query, best match
// first. It may be empty.
type RetrievalResult struct {
	Chunks []RetrievedChunk
}

func (r RetrievalResult) Empty() bool {
	return len(r.Chunks) == 0
}

// BestSimilarity returns the top score, 0 for an empty result.
func (r RetrievalResult) BestSimilarity() float64 {
	if len(r.Chunks) == 0 {
		return 0
	}
	return r.Chunks[0].Score
}
