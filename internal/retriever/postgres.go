package retriever

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/askbook/askbook/internal/ai"
	"github.com/askbook/askbook/internal/model"
	"github.com/askbook/askbook/internal/pkg/logutil"
)

// PostgresRetriever embeds the query through the configured embedding
// provider and runs a cosine-distance scan over the pgvector store.
type PostgresRetriever struct {
	db       *sqlx.DB
	embedder ai.Embedder
}

func NewPostgresRetriever(db *sqlx.DB, embedder ai.Embedder) *PostgresRetriever {
	return &PostgresRetriever{db: db, embedder: embedder}
}

func (r *PostgresRetriever) Retrieve(ctx context.Context, query string, grade int, subject string, topK int) (model.RetrievalResult, error) {
	if topK <= 0 {
		topK = 5
	}
	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return model.RetrievalResult{}, fmt.Errorf("embed query: %w", err)
	}

	const stmt = `
		SELECT source_id, document_name, chapter_label, page, content, image_urls,
		       1 - (embedding <=> $1) AS score
		FROM textbook_chunks
		WHERE ($2 = 0 OR grade = $2)
		  AND ($3 = '' OR subject = $3)
		ORDER BY embedding <=> $1
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, stmt, pgvector.NewVector(embedding), grade, subject, topK)
	if err != nil {
		return model.RetrievalResult{}, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var result model.RetrievalResult
	for rows.Next() {
		var chunk model.RetrievedChunk
		var imageURLs string
		if err := rows.Scan(&chunk.SourceID, &chunk.DocumentName, &chunk.ChapterLabel,
			&chunk.Page, &chunk.Text, &imageURLs, &chunk.Score); err != nil {
			return model.RetrievalResult{}, err
		}
		if chunk.Score < 0 {
			chunk.Score = 0
		}
		if imageURLs != "" {
			if err := json.Unmarshal([]byte(imageURLs), &chunk.ImageURLs); err != nil {
				chunk.ImageURLs = nil
			}
		}
		result.Chunks = append(result.Chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return model.RetrievalResult{}, err
	}
	logutil.GetLogger(ctx).Debug("retrieval completed",
		zap.Int("candidates", len(result.Chunks)),
		zap.Float64("best_similarity", result.BestSimilarity()),
	)
	return result, nil
}
