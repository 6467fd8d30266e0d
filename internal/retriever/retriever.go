package retriever

import (
	"context"

	"github.com/askbook/askbook/internal/model"
)

// Retriever answers similarity queries against the textbook passage
// store. Results come back best match first with scores in [0,1].
type Retriever interface {
	Retrieve(ctx context.Context, query string, grade int, subject string, topK int) (model.RetrievalResult, error)
}
