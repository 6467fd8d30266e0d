package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/askbook/askbook/internal/model"
	"github.com/askbook/askbook/internal/pkg/logutil"
)

// CitationSet is the grounding metadata offered alongside an answer.
type CitationSet struct {
	Sources []model.Source
	Images  []model.MediaRef
}

// CitationsFromChunks derives citations 1:1 from the passages that were
// embedded into the prompt, preserving their order.
func CitationsFromChunks(chunks []model.RetrievedChunk) CitationSet {
	set := CitationSet{
		Sources: make([]model.Source, 0, len(chunks)),
	}
	for _, chunk := range chunks {
		set.Sources = append(set.Sources, model.Source{
			DocumentName: chunk.DocumentName,
			ChapterLabel: chunk.ChapterLabel,
			Page:         chunk.Page,
			Relevance:    fmt.Sprintf("%d%%", int(chunk.Score*100)),
		})
		for _, url := range chunk.ImageURLs {
			set.Images = append(set.Images, model.MediaRef{URL: url})
		}
	}
	return set
}

// DefaultTriggerPhrases are substrings whose presence in a generated
// answer indicates the model itself concluded the supplied passages do
// not answer the question.
var DefaultTriggerPhrases = []string{
	"does not cover",
	"doesn't seem to cover",
	"doesn't cover",
	"not mentioned",
	"could not find",
	"couldn't find",
	"not covered in the provided",
	"not available in the textbook",
	"i don't have enough information",
	"i do not have this information",
}

// IntegrityFilter suppresses citations when the generated answer admits
// the retrieved material did not address the question. A high similarity
// score does not guarantee topical correctness; the model sees the
// passage text and can recognize the mismatch in its own wording.
type IntegrityFilter struct {
	phrases []string
}

func NewIntegrityFilter(phrases []string) *IntegrityFilter {
	if len(phrases) == 0 {
		phrases = DefaultTriggerPhrases
	}
	normalized := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase == "" {
			continue
		}
		normalized = append(normalized, phrase)
	}
	return &IntegrityFilter{phrases: normalized}
}

// Apply returns the citation set to expose and whether the content was
// found. The answer text is never modified; only the citation metadata
// is cleared when a trigger phrase matches.
func (f *IntegrityFilter) Apply(ctx context.Context, answer string, citations CitationSet) (CitationSet, bool) {
	normalized := strings.ToLower(answer)
	for _, phrase := range f.phrases {
		if strings.Contains(normalized, phrase) {
			logutil.GetLogger(ctx).Info("citation integrity filter activated",
				zap.String("phrase", phrase),
				zap.Int("suppressed_sources", len(citations.Sources)),
				zap.Int("suppressed_images", len(citations.Images)),
			)
			return CitationSet{Sources: []model.Source{}, Images: []model.MediaRef{}}, false
		}
	}
	return citations, true
}
