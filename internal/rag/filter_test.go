package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/askbook/askbook/internal/model"
)

func citations(n int) CitationSet {
	set := CitationSet{}
	for i := 0; i < n; i++ {
		set.Sources = append(set.Sources, model.Source{DocumentName: "Science VII", Relevance: "82%"})
		set.Images = append(set.Images, model.MediaRef{URL: "img.png"})
	}
	return set
}

func TestIntegrityFilter_TriggerPhraseClearsCitations(t *testing.T) {
	filter := NewIntegrityFilter(nil)
	answer := "The textbook doesn't seem to cover data scaling techniques."

	filtered, found := filter.Apply(context.Background(), answer, citations(3))
	require.False(t, found)
	require.Empty(t, filtered.Sources)
	require.Empty(t, filtered.Images)
}

func TestIntegrityFilter_MatchIsCaseInsensitive(t *testing.T) {
	filter := NewIntegrityFilter(nil)
	answer := "This topic is NOT MENTIONED anywhere in the chapter."

	filtered, found := filter.Apply(context.Background(), answer, citations(2))
	require.False(t, found)
	require.Empty(t, filtered.Sources)
}

func TestIntegrityFilter_MatchAnywhereInAnswer(t *testing.T) {
	filter := NewIntegrityFilter(nil)
	answer := "Photosynthesis is how plants make food. However, the exact mechanism you asked about could not find support in the passages."

	_, found := filter.Apply(context.Background(), answer, citations(1))
	require.False(t, found)
}

func TestIntegrityFilter_CleanAnswerPassesThrough(t *testing.T) {
	filter := NewIntegrityFilter(nil)
	answer := "Photosynthesis is the process by which plants make food using sunlight [Source 1]."
	original := citations(3)

	filtered, found := filter.Apply(context.Background(), answer, original)
	require.True(t, found)
	require.Equal(t, original, filtered)
}

func TestIntegrityFilter_ConfiguredPhrasesReplaceDefaults(t *testing.T) {
	filter := NewIntegrityFilter([]string{"beyond the syllabus"})

	_, found := filter.Apply(context.Background(), "This is beyond the syllabus.", citations(1))
	require.False(t, found)

	_, found = filter.Apply(context.Background(), "The book does not cover this.", citations(1))
	require.True(t, found)
}

func TestCitationsFromChunks_PreservesOrderAndMedia(t *testing.T) {
	chunks := []model.RetrievedChunk{
		{DocumentName: "A", ChapterLabel: "C1", Page: 3, Score: 0.82, ImageURLs: []string{"a.png"}},
		{DocumentName: "B", ChapterLabel: "C2", Page: 9, Score: 0.60},
	}
	set := CitationsFromChunks(chunks)
	require.Len(t, set.Sources, 2)
	require.Equal(t, "A", set.Sources[0].DocumentName)
	require.Equal(t, "82%", set.Sources[0].Relevance)
	require.Equal(t, "B", set.Sources[1].DocumentName)
	require.Len(t, set.Images, 1)
}
