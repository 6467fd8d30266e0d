package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/askbook/askbook/internal/model"
)

// GenerationRequest is the assembled prompt pair handed to the
// generation dispatcher.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
}

func (r GenerationRequest) Text() string {
	return r.SystemPrompt + "\n\n" + r.UserPrompt
}

// PromptBuilder turns a question plus retrieved passages into a
// deterministic prompt. Passages are embedded highest similarity first
// and dropped from the tail once the context budget is spent.
type PromptBuilder struct {
	maxContextChars int
}

func NewPromptBuilder(maxContextChars int) *PromptBuilder {
	if maxContextChars <= 0 {
		maxContextChars = 6000
	}
	return &PromptBuilder{maxContextChars: maxContextChars}
}

const systemPromptTemplate = `You are an expert tutor helping students with their textbook questions.
Answer ONLY from the textbook passages supplied below.
- Show step-by-step working for numerical problems and write formulas clearly.
- Use simple language appropriate for a grade %s student.
- Cite passages as [Source 1], [Source 2], etc.
- Do not invent content that is not in the passages.
- If the passages do not address the question, say plainly that the topic is not covered in the provided textbook content.%s`

// Build assembles the generation request. History holds prior turns of
// the same conversation in chronological order. Used chunks are returned
// so the citation set matches exactly what the model saw.
func (b *PromptBuilder) Build(req model.ChatRequest, history []model.ChatRecord, result model.RetrievalResult) (GenerationRequest, []model.RetrievedChunk) {
	grade := "school"
	if req.Grade > 0 {
		grade = fmt.Sprintf("%d", req.Grade)
	}
	languageHint := ""
	if req.Language != "" && !strings.EqualFold(req.Language, "en") {
		languageHint = fmt.Sprintf("\n- Answer in the language with code %q.", strings.ToLower(req.Language))
	}
	system := fmt.Sprintf(systemPromptTemplate, grade, languageHint)

	used := make([]model.RetrievedChunk, 0, len(result.Chunks))
	var contextBuilder strings.Builder
	budget := b.maxContextChars
	for i, chunk := range result.Chunks {
		header := fmt.Sprintf("[Source %d: %s, %s, page %d]\n", i+1,
			chunk.DocumentName, chunk.ChapterLabel, chunk.Page)
		block := header + chunk.Text
		if len(block) > budget {
			if len(used) > 0 {
				break
			}
			// the top passage always ships; a gate-passed request must
			// never reach generation without grounding
			keep := budget - len(header)
			if keep < 0 {
				keep = 0
			}
			block = header + truncate(chunk.Text, keep)
		}
		if contextBuilder.Len() > 0 {
			contextBuilder.WriteString("\n\n---\n\n")
		}
		contextBuilder.WriteString(block)
		budget -= len(block)
		used = append(used, chunk)
	}

	var userBuilder strings.Builder
	if len(history) > 0 {
		userBuilder.WriteString("PREVIOUS CONVERSATION:\n")
		for _, turn := range history {
			userBuilder.WriteString("Student: ")
			userBuilder.WriteString(turn.Question)
			userBuilder.WriteString("\nTutor: ")
			userBuilder.WriteString(turn.Answer)
			userBuilder.WriteString("\n")
		}
		userBuilder.WriteString("\n")
	}
	userBuilder.WriteString("TEXTBOOK PASSAGES:\n")
	userBuilder.WriteString(contextBuilder.String())
	userBuilder.WriteString("\n\nSTUDENT QUESTION:\n")
	userBuilder.WriteString(strings.TrimSpace(req.Message))
	userBuilder.WriteString("\n\nYOUR ANSWER:")

	return GenerationRequest{
		SystemPrompt: system,
		UserPrompt:   userBuilder.String(),
	}, used
}

// truncate cuts s to at most n bytes, backing off to a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// outOfScopeAnswers mirror the canned responses of the original tutoring
// service for the supported interface languages.
var outOfScopeAnswers = map[string]string{
	"en": "I don't have enough information in my textbook knowledge base to answer this question accurately. Please try asking about topics covered in the curriculum textbooks.",
	"hi": "मेरे पास इस प्रश्न का सटीक उत्तर देने के लिए पाठ्यपुस्तकों में पर्याप्त जानकारी नहीं है। कृपया पाठ्यक्रम की पुस्तकों में शामिल विषयों के बारे में पूछें।",
	"ur": "میرے پاس اس سوال کا درست جواب دینے کے لیے نصابی کتابوں میں کافی معلومات نہیں ہیں۔ براہ کرم نصاب کی کتابوں میں شامل موضوعات کے بارے میں پوچھیں۔",
}

// OutOfScopeAnswer returns the canned answer used when the relevance gate
// rejects a query. Generation is never invoked for these.
func OutOfScopeAnswer(language string) string {
	if answer, ok := outOfScopeAnswers[strings.ToLower(strings.TrimSpace(language))]; ok {
		return answer
	}
	return outOfScopeAnswers["en"]
}
