package model

type ChatRequest struct {
	Message        string `json:"message"`
	Provider       string `json:"provider,omitempty"`
	Grade          int    `json:"grade,omitempty"`
	Subject        string `json:"subject,omitempty"`
	Language       string `json:"language,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type Source struct {
	DocumentName string `json:"document_name"`
	ChapterLabel string `json:"chapter_label"`
	Page         int    `json:"page,omitempty"`
	Relevance    string `json:"relevance"`
}

type MediaRef struct {
	URL string `json:"url"`
}

type ChatResponse struct {
	Answer         string     `json:"answer"`
	Sources        []Source   `json:"sources"`
	Images         []MediaRef `json:"images"`
	ContentFound   bool       `json:"content_found"`
	ResponseTimeMs int64      `json:"response_time_ms"`
	ConversationID string     `json:"conversation_id"`
	Cached         bool       `json:"cached"`
}

type ChatMessage struct {
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Sources   []Source `json:"sources,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// ChatRecord is one persisted question/answer pair.
type ChatRecord struct {
	ID             string   `db:"id"`
	UserID         string   `db:"user_id"`
	ConversationID string   `db:"conversation_id"`
	Question       string   `db:"question"`
	Answer         string   `db:"answer"`
	SourcesJSON    string   `db:"sources"`
	Provider       string   `db:"provider"`
	Language       string   `db:"language"`
	ResponseTimeMs int64    `db:"response_time_ms"`
	Ctime          int64    `db:"ctime"`
	Sources        []Source `db:"-"`
}

// CachedAnswer is a durable cache row keyed by the normalized question hash.
type CachedAnswer struct {
	QuestionHash string `db:"question_hash"`
	Question     string `db:"question"`
	Answer       string `db:"answer"`
	SourcesJSON  string `db:"sources"`
	ImagesJSON   string `db:"images"`
	Ctime        int64  `db:"ctime"`
}
