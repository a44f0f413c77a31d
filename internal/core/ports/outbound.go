package ports

import (
	"context"
	"io"

	"course-assistant/internal/core/domain"
)

// SemanticSearch runs similarity queries against the course index. Search
// fails with a domain.ErrSearch-kinded error when the index is unreachable or
// a filter names a course/lesson that does not exist; the error message names
// the unresolved filter.
type SemanticSearch interface {
	Search(ctx context.Context, query domain.SearchQuery) ([]domain.SearchResult, error)
	ResolveCourseName(ctx context.Context, partial string) (string, error)
	LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error)
}

// ChatModel is the language-model collaborator. The response is either a
// final text completion or a set of tool-invocation requests.
type ChatModel interface {
	Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex stores chunks and answers filtered similarity queries.
// IndexChunks must be idempotent: re-indexing an unchanged chunk overwrites
// its existing entry instead of duplicating it.
type VectorIndex interface {
	IndexChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	Query(ctx context.Context, vector []float32, limit int, courseTitle string, lessonNumber *int) ([]domain.SearchResult, error)
}

// CourseCatalog persists course and lesson metadata.
type CourseCatalog interface {
	UpsertCourse(ctx context.Context, course *domain.Course) error
	ResolveCourseName(ctx context.Context, partial string) (string, error)
	LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error)
	GetOutline(ctx context.Context, courseTitle string) (*domain.Course, error)
	ListCourseTitles(ctx context.Context) ([]string, error)
}

// ConversationStore keeps the bounded per-session history of exchanges.
// Implementations serialize access per session.
type ConversationStore interface {
	CreateSession() string
	History(sessionID string) string
	AddExchange(sessionID, question, answer string)
}

// ToolRegistry dispatches model-requested tool invocations by name and
// gathers source references accumulated by the tools.
type ToolRegistry interface {
	Declarations() []domain.ToolDeclaration
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
	CollectSources() []domain.SourceReference
	ResetSources()
}

// CourseParser turns one raw course document into a Course.
type CourseParser interface {
	Parse(ctx context.Context, filename string, r io.Reader) (*domain.Course, error)
}

// Chunker splits a parsed course into overlapping retrievable chunks.
type Chunker interface {
	Chunk(course *domain.Course) []domain.Chunk
}

// ObjectStorage stores uploaded course documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes course ingestion events.
type MessageQueue interface {
	PublishCourseUploaded(ctx context.Context, storageKey string) error
	SubscribeCourseUploaded(ctx context.Context, handler func(context.Context, string) error) error
}
