package ports

import (
	"context"
	"io"

	"course-assistant/internal/core/domain"
)

// QueryService is the inbound contract for answering course questions.
type QueryService interface {
	Answer(ctx context.Context, query, sessionID string) (*domain.Answer, error)
}

// CourseIngestor is the inbound contract for course document upload.
type CourseIngestor interface {
	Upload(ctx context.Context, filename string, body io.Reader) (string, error)
}

// CourseProcessor is the inbound contract for asynchronous document
// processing and batch folder ingestion. ProcessByKey reports how many
// chunks it wrote to the index.
type CourseProcessor interface {
	ProcessByKey(ctx context.Context, storageKey string) (int, error)
	ProcessFolder(ctx context.Context, dir string) (*domain.IngestReport, error)
}
