package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"course-assistant/internal/core/ports"
)

// IngestCourseUseCase accepts an uploaded course document, stores it, and
// publishes an ingestion event for asynchronous processing.
type IngestCourseUseCase struct {
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestCourseUseCase(storage ports.ObjectStorage, queue ports.MessageQueue) *IngestCourseUseCase {
	return &IngestCourseUseCase{
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestCourseUseCase) Upload(ctx context.Context, filename string, body io.Reader) (string, error) {
	storageKey := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename))

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return "", fmt.Errorf("save course document: %w", err)
	}

	if err := uc.queue.PublishCourseUploaded(ctx, storageKey); err != nil {
		return "", fmt.Errorf("publish ingestion event: %w", err)
	}

	return storageKey, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "course.txt"
	}
	return base
}
