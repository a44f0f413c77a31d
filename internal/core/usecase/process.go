package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"course-assistant/internal/core/domain"
	"course-assistant/internal/core/ports"
)

// ProcessCourseUseCase runs the ingestion pipeline for one stored document:
// parse, chunk, embed, index, and record the course in the catalog. Chunk ids
// in the index derive from (course, lesson, chunk index), so reprocessing an
// unchanged document overwrites instead of duplicating.
type ProcessCourseUseCase struct {
	storage  ports.ObjectStorage
	parser   ports.CourseParser
	chunker  ports.Chunker
	embedder ports.Embedder
	index    ports.VectorIndex
	catalog  ports.CourseCatalog
}

func NewProcessCourseUseCase(
	storage ports.ObjectStorage,
	parser ports.CourseParser,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndex,
	catalog ports.CourseCatalog,
) *ProcessCourseUseCase {
	return &ProcessCourseUseCase{
		storage:  storage,
		parser:   parser,
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		catalog:  catalog,
	}
}

// ProcessByKey ingests one stored document and returns the number of chunks
// written to the index.
func (uc *ProcessCourseUseCase) ProcessByKey(ctx context.Context, storageKey string) (int, error) {
	reader, err := uc.storage.Open(ctx, storageKey)
	if err != nil {
		return 0, fmt.Errorf("open stored document: %w", err)
	}
	defer reader.Close()

	course, err := uc.parser.Parse(ctx, storageKey, reader)
	if err != nil {
		return 0, fmt.Errorf("parse course document: %w", err)
	}
	return uc.indexCourse(ctx, course)
}

func (uc *ProcessCourseUseCase) indexCourse(ctx context.Context, course *domain.Course) (int, error) {
	chunks := uc.chunker.Chunk(course)
	if len(chunks) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "chunk course", errors.New("chunking produced zero chunks"))
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	if err := uc.index.IndexChunks(ctx, chunks, vectors); err != nil {
		return 0, fmt.Errorf("index chunks: %w", err)
	}

	if err := uc.catalog.UpsertCourse(ctx, course); err != nil {
		return 0, fmt.Errorf("upsert course metadata: %w", err)
	}
	return len(chunks), nil
}

// ProcessFolder ingests every supported document in dir directly from disk.
// One malformed document does not abort the batch: failures are collected
// per file and the rest continue.
func (uc *ProcessCourseUseCase) ProcessFolder(ctx context.Context, dir string) (*domain.IngestReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read course folder: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	report := &domain.IngestReport{Failed: map[string]string{}}
	for _, name := range names {
		if !supportedDocument(name) {
			report.Skipped = append(report.Skipped, name)
			continue
		}
		chunks, err := uc.processFile(ctx, filepath.Join(dir, name))
		if err != nil {
			slog.Warn("course_ingest_failed", "file", name, "error", err)
			report.Failed[name] = err.Error()
			continue
		}
		report.Ingested = append(report.Ingested, name)
		report.ChunksIndexed += chunks
	}
	return report, nil
}

func (uc *ProcessCourseUseCase) processFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open course file: %w", err)
	}
	defer f.Close()

	course, err := uc.parser.Parse(ctx, path, f)
	if err != nil {
		return 0, err
	}
	return uc.indexCourse(ctx, course)
}

func supportedDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".yaml", ".yml", ".pdf":
		return true
	default:
		return false
	}
}
