package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"course-assistant/internal/core/domain"
)

// parsePDF extracts plain text from a PDF course script. PDFs carry no lesson
// structure, so the whole document becomes a single lesson titled after the
// file, with the course title taken from the filename.
func parsePDF(ctx context.Context, filename string, r io.Reader) (*domain.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse course", fmt.Errorf("open pdf: %w", err))
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse course", fmt.Errorf("extract pdf text: %w", err))
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(textReader); err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}

	title := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	course := &domain.Course{
		Title: title,
		Lessons: []domain.Lesson{
			{Number: 0, Title: title, Content: strings.TrimSpace(buf.String())},
		},
	}
	if err := validate(course); err != nil {
		return nil, err
	}
	return course, nil
}
