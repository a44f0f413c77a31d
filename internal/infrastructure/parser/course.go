package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"course-assistant/internal/core/domain"
)

// Parser reads raw course documents in the supported formats and produces
// the canonical Course model. Format is selected by file extension.
type Parser struct{}

func New() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(ctx context.Context, filename string, r io.Reader) (*domain.Course, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md":
		return parseText(r)
	case ".yaml", ".yml":
		return parseYAML(r)
	case ".pdf":
		return parsePDF(ctx, filename, r)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse course",
			fmt.Errorf("unsupported format: %s", filepath.Ext(filename)))
	}
}

var lessonHeading = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// parseText reads the structured plain-text course format:
//
//	Course Title: <title>
//	Course Link: <url>
//	Course Instructor: <name>
//
//	Lesson 0: Introduction
//	Lesson Link: <url>
//	<content lines>
//
// Text before the first lesson heading (after the course header) is ignored.
func parseText(r io.Reader) (*domain.Course, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	course := &domain.Course{}
	var current *domain.Lesson
	var content strings.Builder

	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(content.String())
		course.Lessons = append(course.Lessons, *current)
		current = nil
		content.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case current == nil && strings.HasPrefix(trimmed, "Course Title:"):
			course.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Title:"))
		case current == nil && strings.HasPrefix(trimmed, "Course Link:"):
			course.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Link:"))
		case current == nil && strings.HasPrefix(trimmed, "Course Instructor:"):
			course.Instructor = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Instructor:"))
		case lessonHeading.MatchString(trimmed):
			flush()
			match := lessonHeading.FindStringSubmatch(trimmed)
			number, err := strconv.Atoi(match[1])
			if err != nil {
				return nil, domain.WrapError(domain.ErrInvalidInput, "parse course", err)
			}
			current = &domain.Lesson{Number: number, Title: strings.TrimSpace(match[2])}
		case current != nil && strings.HasPrefix(trimmed, "Lesson Link:"):
			current.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Lesson Link:"))
		case current != nil:
			content.WriteString(line)
			content.WriteString("\n")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read course document: %w", err)
	}
	flush()

	if err := validate(course); err != nil {
		return nil, err
	}
	return course, nil
}

func validate(course *domain.Course) error {
	if strings.TrimSpace(course.Title) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "parse course", errors.New("missing course title"))
	}
	if len(course.Lessons) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "parse course", errors.New("course has no lessons"))
	}
	return nil
}
