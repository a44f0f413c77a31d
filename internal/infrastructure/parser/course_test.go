package parser

import (
	"context"
	"strings"
	"testing"

	"course-assistant/internal/core/domain"
)

const sampleTextCourse = `Course Title: Building Towards Computer Use
Course Link: https://example.com/course
Course Instructor: Colt Steele

Lesson 0: Introduction
Lesson Link: https://example.com/lesson0
Welcome to the course. This lesson covers the basics.

Lesson 1: API Fundamentals
Calling an API requires a key. Responses are JSON.
`

func TestParseTextCourse(t *testing.T) {
	p := New()
	course, err := p.Parse(context.Background(), "course1.txt", strings.NewReader(sampleTextCourse))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if course.Title != "Building Towards Computer Use" {
		t.Fatalf("unexpected title %q", course.Title)
	}
	if course.Link != "https://example.com/course" {
		t.Fatalf("unexpected link %q", course.Link)
	}
	if course.Instructor != "Colt Steele" {
		t.Fatalf("unexpected instructor %q", course.Instructor)
	}
	if len(course.Lessons) != 2 {
		t.Fatalf("expected 2 lessons, got %d", len(course.Lessons))
	}

	first := course.Lessons[0]
	if first.Number != 0 || first.Title != "Introduction" {
		t.Fatalf("unexpected first lesson %+v", first)
	}
	if first.Link != "https://example.com/lesson0" {
		t.Fatalf("lesson link not parsed: %q", first.Link)
	}
	if !strings.Contains(first.Content, "covers the basics") {
		t.Fatalf("lesson content missing: %q", first.Content)
	}

	second := course.Lessons[1]
	if second.Number != 1 || second.Link != "" {
		t.Fatalf("unexpected second lesson %+v", second)
	}
}

func TestParseTextCourseMissingTitle(t *testing.T) {
	p := New()
	_, err := p.Parse(context.Background(), "bad.txt", strings.NewReader("Lesson 0: Intro\nsome text\n"))
	if err == nil {
		t.Fatalf("expected error for missing course title")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input kind, got %v", err)
	}
}

func TestParseYAMLCourse(t *testing.T) {
	manifest := `title: Test Course
link: https://example.com/c
lessons:
  - number: 1
    title: First
    link: https://example.com/l1
    content: |
      Sentence one. Sentence two.
`
	p := New()
	course, err := p.Parse(context.Background(), "course.yaml", strings.NewReader(manifest))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if course.Title != "Test Course" || len(course.Lessons) != 1 {
		t.Fatalf("unexpected course %+v", course)
	}
	if course.Lessons[0].Link != "https://example.com/l1" {
		t.Fatalf("lesson link not parsed: %+v", course.Lessons[0])
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	p := New()
	_, err := p.Parse(context.Background(), "course.docx", strings.NewReader("x"))
	if err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input kind, got %v", err)
	}
}
