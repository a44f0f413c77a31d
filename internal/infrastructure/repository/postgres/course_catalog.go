package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"course-assistant/internal/core/domain"
)

// CourseCatalog stores course and lesson metadata: titles for fuzzy name
// resolution, links for source citations, and outlines.
type CourseCatalog struct {
	db *sql.DB
}

func NewCourseCatalog(db *sql.DB) *CourseCatalog {
	return &CourseCatalog{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *CourseCatalog) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026040201)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS courses (
	title TEXT PRIMARY KEY,
	link TEXT,
	instructor TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS lessons (
	course_title TEXT NOT NULL REFERENCES courses(title) ON DELETE CASCADE,
	lesson_number INT NOT NULL,
	title TEXT NOT NULL,
	link TEXT,
	PRIMARY KEY (course_title, lesson_number)
);

CREATE INDEX IF NOT EXISTS idx_courses_title_lower ON courses(LOWER(title));
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *CourseCatalog) UpsertCourse(ctx context.Context, course *domain.Course) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
INSERT INTO courses (title, link, instructor, created_at, updated_at)
VALUES ($1,$2,$3,$4,$4)
ON CONFLICT (title) DO UPDATE
SET link = EXCLUDED.link, instructor = EXCLUDED.instructor, updated_at = EXCLUDED.updated_at
`, course.Title, course.Link, course.Instructor, now)
	if err != nil {
		return fmt.Errorf("upsert course: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM lessons WHERE course_title = $1`, course.Title); err != nil {
		return fmt.Errorf("clear lessons: %w", err)
	}
	for _, lesson := range course.Lessons {
		_, err := tx.ExecContext(ctx, `
INSERT INTO lessons (course_title, lesson_number, title, link)
VALUES ($1,$2,$3,$4)
`, course.Title, lesson.Number, lesson.Title, lesson.Link)
		if err != nil {
			return fmt.Errorf("insert lesson %d: %w", lesson.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}

// ResolveCourseName maps a possibly partial or misspelled name to a stored
// course title: exact case-insensitive match first, then substring, then
// best token overlap.
func (r *CourseCatalog) ResolveCourseName(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.WrapError(domain.ErrCourseNotFound, "resolve course", fmt.Errorf("empty course name"))
	}

	var title string
	err := r.db.QueryRowContext(ctx,
		`SELECT title FROM courses WHERE LOWER(title) = LOWER($1)`, name,
	).Scan(&title)
	if err == nil {
		return title, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("resolve exact title: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT title FROM courses WHERE title ILIKE '%' || $1 || '%' ORDER BY title LIMIT 1`, name,
	).Scan(&title)
	if err == nil {
		return title, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("resolve title substring: %w", err)
	}

	titles, err := r.ListCourseTitles(ctx)
	if err != nil {
		return "", err
	}
	if best := bestTokenMatch(name, titles); best != "" {
		return best, nil
	}
	return "", domain.WrapError(domain.ErrCourseNotFound, "resolve course", fmt.Errorf("no course matching %q", name))
}

func (r *CourseCatalog) LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error) {
	var link sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT link FROM lessons WHERE course_title = $1 AND lesson_number = $2`,
		courseTitle, lessonNumber,
	).Scan(&link)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.WrapError(domain.ErrLessonNotFound, "lesson link",
			fmt.Errorf("course %q lesson %d", courseTitle, lessonNumber))
	}
	if err != nil {
		return "", fmt.Errorf("query lesson link: %w", err)
	}
	return link.String, nil
}

func (r *CourseCatalog) GetOutline(ctx context.Context, courseTitle string) (*domain.Course, error) {
	course := &domain.Course{}
	var link, instructor sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT title, link, instructor FROM courses WHERE title = $1`, courseTitle,
	).Scan(&course.Title, &link, &instructor)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.WrapError(domain.ErrCourseNotFound, "course outline", fmt.Errorf("course %q", courseTitle))
	}
	if err != nil {
		return nil, fmt.Errorf("query course: %w", err)
	}
	course.Link = link.String
	course.Instructor = instructor.String

	rows, err := r.db.QueryContext(ctx, `
SELECT lesson_number, title, link
FROM lessons
WHERE course_title = $1
ORDER BY lesson_number
`, courseTitle)
	if err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var lesson domain.Lesson
		var lessonLink sql.NullString
		if err := rows.Scan(&lesson.Number, &lesson.Title, &lessonLink); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lesson.Link = lessonLink.String
		course.Lessons = append(course.Lessons, lesson)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lessons: %w", err)
	}
	return course, nil
}

func (r *CourseCatalog) ListCourseTitles(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT title FROM courses ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("query course titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan course title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course titles: %w", err)
	}
	return titles, nil
}

// bestTokenMatch picks the stored title sharing the most lowercase word
// tokens with the query. Single shared tokens still win; zero overlap means
// no match. Ties resolve to the lexicographically first title.
func bestTokenMatch(name string, titles []string) string {
	queryTokens := tokenize(name)
	if len(queryTokens) == 0 {
		return ""
	}

	sorted := append([]string(nil), titles...)
	sort.Strings(sorted)

	best := ""
	bestScore := 0
	for _, title := range sorted {
		score := 0
		titleTokens := tokenize(title)
		for token := range queryTokens {
			if titleTokens[token] {
				score++
			}
		}
		if score > bestScore {
			best = title
			bestScore = score
		}
	}
	return best
}

func tokenize(s string) map[string]bool {
	tokens := map[string]bool{}
	for _, field := range strings.Fields(strings.ToLower(s)) {
		field = strings.Trim(field, ".,:;!?\"'()")
		if field != "" {
			tokens[field] = true
		}
	}
	return tokens
}
