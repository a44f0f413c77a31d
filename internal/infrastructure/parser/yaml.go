package parser

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"course-assistant/internal/core/domain"
)

// parseYAML reads a YAML course manifest:
//
//	title: Building Towards Computer Use
//	link: https://example.com/course
//	instructor: Jane Doe
//	lessons:
//	  - number: 0
//	    title: Introduction
//	    link: https://example.com/lesson0
//	    content: |
//	      ...
func parseYAML(r io.Reader) (*domain.Course, error) {
	var course domain.Course
	if err := yaml.NewDecoder(r).Decode(&course); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse course", fmt.Errorf("decode yaml: %w", err))
	}
	if err := validate(&course); err != nil {
		return nil, err
	}
	return &course, nil
}
