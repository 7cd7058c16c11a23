package match

import (
	"sort"
	"strings"
)

// Field gives one questionnaire field its position and weight in the
// composed query text. Weight n repeats the answer n times so core
// fields dominate the embedding over free-form elaboration fields.
type Field struct {
	Name   string
	Weight int
}

// Schema is the ordered list of questionnaire fields.
type Schema []Field

// DefaultSchema mirrors the product questionnaire: interests and skills
// are primary (doubled), everything else contributes once.
func DefaultSchema() Schema {
	return Schema{
		{Name: "interests", Weight: 2},
		{Name: "skills", Weight: 2},
		{Name: "problem_solving", Weight: 1},
		{Name: "values", Weight: 1},
		{Name: "interests_fulltime", Weight: 1},
		{Name: "interests_appeal", Weight: 1},
		{Name: "skills_natural", Weight: 1},
		{Name: "skills_energized", Weight: 1},
		{Name: "problem_method", Weight: 1},
		{Name: "problem_enjoy", Weight: 1},
		{Name: "work_style", Weight: 1},
		{Name: "work_routine", Weight: 1},
		{Name: "work_goals", Weight: 1},
		{Name: "values_why", Weight: 1},
		{Name: "values_choice", Weight: 1},
		{Name: "career_inspiration", Weight: 1},
		{Name: "inspiration_standout", Weight: 1},
		{Name: "inspiration_pursue", Weight: 1},
		{Name: "environment_preference", Weight: 1},
		{Name: "environment_why", Weight: 1},
		{Name: "focus_preference", Weight: 1},
		{Name: "impact_preference", Weight: 1},
		{Name: "impact_why", Weight: 1},
	}
}

// Compose joins the answers into one space-separated text blob in
// schema order, repeating each answer per its field weight. Empty and
// whitespace-only answers are skipped entirely, never emitted as empty
// tokens. Fields outside the schema are appended once each, in name
// order, so extra questionnaire fields still count.
func (s Schema) Compose(answers map[string]string) string {
	known := make(map[string]bool, len(s))
	var parts []string

	for _, f := range s {
		known[f.Name] = true
		v := strings.TrimSpace(answers[f.Name])
		if v == "" {
			continue
		}
		for i := 0; i < f.Weight; i++ {
			parts = append(parts, v)
		}
	}

	var extra []string
	for name := range answers {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		if v := strings.TrimSpace(answers[name]); v != "" {
			parts = append(parts, v)
		}
	}

	return strings.Join(parts, " ")
}
