package subjects

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/classattendance/internal/errs"
)

// Subject is a course tracked for attendance, identified by its name.
type Subject string

// Parse trims the name and rejects empty names.
func Parse(name string) (Subject, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: subject name is empty", errs.ErrValidation)
	}
	return Subject(trimmed), nil
}

// Encode returns the persisted form of the registry, a JSON array of names.
func Encode(subjects []Subject) (string, error) {
	names := make([]string, len(subjects))
	for i, s := range subjects {
		names[i] = string(s)
	}
	data, err := json.Marshal(names)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func Decode(value string) ([]Subject, error) {
	var names []string
	if err := json.Unmarshal([]byte(value), &names); err != nil {
		return nil, err
	}
	subjects := make([]Subject, len(names))
	for i, name := range names {
		subjects[i] = Subject(name)
	}
	return subjects, nil
}
