package feedback

import (
	"fmt"
	"sort"
	"strings"

	"booking-portal/internal/models"
	"booking-portal/internal/validation"

	"github.com/go-playground/validator"
)

// Fields are the answers of the feedback form.
type Fields struct {
	UnclearTopic   string `json:"unclear_topic" form:"unclear_topic" validate:"required"`
	UsefulTopic    string `json:"useful_topic" form:"useful_topic" validate:"required"`
	Recommendation string `json:"recommendation" form:"recommendation" validate:"required"`
	MentorPacing   string `json:"mentor_pacing" form:"mentor_pacing" validate:"required"`
	ImportantTopic string `json:"important_topic" form:"important_topic" validate:"required"`
	Comment        string `json:"comment" form:"comment"`
}

func (f Fields) trimmed() Fields {
	return Fields{
		UnclearTopic:   strings.TrimSpace(f.UnclearTopic),
		UsefulTopic:    strings.TrimSpace(f.UsefulTopic),
		Recommendation: strings.TrimSpace(f.Recommendation),
		MentorPacing:   strings.TrimSpace(f.MentorPacing),
		ImportantTopic: strings.TrimSpace(f.ImportantTopic),
		Comment:        strings.TrimSpace(f.Comment),
	}
}

// Record builds the feedback record for the given booking.
func (f Fields) Record(sessionBookingID string) *models.SessionFeedback {
	return &models.SessionFeedback{
		SessionBookingID: sessionBookingID,
		UnclearTopic:     f.UnclearTopic,
		UsefulTopic:      f.UsefulTopic,
		Recommendation:   f.Recommendation,
		MentorPacing:     f.MentorPacing,
		ImportantTopic:   f.ImportantTopic,
		Comment:          f.Comment,
	}
}

// ValidationError lists the fields that failed validation, keyed by their
// json name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("feedback is incomplete: %s", strings.Join(names, ", "))
}

// Has reports whether the named field failed validation.
func (e *ValidationError) Has(field string) bool {
	_, ok := e.Fields[field]
	return ok
}

// Validate checks the fields with v. Whitespace-only answers count as empty.
func Validate(v *validator.Validate, f Fields) error {
	if err := v.Struct(f.trimmed()); err != nil {
		fields := validation.FieldErrors(err)
		if fields == nil {
			return err
		}
		return &ValidationError{Fields: fields}
	}
	return nil
}
