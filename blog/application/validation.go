package application

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dfryer1193/blogapi/blog/domain"
)

// blogFields holds the user-editable columns. A nil field was not supplied and
// is skipped; a supplied field must be non-blank.
type blogFields struct {
	Title   *string `json:"title" validate:"omitnil,min=1,max=255"`
	Author  *string `json:"author" validate:"omitnil,min=1,max=100"`
	Content *string `json:"content" validate:"omitnil,min=1"`
}

var fieldLabels = map[string]string{
	"title":   "Title",
	"author":  "Author name",
	"content": "Content",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateFields returns a domain.ValidationError for the first field that
// fails. Values are checked with surrounding whitespace removed.
func validateFields(fields blogFields) error {
	trimmed := blogFields{
		Title:   trimmedPtr(fields.Title),
		Author:  trimmedPtr(fields.Author),
		Content: trimmedPtr(fields.Content),
	}

	err := validate.Struct(trimmed)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.ValidationError("", err.Error())
	}

	fe := verrs[0]
	return domain.ValidationError(fe.Field(), fieldMessage(fe))
}

func fieldMessage(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}

	switch fe.Tag() {
	case "required", "min":
		return label + " is required"
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", label, fe.Param())
	default:
		return label + " is invalid"
	}
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
