package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	MaxTitleLength = 1024
	MaxTabs        = 500
)

func init() {
	validate = validator.New()
}

// TabRecord is the on-disk shape of a tab in a tab list file.
type TabRecord struct {
	ID      string `json:"id" yaml:"id" validate:"omitempty,max=128"`
	URL     string `json:"url" yaml:"url" validate:"required,url"`
	Title   string `json:"title" yaml:"title" validate:"max=1024"`
	Content string `json:"content" yaml:"content"`
}

// ValidateTabRecord validates one tab record.
func ValidateTabRecord(rec *TabRecord) error {
	if rec == nil {
		return errors.New("tab record cannot be nil")
	}
	if err := validate.Struct(rec); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateTabRecords validates a tab list and rejects duplicate ids.
func ValidateTabRecords(recs []TabRecord) error {
	if len(recs) > MaxTabs {
		return fmt.Errorf("tabs: maximum %d tabs allowed, got %d", MaxTabs, len(recs))
	}
	seen := make(map[string]int, len(recs))
	for i := range recs {
		if err := ValidateTabRecord(&recs[i]); err != nil {
			return fmt.Errorf("tabs[%d]: %w", i, err)
		}
		if id := recs[i].ID; id != "" {
			if j, dup := seen[id]; dup {
				return fmt.Errorf("tabs[%d]: duplicate id %q (first at index %d)", i, id, j)
			}
			seen[id] = i
		}
	}
	return nil
}

// Struct validates any struct carrying `validate` tags.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min", "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max", "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "url":
			return fmt.Errorf("%s: %q is not a valid URL", field, e.Value())
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
