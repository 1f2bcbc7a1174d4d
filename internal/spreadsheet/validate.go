package spreadsheet

import (
	"fmt"
	"strings"

	domainErrors "github.com/polkiloo/labtracker/internal/domain/errors"
	"github.com/polkiloo/labtracker/internal/domain/model"
)

// ValidationError lists the required fields missing from one order.
type ValidationError struct {
	Index         int      `json:"index"`
	Description   string   `json:"description"`
	MissingFields []string `json:"missing_fields"`
}

// ValidationResult reports every order that failed validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors"`
}

// Validate checks required fields of every order.
func Validate(orders []model.Order) ValidationResult {
	res := ValidationResult{Errors: []ValidationError{}}
	required := RequiredFields()

	for i, o := range orders {
		var missing []string
		for _, f := range required {
			if TextValue(o, f.Key) == "" {
				missing = append(missing, f.Label)
			}
		}
		if len(missing) == 0 {
			continue
		}
		desc := o.Description
		if desc == "" {
			desc = "Unknown"
		}
		res.Errors = append(res.Errors, ValidationError{Index: i, Description: desc, MissingFields: missing})
	}
	res.Valid = len(res.Errors) == 0
	return res
}

// FormatValidationErrors renders result as a message for the user.
func FormatValidationErrors(res ValidationResult) string {
	switch len(res.Errors) {
	case 0:
		return ""
	case 1:
		e := res.Errors[0]
		return fmt.Sprintf("Error in Order %q: Missing required fields: %s.", e.Description, strings.Join(e.MissingFields, ", "))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d orders have validation errors:", len(res.Errors))
	for _, e := range res.Errors {
		fmt.Fprintf(&b, "\n• %q: Missing %s", e.Description, strings.Join(e.MissingFields, ", "))
	}
	return b.String()
}

// Err returns nil for a valid result, otherwise ErrValidationFailed carrying
// the formatted message.
func (r ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", domainErrors.ErrValidationFailed, FormatValidationErrors(r))
}
