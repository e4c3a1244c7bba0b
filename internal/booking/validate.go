package booking

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	phonePattern = regexp.MustCompile(`^\d{10}$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	draftValidator = newDraftValidator()
)

// draftRules mirrors the draft with the constraints a submission must meet.
type draftRules struct {
	Name  string   `validate:"notblank"`
	Phone string   `validate:"notblank,phone10"`
	Email string   `validate:"notblank,emailshape"`
	Date  string   `validate:"notblank"`
	Parts []string `validate:"min=1"`
}

func newDraftValidator() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(value) != ""
	})
	v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		return ok && phonePattern.MatchString(value)
	})
	v.RegisterValidation("emailshape", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		return ok && emailPattern.MatchString(value)
	})

	return v
}

// Validate checks a draft before submission. Missing fields win over a bad
// phone, and a bad phone wins over a bad email.
func Validate(d Draft) error {
	err := draftValidator.Struct(draftRules{
		Name:  d.Name,
		Phone: d.Phone,
		Email: d.Email,
		Date:  d.Date,
		Parts: d.PartNames(),
	})
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Kind: RequiredField}
	}

	var phoneErr, emailErr *ValidationError
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "notblank", "min":
			return &ValidationError{Kind: RequiredField, Field: wireName(fe.Field())}
		case "phone10":
			phoneErr = &ValidationError{Kind: InvalidPhone, Field: FieldPhone}
		case "emailshape":
			emailErr = &ValidationError{Kind: InvalidEmail, Field: FieldEmail}
		}
	}
	if phoneErr != nil {
		return phoneErr
	}
	if emailErr != nil {
		return emailErr
	}
	return &ValidationError{Kind: RequiredField}
}

func wireName(structField string) string {
	switch structField {
	case "Name":
		return FieldName
	case "Phone":
		return FieldPhone
	case "Email":
		return FieldEmail
	case "Date":
		return FieldDate
	case "Parts":
		return FieldSelectedPart
	default:
		return structField
	}
}
