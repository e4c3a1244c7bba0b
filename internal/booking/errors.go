package booking

import "errors"

var (
	// ErrUnknownField is returned when a form edit names no draft field.
	ErrUnknownField = errors.New("booking: unknown field")

	// ErrPartNotOffered is returned when toggling a part the current
	// category and tier do not offer.
	ErrPartNotOffered = errors.New("booking: part not offered")

	// ErrSubmitInFlight is returned when a submit arrives while another is pending.
	ErrSubmitInFlight = errors.New("booking: submission already in progress")

	// ErrClosed is returned by a form whose session has ended.
	ErrClosed = errors.New("booking: form closed")
)

// ValidationKind classifies why a draft cannot be submitted.
type ValidationKind string

const (
	RequiredField ValidationKind = "required_field"
	InvalidPhone  ValidationKind = "invalid_phone"
	InvalidEmail  ValidationKind = "invalid_email"
)

// ValidationError is returned by Validate. It never wraps a network error.
type ValidationError struct {
	Kind  ValidationKind
	Field string
}

func (e *ValidationError) Error() string {
	return "booking: validation failed: " + string(e.Kind)
}

// Message is the text shown to the customer.
func (e *ValidationError) Message() string {
	switch e.Kind {
	case InvalidPhone:
		return "Please enter a valid phone number"
	case InvalidEmail:
		return "Please enter a valid email address"
	default:
		return "Please fill in all the required fields"
	}
}
