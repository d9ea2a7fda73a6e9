package app

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"review_analyzer/internal/domain"
)

// ValidationGate checks inbound requests against the location allow-list
// and required fields. It holds no mutable state.
type ValidationGate struct {
	allowed map[string]struct{}
	in      []any // allow-list in the shape validation.In wants
}

func NewValidationGate(locations []string) *ValidationGate {
	g := &ValidationGate{allowed: make(map[string]struct{}, len(locations))}
	for _, l := range locations {
		g.allowed[l] = struct{}{}
		g.in = append(g.in, l)
	}
	return g
}

// ValidLocation reports whether location is a non-empty allow-list member.
func (g *ValidationGate) ValidLocation(location string) bool {
	if location == "" {
		return false
	}
	_, ok := g.allowed[location]
	return ok
}

// WriteInput is a write request that passed validation.
type WriteInput struct {
	Location string
	Body     string
}

// ValidationError lists the offending fields. It unwraps to domain.ErrInvalidInput.
type ValidationError struct {
	Fields validation.Errors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", domain.ErrInvalidInput, e.Fields.Error())
}

func (e *ValidationError) Unwrap() error { return domain.ErrInvalidInput }

// ValidateWrite requires an allow-listed location and a body that is
// non-empty after trimming. The body is kept as sent.
func (g *ValidationGate) ValidateWrite(location, body string) (WriteInput, error) {
	probe := struct {
		Location string `json:"location"`
		Body     string `json:"body"`
	}{Location: location, Body: strings.TrimSpace(body)}

	err := validation.ValidateStruct(&probe,
		validation.Field(&probe.Location,
			validation.Required.Error("location is required"),
			validation.In(g.in...).Error("location is not allowed"),
		),
		validation.Field(&probe.Body,
			validation.Required.Error("body is required"),
		),
	)
	if err != nil {
		if fe, ok := err.(validation.Errors); ok {
			return WriteInput{}, &ValidationError{Fields: fe}
		}
		return WriteInput{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return WriteInput{Location: location, Body: body}, nil
}
