// Package validator validates request and dependency structs.
//
// Business code depends on the Validator interface. The go-playground v10
// implementation reports failures as a field to message map keyed in
// snake_case.
package validator

// Validator validates a struct according to its `validate` tags.
type Validator interface {
	Validate(data any) error
}
