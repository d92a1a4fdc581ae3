// Package validation validates structs through `validate` tags using
// go-playground/validator. Failures come back as an INVALID_INPUT
// errors.AppError whose "fields" detail lists each failed constraint.
//
//	type patchRequest struct {
//	    Updates map[string]any `json:"updates" validate:"required,min=1"`
//	}
//	err := validation.Validate(req)
package validation
