// Package validation holds input limits shared by the engines and a small
// accumulator that turns the first failed check into an
// apperr.ValidationError.
//
//	err := validation.New().
//		Required("titulo", in.Title).
//		MaxLength("titulo", in.Title, validation.MaxTitleLength).
//		Err()
package validation
