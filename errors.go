package buckets

import "errors"

var (
	// ErrParse is returned when an input cannot be read as a matrix, a pair
	// list or an assignment (shape, duplicated symbols, non numeric cells).
	ErrParse = errors.New("parse error")

	// ErrData is returned when a well formed input carries invalid values
	// (missing cells, out of range or asymmetric correlations).
	ErrData = errors.New("data error")

	// ErrConfig is returned for invalid search parameters, before any search begins.
	ErrConfig = errors.New("configuration error")

	// ErrValidation is returned when a partition or a universe is inconsistent
	// with the matrix: unknown, duplicated or missing instruments.
	ErrValidation = errors.New("validation error")
)
