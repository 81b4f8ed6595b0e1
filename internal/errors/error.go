// Package errors provides the sentinel errors of the catalog.
package errors

import "errors"

// ErrProductNotFound is returned when no product exists with the requested id.
var ErrProductNotFound = errors.New("product not found")
