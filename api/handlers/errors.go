package handlers

import "errors"

var (
	errMissingFields = errors.New("missing required fields")
	errInvalidStatus = errors.New("invalid status")
	errNotFound      = errors.New("not found")
)
