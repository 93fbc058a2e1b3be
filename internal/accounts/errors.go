package accounts

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrNoCredentials   = errors.New("no stored credentials for account")
)

// FieldError names one request field that failed a rule
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError lists every invalid field of a connect request
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s (%s)", f.Field, f.Rule))
	}
	return "invalid connect request: " + strings.Join(parts, ", ")
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
