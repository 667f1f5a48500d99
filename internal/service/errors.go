package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/iliyamo/tutoring-sessions/internal/repository"
)

// Error kinds surfaced to callers.  Handlers map them to HTTP status
// codes with errors.Is; everything else is an internal failure.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidState      = errors.New("invalid state")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrValidation        = errors.New("validation failed")
)

// InsufficientFundsError is returned by join when the wallet cannot cover
// the scheduled minutes.
type InsufficientFundsError struct {
	Required  int `json:"required"`
	Balance   int `json:"balance"`
	Shortfall int `json:"shortfall"`
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: %d minutes required, %d available, short by %d",
		e.Required, e.Balance, e.Shortfall)
}

func (e *InsufficientFundsError) Is(target error) bool { return target == ErrInsufficientFunds }

func insufficient(required, balance int) *InsufficientFundsError {
	return &InsufficientFundsError{Required: required, Balance: balance, Shortfall: required - balance}
}

// ValidationError carries one message per offending field.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// orNil returns e when at least one field failed.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func invalid(field, msg string) error {
	v := &ValidationError{}
	v.add(field, msg)
	return v
}

// lookup translates a repository lookup failure into the service error
// taxonomy.
func lookup(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return errors.Wrap(ErrNotFound, what)
	}
	return errors.Wrap(err, "load "+what)
}
