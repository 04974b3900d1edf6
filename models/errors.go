package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownIdentifier = errors.New("unknown identifier configuration")
	ErrMissingExchange   = errors.New("missing exchange rate")
	ErrEmptyPool         = errors.New("reference pool is empty")
	ErrUnknownCountry    = errors.New("unknown country code")
)

// ConfigurationError is fatal: missing or invalid generation parameters, or a
// missing exchange rate. It aborts the whole run.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error (%s): %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func NewConfigurationError(field string, reason string, err error) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason, Err: err}
}

func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ReferentialIntegrityError fails one table stage because a pool it draws
// foreign keys from is empty. Sibling stages keep running.
type ReferentialIntegrityError struct {
	Table     TableKey
	Reference TableKey
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s: %v (%s)", e.Table, ErrEmptyPool, e.Reference)
}

func (e *ReferentialIntegrityError) Unwrap() error { return ErrEmptyPool }

// DataQualityWarning describes one record that was dropped or flagged.
type DataQualityWarning struct {
	Table    TableKey
	RecordId string
	Reason   string
}

func (w DataQualityWarning) Error() string {
	return fmt.Sprintf("%s %s: %s", w.Table, w.RecordId, w.Reason)
}

// ReconciliationMismatch is a check whose value exceeded its tolerance.
type ReconciliationMismatch struct {
	Check     string
	Status    CheckStatus
	Value     decimal.Decimal
	Tolerance decimal.Decimal
}

func (m ReconciliationMismatch) Error() string {
	return fmt.Sprintf("%s %s: value %s exceeds tolerance %s", m.Check, m.Status, m.Value.String(), m.Tolerance.String())
}
