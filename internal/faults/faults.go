// Package faults defines the error taxonomy shared by stages, adapters, and
// the retry layer. Every stage error carries one of the sentinel markers so
// callers can classify failures without string matching.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingInput marks a stage whose required upstream artifact is absent.
	ErrMissingInput = errors.New("missing input")
	// ErrTransient marks rate-limit or network failures. The retry layer
	// retries these; after exhaustion they surface as terminal.
	ErrTransient = errors.New("transient failure")
	// ErrPermanent marks auth or malformed-request failures. Never retried.
	ErrPermanent = errors.New("permanent failure")
	// ErrValidation marks a patch, index, or find-text that fails local
	// validation. The offending unit is dropped; the stage continues.
	ErrValidation = errors.New("validation error")
	// ErrIntegrity marks a declared output file that exists but is
	// unparseable. The stage is treated as never completed.
	ErrIntegrity = errors.New("integrity error")
)

// Wrap tags err with the given marker and a stage/operation prefix.
// A nil marker defaults to ErrTransient.
func Wrap(marker error, stage, operation string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	detail := buildDetail(stage, operation)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Transient reports whether err should be retried.
func Transient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func buildDetail(stage, operation string) string {
	parts := make([]string, 0, 2)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
