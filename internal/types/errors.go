package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks. Each typed error below matches
// exactly one of these.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrBinaryFile          = errors.New("binary file")
	ErrMissingTimestamp    = errors.New("missing timestamp")
	ErrNoMatchingRule      = errors.New("no matching rule")
	ErrUnsupportedStrategy = errors.New("unsupported strategy")
	ErrHistoryNotFound     = errors.New("history entry not found")
)

// InvalidInputError is returned when a required argument is absent or malformed.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid input: %s is required", e.Field)
	}
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// BinaryFileError is returned when a document does not look like text.
type BinaryFileError struct {
	Source VersionLabel
	Reason string
}

func (e *BinaryFileError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("binary content detected: %s", e.Reason)
	}
	return fmt.Sprintf("binary content detected in %s: %s", e.Source, e.Reason)
}

func (e *BinaryFileError) Is(target error) bool { return target == ErrBinaryFile }

// MissingTimestampError is returned by the newest strategy when a side has no time.
type MissingTimestampError struct {
	ConflictID string
	Side       Side
}

func (e *MissingTimestampError) Error() string {
	return fmt.Sprintf("conflict %s: no %s timestamp for newest strategy", e.ConflictID, e.Side)
}

func (e *MissingTimestampError) Is(target error) bool { return target == ErrMissingTimestamp }

// NoMatchingRuleError is returned when no rule matched and no default is set.
type NoMatchingRuleError struct {
	ConflictID string
	Section    Section
}

func (e *NoMatchingRuleError) Error() string {
	return fmt.Sprintf("conflict %s: no rule matches section %q and no default side is configured", e.ConflictID, e.Section)
}

func (e *NoMatchingRuleError) Is(target error) bool { return target == ErrNoMatchingRule }

// UnsupportedStrategyError is returned for strategy names that are not known.
type UnsupportedStrategyError struct {
	Name string
}

func (e *UnsupportedStrategyError) Error() string {
	return fmt.Sprintf("unsupported strategy %q (valid: newest, local, remote, rules, manual)", e.Name)
}

func (e *UnsupportedStrategyError) Is(target error) bool { return target == ErrUnsupportedStrategy }

// HistoryNotFoundError is returned for unknown log IDs.
type HistoryNotFoundError struct {
	LogID string
}

func (e *HistoryNotFoundError) Error() string {
	return fmt.Sprintf("history entry %s not found", e.LogID)
}

func (e *HistoryNotFoundError) Is(target error) bool { return target == ErrHistoryNotFound }
