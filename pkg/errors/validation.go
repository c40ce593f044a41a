package errors

import (
	"strings"
	"unicode"
)

// ValidateID validates a node or edge identifier.
// It rejects ids that could break wire encoding or DOM attribute usage.
//
// The validation rules are intentionally conservative:
//   - No empty ids
//   - No control characters or null bytes
//   - Maximum length of 256 characters
//
// Whether an id actually exists in the graph is a separate question the
// store answers with warnings, not errors (ids race with deletions).
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "id cannot be empty")
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidInput, "id too long (max 256 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "id contains control characters")
		}
	}

	if strings.Contains(id, "\x00") {
		return New(ErrCodeInvalidInput, "id contains null byte")
	}

	return nil
}

// ValidateConnection validates the endpoint ids of a connection
// descriptor. Handle ids are optional and validated only when present.
func ValidateConnection(source, target, sourceHandle, targetHandle string) error {
	if err := ValidateID(source); err != nil {
		return Wrap(ErrCodeInvalidConnection, err, "invalid source")
	}
	if err := ValidateID(target); err != nil {
		return Wrap(ErrCodeInvalidConnection, err, "invalid target")
	}
	if sourceHandle != "" {
		if err := ValidateID(sourceHandle); err != nil {
			return Wrap(ErrCodeInvalidConnection, err, "invalid source handle")
		}
	}
	if targetHandle != "" {
		if err := ValidateID(targetHandle); err != nil {
			return Wrap(ErrCodeInvalidConnection, err, "invalid target handle")
		}
	}
	return nil
}
