package biz

import (
	stderrors "errors"

	"github.com/go-kratos/kratos/v2/errors"

	"replybot/internal/pkg/hash"
)

var (
	// ErrInvalidImage is returned when image bytes cannot be decoded or are excluded from hashing.
	ErrInvalidImage = errors.BadRequest("INVALID_IMAGE", "image cannot be decoded or is animated")
	// ErrInvalidCategory is returned for an empty image category.
	ErrInvalidCategory = errors.BadRequest("INVALID_CATEGORY", "image category must not be empty")
	// ErrAlgorithmMismatch is returned when hashes of different algorithms are compared.
	ErrAlgorithmMismatch = errors.InternalServer("ALGORITHM_MISMATCH", "hash algorithm mismatch")
	// ErrStorageUnavailable is returned when the rule store or a hash index cannot be reached.
	ErrStorageUnavailable = errors.ServiceUnavailable("STORAGE_UNAVAILABLE", "storage unavailable")
	// ErrOCRFailure wraps a failed text extraction.
	ErrOCRFailure = errors.ServiceUnavailable("OCR_FAILURE", "text extraction failed")
	// ErrInvalidRule is returned when a rule cannot be created as given.
	ErrInvalidRule = errors.BadRequest("INVALID_RULE", "invalid rule")
	// ErrRuleNotFound is returned when no rule has the requested id.
	ErrRuleNotFound = errors.NotFound("RULE_NOT_FOUND", "rule not found")
)

func storageError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return ErrStorageUnavailable.WithCause(err)
}

// indexError maps a HashIndex failure to its typed error.
func indexError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, hash.ErrAlgorithmMismatch):
		return ErrAlgorithmMismatch.WithCause(err)
	default:
		return storageError(err)
	}
}

var (
	errNotLoaded   = stderrors.New("rule cache has not been loaded")
	errUnknownType = stderrors.New("unknown rule type")
	errAnimated    = stderrors.New("animated images are not hashed")
	errTooLong     = stderrors.New("pattern and reply are limited to 1024 characters")
)
