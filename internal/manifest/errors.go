package manifest

import (
	"errors"

	"github.com/quantmind-br/gitripper/internal/domain"
)

// Sentinel errors for the manifest package
var (
	// ErrNoTargets indicates the list has no targets
	ErrNoTargets = domain.ErrNoTargets

	// ErrEmptyTarget indicates a blank entry in a structured manifest
	ErrEmptyTarget = errors.New("target cannot be empty")

	// ErrInvalidFormat indicates the manifest file is not valid YAML or JSON
	ErrInvalidFormat = errors.New("manifest must be valid YAML or JSON")

	// ErrFileNotFound indicates the manifest file does not exist
	ErrFileNotFound = errors.New("target list not found")
)
