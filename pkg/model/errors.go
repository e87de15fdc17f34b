package model

import (
	"github.com/oneconcern/braid/pkg/errors"
)

// ErrValidation indicates a malformed record or a missing required field.
// Records failing validation are never auto-corrected.
var ErrValidation = errors.New("invalid record")
