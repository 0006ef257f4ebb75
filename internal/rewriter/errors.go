package rewriter

import "errors"

// ErrUnknownKind indicates a statement kind name that no rule handles.
var ErrUnknownKind = errors.New("unknown statement kind")
