package tracker

import "errors"

// ErrPartNotFound indicates no record exists for the given part.
var ErrPartNotFound = errors.New("part not found in " + TableName)

// ErrChecksumMismatch indicates a part file changed after it was applied.
var ErrChecksumMismatch = errors.New("part checksum mismatch")

// ErrTableCreation indicates the tracking table could not be created.
var ErrTableCreation = errors.New("creating " + TableName + " table")
