package executor

import "errors"

// ErrNoParts indicates the parts directory held no part files.
var ErrNoParts = errors.New("no part files found")
