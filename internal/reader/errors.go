package reader

import "errors"

// ErrNoCurrentFile indicates a read was attempted without a selected file.
// This is a caller bug, not a runtime condition to retry.
var ErrNoCurrentFile = errors.New("no current file is selected")
