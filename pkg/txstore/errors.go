package txstore

import "errors"

// ErrInputUnavailable indicates the transaction source could not be opened
// or read. It is the only parse condition reported as an error.
var ErrInputUnavailable = errors.New("transaction input unavailable")
