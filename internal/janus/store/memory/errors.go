package memory

import "errors"

// ErrInjected is returned by SaveBatch while Store.FailSaves is positive.
var ErrInjected = errors.New("memory store: injected save failure")
