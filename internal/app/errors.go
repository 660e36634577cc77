package service

import "errors"

// ErrNotStarted is returned by Load before Start.
var ErrNotStarted = errors.New("ingest service not started")
