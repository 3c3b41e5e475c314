package scraper

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedStatus is wrapped into a TransportError whenever the
	// upstream answers with a non-2xx status code.
	ErrUnexpectedStatus = errors.New("unexpected response status")
	// ErrNothingFetched is returned by a fetch pass that produced no usable
	// payload from any of its endpoints.
	ErrNothingFetched = errors.New("no data fetched from any source")
)

// TransportError is a network-level failure: connection error, timeout or a
// non-2xx status. The Runner retries jobs that fail with it.
type TransportError struct {
	URL        string
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error: %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport error: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError is a record-level extraction failure. Parsers log it and skip the
// offending record; it never aborts a whole parse pass on its own.
type ParseError struct {
	Source string // which feed/page/series produced the bad record
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error from %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError is a transactional failure during upsert. The whole job's
// writes have been rolled back when it surfaces.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
