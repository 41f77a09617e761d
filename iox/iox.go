// Package iox provides I/O helpers for resource cleanup.
package iox

import (
	"io"
	"sync"
)

// DiscardClose closes c and discards the error.
// Use in defer statements where close errors are unactionable:
//
//	defer iox.DiscardClose(f)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c, for t.Cleanup:
//
//	t.Cleanup(iox.CloseFunc(client))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// DiscardErr calls fn and discards the returned error.
func DiscardErr(fn func() error) { _ = fn() }

// OnceCloser runs a close function at most once. Later calls return the
// first call's error without running fn again.
type OnceCloser struct {
	once sync.Once
	fn   func() error
	err  error
}

// NewOnceCloser wraps fn.
func NewOnceCloser(fn func() error) *OnceCloser {
	return &OnceCloser{fn: fn}
}

// Close implements io.Closer.
func (o *OnceCloser) Close() error {
	o.once.Do(func() {
		if o.fn != nil {
			o.err = o.fn()
		}
	})
	return o.err
}

// CloseAll closes every closer in reverse order and returns the first error.
func CloseAll(closers ...io.Closer) error {
	var first error
	for i := len(closers) - 1; i >= 0; i-- {
		if closers[i] == nil {
			continue
		}
		if err := closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
