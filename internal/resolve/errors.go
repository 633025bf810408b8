// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/pdiddy/citeflow/internal/citation"
)

// Category classifies a resolver failure for users.
type Category string

const (
	CategoryTimeout    Category = "timeout"
	CategoryConnection Category = "connection"
	CategoryServer     Category = "server"
	CategoryUnknown    Category = "unknown"
)

// Keys of an error fragment's error mapping.
const (
	CategoryKey = "category"
	MessageKey  = "message"
)

// statusError is satisfied by errors carrying an HTTP status, such as
// httputil.StatusError.
type statusError interface {
	error
	HTTPStatus() int
}

// PanicError wraps a value recovered from a panicking resolver.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("resolver panicked: %v", e.Value)
}

// Categorize maps a resolver error to a category and a user-facing message.
func Categorize(err error) (Category, string) {
	var (
		status statusError
		netErr net.Error
		dnsErr *net.DNSError
		opErr  *net.OpError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout, "The server did not respond"
	case errors.As(err, &netErr) && netErr.Timeout():
		return CategoryTimeout, "The server did not respond"
	case errors.As(err, &status):
		return CategoryServer, status.Error()
	case errors.As(err, &dnsErr):
		return CategoryConnection, "The server could not be found"
	case errors.As(err, &opErr), errors.Is(err, syscall.ECONNREFUSED):
		return CategoryConnection, "The server could not be reached"
	default:
		return CategoryUnknown, "An unexpected error occurred"
	}
}

// ResolverError describes one error fragment.
type ResolverError struct {
	Plugin   string
	Whence   string
	Category Category
	Message  string
}

func (e ResolverError) String() string {
	name := e.Plugin
	if e.Whence != "" {
		name += " (" + e.Whence + ")"
	}
	return fmt.Sprintf("%s: %s: %s", name, e.Category, e.Message)
}

// Errors scans fragments for error fragments.
func Errors(fragments []citation.Citation) []ResolverError {
	var out []ResolverError
	for _, frag := range fragments {
		if !citation.IsError(frag) {
			continue
		}
		e := ResolverError{
			Plugin: citation.Plugin(frag),
			Whence: citation.Whence(frag),
		}
		if v, ok := citation.Lookup(frag, citation.ErrorField+"/"+CategoryKey); ok {
			s, _ := v.Str()
			e.Category = Category(s)
		}
		if v, ok := citation.Lookup(frag, citation.ErrorField+"/"+MessageKey); ok {
			e.Message, _ = v.Str()
		}
		out = append(out, e)
	}
	return out
}
