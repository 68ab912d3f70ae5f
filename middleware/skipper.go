// Package middleware provides built-in middleware for teleroute.
package middleware

import "github.com/teleroute/teleroute"

// Skipper defines a function to skip middleware.
// Returning true skips the middleware and calls the next handler directly.
type Skipper func(c teleroute.Context) bool

// DefaultSkipper never skips: all updates pass through the middleware.
func DefaultSkipper(_ teleroute.Context) bool { return false }
