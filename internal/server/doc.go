// Package server implements the HTTP surface of docgate: the middleware
// stack, the health and metrics endpoints, and the listener lifecycle used
// by the backend binary and tests.
package server
