// Package errors defines the error taxonomy shared by the model gateway,
// the stores and the batch runner.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ConfigurationError reports that a request named a model that is missing,
// disabled or keyless in configuration. It is raised before any network
// activity and is never retried.
type ConfigurationError struct {
	Model  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("model %q not configured: %s", e.Model, e.Reason)
	}
	return fmt.Sprintf("model %q not configured", e.Model)
}

// NewConfigurationError builds a ConfigurationError for the given model.
func NewConfigurationError(model, reason string) *ConfigurationError {
	return &ConfigurationError{Model: model, Reason: reason}
}

// UpstreamHTTPError reports a non-2xx status line from the model provider.
// Content streamed before the status check is never involved; the status is
// inspected before the body is consumed.
type UpstreamHTTPError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamHTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("upstream returned HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("upstream returned HTTP %d", e.StatusCode)
}

// TransportError reports a connection-level failure (dial, TLS, reset,
// timeout). Retrying is a caller decision, not the gateway's.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// WrapTransport classifies err as a TransportError unless it already carries
// a more specific classification.
func WrapTransport(err error) error {
	if err == nil {
		return nil
	}
	var ce *ConfigurationError
	var ue *UpstreamHTTPError
	var te *TransportError
	if errors.As(err, &ce) || errors.As(err, &ue) || errors.As(err, &te) {
		return err
	}
	return &TransportError{Err: err}
}

// PersistenceError reports a failed durable write. All writes are
// whole-document replacements, so the previous on-disk state is the recovery
// point; no rollback is attempted.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError wraps a failed write against the path it targeted.
func NewPersistenceError(op, path string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Path: path, Err: err}
}

// IsNotConfigured reports whether err is a ConfigurationError.
func IsNotConfigured(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsUpstreamHTTP reports whether err is an UpstreamHTTPError, returning the
// status code when it is.
func IsUpstreamHTTP(err error) (int, bool) {
	var ue *UpstreamHTTPError
	if errors.As(err, &ue) {
		return ue.StatusCode, true
	}
	return 0, false
}

// IsTransport reports whether err is a connection-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
