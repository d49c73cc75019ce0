package errors

import (
	"errors"
	"fmt"
)

// AdminUnauthorizedError indicates the gateway admin API rejected the
// configured admin key. It is permanent and aborts the run.
type AdminUnauthorizedError struct{}

func NewAdminUnauthorized() *AdminUnauthorizedError {
	return &AdminUnauthorizedError{}
}

func (e *AdminUnauthorizedError) Error() string {
	return "admin API rejected the configured admin key"
}

func IsAdminUnauthorizedError(err error) bool {
	var target *AdminUnauthorizedError
	return errors.As(err, &target)
}

// AdminAPIError carries a non-2xx response from the admin control plane.
// It is an application error, not a transport error, and is never retried.
type AdminAPIError struct {
	Status int
	Body   string
}

func NewAdminAPIError(status int, body string) *AdminAPIError {
	return &AdminAPIError{Status: status, Body: body}
}

func (e *AdminAPIError) Error() string {
	return fmt.Sprintf("admin API returned %d: %s", e.Status, e.Body)
}

func IsAdminAPIError(err error) bool {
	var target *AdminAPIError
	return errors.As(err, &target)
}

// RouteNotFoundError indicates the admin API has no route with the given id.
type RouteNotFoundError struct {
	RouteID string
}

func NewRouteNotFound(routeID string) *RouteNotFoundError {
	return &RouteNotFoundError{RouteID: routeID}
}

func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("route %q not found", e.RouteID)
}

func IsRouteNotFoundError(err error) bool {
	var target *RouteNotFoundError
	return errors.As(err, &target)
}

// CapabilityMissingError indicates the required gateway plugin never became
// available within the readiness budget.
type CapabilityMissingError struct {
	Plugin string
}

func NewCapabilityMissing(plugin string) *CapabilityMissingError {
	return &CapabilityMissingError{Plugin: plugin}
}

func (e *CapabilityMissingError) Error() string {
	return fmt.Sprintf("required gateway capability %q is not available", e.Plugin)
}

func IsCapabilityMissingError(err error) bool {
	var target *CapabilityMissingError
	return errors.As(err, &target)
}

// SpecInvalidError indicates a provider block is missing required fields.
// The provider (or the single model) is skipped; the run continues.
type SpecInvalidError struct {
	Provider string
	Model    string
	Reason   string
}

func NewSpecInvalid(provider, model, reason string) *SpecInvalidError {
	return &SpecInvalidError{Provider: provider, Model: model, Reason: reason}
}

func (e *SpecInvalidError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("invalid provider spec %s/%s: %s", e.Provider, e.Model, e.Reason)
	}
	return fmt.Sprintf("invalid provider spec %s: %s", e.Provider, e.Reason)
}

func IsSpecInvalidError(err error) bool {
	var target *SpecInvalidError
	return errors.As(err, &target)
}

// UpsertFailedError records a failed route upsert. It wraps the underlying
// admin API error so callers can still inspect the status code.
type UpsertFailedError struct {
	RouteID string
	URI     string
	Err     error
}

func NewUpsertFailed(routeID, uri string, err error) *UpsertFailedError {
	return &UpsertFailedError{RouteID: routeID, URI: uri, Err: err}
}

func (e *UpsertFailedError) Error() string {
	return fmt.Sprintf("upsert of route %s (%s) failed: %v", e.RouteID, e.URI, e.Err)
}

func (e *UpsertFailedError) Unwrap() error {
	return e.Err
}

func IsUpsertFailedError(err error) bool {
	var target *UpsertFailedError
	return errors.As(err, &target)
}
