// Package drive maps folder and file operations onto the Google Drive v3
// API. A Session is built per request from a service-account bundle; the
// generic Accessor and its Folders and Files specializations run one
// operation each against that session.
package drive

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Sentinel errors for provider failures. Use errors.Is(err, drive.ErrNotFound)
// to check.
var (
	ErrNotAuthenticated = errors.New("drive: not authenticated")
	ErrBadRequest       = errors.New("drive: bad request")
	ErrUnauthorized     = errors.New("drive: unauthorized")
	ErrForbidden        = errors.New("drive: forbidden")
	ErrNotFound         = errors.New("drive: not found")
	ErrConflict         = errors.New("drive: conflict")
	ErrThrottled        = errors.New("drive: throttled")
	ErrServerError      = errors.New("drive: server error")
	ErrMalformedItem    = errors.New("drive: malformed item")
)

// DriveError wraps a sentinel with the HTTP status and message the provider
// returned.
type DriveError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is(); nil when unclassified
}

func (e *DriveError) Error() string {
	return fmt.Sprintf("drive: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *DriveError) Unwrap() error {
	return e.Err
}

// ItemError names the item kind and ID an operation concerned.
type ItemError struct {
	Kind string // "File" or "Folder"
	ID   string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("drive: %s %q: %v", e.Kind, e.ID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes with no sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// wrapAPIError converts a client-library error into a DriveError when the
// provider answered with an HTTP status. Transport errors pass through.
func wrapAPIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	msg := apiErr.Message
	if msg == "" {
		msg = apiErr.Body
	}

	return &DriveError{
		StatusCode: apiErr.Code,
		Message:    msg,
		Err:        classifyStatus(apiErr.Code),
	}
}

// itemErr wraps a provider error with the item it concerned.
func itemErr(kind, id string, err error) error {
	if err == nil {
		return nil
	}

	return &ItemError{Kind: kind, ID: id, Err: wrapAPIError(err)}
}
