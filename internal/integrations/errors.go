package integrations

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/url"
	"time"

	"github.com/jomei/notionapi"
	"google.golang.org/api/googleapi"
)

// Service prefixes for the error taxonomy.
const (
	ServiceNotion = "NOTION"
	ServiceSheets = "SHEETS"
)

const (
	// MaxPushAttempts bounds the orchestrator's retry loop (initial attempt
	// included).
	MaxPushAttempts = 3

	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 30 * time.Second
)

// IntegrationError is the closed error taxonomy surfaced to callers and the
// UI. It is constructed exclusively by Classify so codes, suggestions and
// retryability stay consistent across adapters.
type IntegrationError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Details     string   `json:"details,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Retryable   bool     `json:"retryable"`
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Classify maps a raw adapter failure onto the taxonomy. service is one of
// the Service* prefixes. Already-classified errors pass through unchanged;
// anything unrecognized falls back to a generic retryable classification
// (fail open toward retry rather than silently dropping the push).
func Classify(service string, err error) *IntegrationError {
	var ierr *IntegrationError
	if errors.As(err, &ierr) {
		return ierr
	}

	var notionErr *notionapi.Error
	if errors.As(err, &notionErr) {
		return classifyStatus(service, notionErr.Status, notionErr.Message)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(service, apiErr.Code, apiErr.Message)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &IntegrationError{
			Code:        "REQUEST_TIMEOUT",
			Message:     "The request to the destination timed out.",
			Details:     err.Error(),
			Suggestions: []string{"Check your network connection.", "Try the push again in a moment."},
			Retryable:   true,
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &IntegrationError{
			Code:        "REQUEST_TIMEOUT",
			Message:     "The request to the destination timed out.",
			Details:     err.Error(),
			Suggestions: []string{"Check your network connection.", "Try the push again in a moment."},
			Retryable:   true,
		}
	}

	var urlErr *url.Error
	var opErr *net.OpError
	if errors.As(err, &urlErr) || errors.As(err, &opErr) {
		return &IntegrationError{
			Code:        "NETWORK_ERROR",
			Message:     "Could not reach the destination service.",
			Details:     err.Error(),
			Suggestions: []string{"Check your network connection.", "The destination may be temporarily unavailable; retry shortly."},
			Retryable:   true,
		}
	}

	return &IntegrationError{
		Code:        "INTEGRATION_ERROR",
		Message:     "The push failed for an unexpected reason.",
		Details:     err.Error(),
		Suggestions: []string{"Try the push again.", "If the problem persists, reconnect the integration."},
		Retryable:   true,
	}
}

func classifyStatus(service string, status int, detail string) *IntegrationError {
	switch {
	case status == 400:
		return &IntegrationError{
			Code:    service + "_BAD_REQUEST",
			Message: "The destination rejected the request as malformed.",
			Details: detail,
			Suggestions: []string{
				"Check that the destination schema still matches your mapped fields.",
				"Remove or remap fields that no longer exist in the destination.",
			},
			Retryable: false,
		}
	case status == 401:
		return &IntegrationError{
			Code:    service + "_UNAUTHORIZED",
			Message: "The stored credential was rejected by the destination.",
			Details: detail,
			Suggestions: []string{
				"Reconnect the integration with a fresh API key or token.",
				"Check that the key has not been revoked in the destination's settings.",
			},
			Retryable: false,
		}
	case status == 403:
		return &IntegrationError{
			Code:    service + "_FORBIDDEN",
			Message: "The credential does not have access to the target resource.",
			Details: detail,
			Suggestions: []string{
				"Share the target database or spreadsheet with the connected integration.",
				"Check the credential's permission scopes.",
			},
			Retryable: false,
		}
	case status == 404:
		return &IntegrationError{
			Code:    service + "_NOT_FOUND",
			Message: "The target resource was not found.",
			Details: detail,
			Suggestions: []string{
				"Check the configured database or spreadsheet ID.",
				"The resource may have been deleted; reconfigure the integration.",
			},
			Retryable: false,
		}
	case status == 409:
		return &IntegrationError{
			Code:        service + "_CONFLICT",
			Message:     "The destination reported a conflicting concurrent change.",
			Details:     detail,
			Suggestions: []string{"Retry the push; conflicts are usually transient."},
			Retryable:   true,
		}
	case status == 429:
		return &IntegrationError{
			Code:        service + "_RATE_LIMITED",
			Message:     "The destination is rate limiting requests.",
			Details:     detail,
			Suggestions: []string{"Wait a moment and retry.", "Reduce the frequency of pushes to this destination."},
			Retryable:   true,
		}
	case status >= 500:
		return &IntegrationError{
			Code:        service + "_SERVER_ERROR",
			Message:     "The destination service reported an internal error.",
			Details:     detail,
			Suggestions: []string{"Retry the push.", "Check the destination's status page if failures persist."},
			Retryable:   true,
		}
	default:
		return &IntegrationError{
			Code:        service + "_UNKNOWN_ERROR",
			Message:     fmt.Sprintf("The destination returned an unexpected status (%d).", status),
			Details:     detail,
			Suggestions: []string{"Try the push again.", "If the problem persists, reconnect the integration."},
			Retryable:   true,
		}
	}
}

// RetryDelay returns the backoff before retry number attempt (0-based):
// exponential from 1s, capped at 30s, with up to 10% random jitter so
// concurrent pushes don't retry in lockstep.
func RetryDelay(attempt int) time.Duration {
	delay := baseRetryDelay << uint(attempt)
	if delay > maxRetryDelay || delay <= 0 {
		delay = maxRetryDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/10 + 1))
	return delay + jitter
}

// ShouldRetry reports whether a failed attempt (1-based count of attempts
// performed) warrants another try.
func ShouldRetry(err error, attempt int) bool {
	var ierr *IntegrationError
	if !errors.As(err, &ierr) {
		return false
	}
	return ierr.Retryable && attempt < MaxPushAttempts
}
