package integrations

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestClassifyNotionStatuses(t *testing.T) {
	tests := []struct {
		status    int
		wantCode  string
		retryable bool
	}{
		{400, "NOTION_BAD_REQUEST", false},
		{401, "NOTION_UNAUTHORIZED", false},
		{403, "NOTION_FORBIDDEN", false},
		{404, "NOTION_NOT_FOUND", false},
		{409, "NOTION_CONFLICT", true},
		{429, "NOTION_RATE_LIMITED", true},
		{500, "NOTION_SERVER_ERROR", true},
		{503, "NOTION_SERVER_ERROR", true},
		{418, "NOTION_UNKNOWN_ERROR", true},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			raw := &notionapi.Error{Status: tt.status, Message: "boom"}
			ierr := Classify(ServiceNotion, raw)

			assert.Equal(t, tt.wantCode, ierr.Code)
			assert.Equal(t, tt.retryable, ierr.Retryable)
			assert.NotEmpty(t, ierr.Suggestions, "every classification carries suggestions")
		})
	}
}

func TestClassifyGoogleAPIError(t *testing.T) {
	ierr := Classify(ServiceSheets, &googleapi.Error{Code: 429, Message: "rate limit"})
	assert.Equal(t, "SHEETS_RATE_LIMITED", ierr.Code)
	assert.True(t, ierr.Retryable)

	ierr = Classify(ServiceSheets, &googleapi.Error{Code: 401, Message: "invalid_grant"})
	assert.Equal(t, "SHEETS_UNAUTHORIZED", ierr.Code)
	assert.False(t, ierr.Retryable)
}

func TestClassifyNetworkAndTimeout(t *testing.T) {
	ierr := Classify(ServiceNotion, &url.Error{Op: "Post", URL: "https://api.notion.com", Err: errors.New("connection refused")})
	assert.Equal(t, "NETWORK_ERROR", ierr.Code)
	assert.True(t, ierr.Retryable)

	ierr = Classify(ServiceNotion, fmt.Errorf("fetch schema: %w", context.DeadlineExceeded))
	assert.Equal(t, "REQUEST_TIMEOUT", ierr.Code)
	assert.True(t, ierr.Retryable)
}

func TestClassifyUnknownFallsOpen(t *testing.T) {
	ierr := Classify(ServiceSheets, errors.New("something odd"))
	assert.Equal(t, "INTEGRATION_ERROR", ierr.Code)
	assert.True(t, ierr.Retryable, "unrecognized failures fail open toward retry")
}

func TestClassifyPassesThroughClassifiedErrors(t *testing.T) {
	original := Classify(ServiceNotion, &notionapi.Error{Status: 401})
	again := Classify(ServiceNotion, fmt.Errorf("wrapped: %w", original))
	assert.Same(t, original, again)
}

func TestRetryDelayMonotonicAndCapped(t *testing.T) {
	d0 := RetryDelay(0)
	d1 := RetryDelay(1)
	d2 := RetryDelay(2)

	require.Less(t, d0, d1)
	require.Less(t, d1, d2)

	// Base delays 1s/2s/4s, each plus at most 10% jitter.
	assert.GreaterOrEqual(t, d0, 1*time.Second)
	assert.LessOrEqual(t, d0, 1100*time.Millisecond)

	for attempt := 0; attempt < 20; attempt++ {
		assert.LessOrEqual(t, RetryDelay(attempt), 33*time.Second)
	}
}

func TestShouldRetry(t *testing.T) {
	retryable := Classify(ServiceNotion, &notionapi.Error{Status: 429})
	terminal := Classify(ServiceNotion, &notionapi.Error{Status: 401})

	assert.True(t, ShouldRetry(retryable, 1))
	assert.True(t, ShouldRetry(retryable, 2))
	assert.False(t, ShouldRetry(retryable, 3), "bounded at three attempts")
	assert.False(t, ShouldRetry(terminal, 1))
	assert.False(t, ShouldRetry(errors.New("raw"), 1))
}
