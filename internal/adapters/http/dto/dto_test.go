package dto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotenest/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		c.Request.Header.Set("Content-Type", "application/json")
	}

	return c, w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	return resp
}

func TestHTTPStatusFromCode(t *testing.T) {
	tests := map[string]int{
		ErrorCodeNotFound:        http.StatusNotFound,
		ErrorCodeValidation:      http.StatusBadRequest,
		ErrorCodeBadRequest:      http.StatusBadRequest,
		ErrorCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
		ErrorCodeRateLimited:     http.StatusTooManyRequests,
		ErrorCodeTimeout:         http.StatusServiceUnavailable,
		ErrorCodeStore:           http.StatusInternalServerError,
		ErrorCodeInternal:        http.StatusInternalServerError,
		"SOMETHING_ELSE":         http.StatusInternalServerError,
	}

	for code, want := range tests {
		t.Run(code, func(t *testing.T) {
			assert.Equal(t, want, HTTPStatusFromCode(code))
		})
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
		wantDetails map[string]string
	}{
		{
			name:        "not found",
			err:         fmt.Errorf("get: %w", domain.NewNotFoundError(domain.EntityQuote, "q-1")),
			wantStatus:  http.StatusNotFound,
			wantCode:    ErrorCodeNotFound,
			wantMessage: `quote with id "q-1" not found`,
		},
		{
			name:        "validation with field",
			err:         domain.NewValidationError("text", "is required"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    ErrorCodeValidation,
			wantMessage: "validation failed for text: is required",
			wantDetails: map[string]string{"text": "is required"},
		},
		{
			name:        "store failure hides the cause",
			err:         domain.NewStoreError("find", errors.New("dial tcp 10.0.0.1:5432: refused")),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    ErrorCodeStore,
			wantMessage: MessageStore,
		},
		{
			name:        "deadline",
			err:         domain.NewStoreError("find", context.DeadlineExceeded),
			wantStatus:  http.StatusServiceUnavailable,
			wantCode:    ErrorCodeTimeout,
			wantMessage: MessageTimeout,
		},
		{
			name:        "body too large",
			err:         fmt.Errorf("%w: %w", ErrBinding, &http.MaxBytesError{Limit: 16}),
			wantStatus:  http.StatusRequestEntityTooLarge,
			wantCode:    ErrorCodeRequestTooLarge,
			wantMessage: "http: request body too large",
		},
		{
			name:        "unknown",
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    ErrorCodeInternal,
			wantMessage: MessageInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := FromError(tt.err)

			assert.Equal(t, tt.wantStatus, status)
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantMessage, resp.Error.Message)
			assert.Equal(t, tt.wantDetails, resp.Error.Details)
		})
	}

	status, resp := FromError(nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Nil(t, resp)
}

func TestGetTraceID(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*gin.Context)
		want  string
	}{
		{"context value", func(c *gin.Context) { c.Set("trace_id", "ctx-1") }, "ctx-1"},
		{"request id header", func(c *gin.Context) { c.Request.Header.Set("X-Request-ID", "hdr-2") }, "hdr-2"},
		{
			"context value wins over header",
			func(c *gin.Context) {
				c.Set("trace_id", "ctx-1")
				c.Request.Header.Set("X-Request-ID", "hdr-2")
			},
			"ctx-1",
		},
		{"wrong type", func(c *gin.Context) { c.Set("trace_id", 42) }, ""},
		{"nothing", func(*gin.Context) {}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext(http.MethodGet, "/", "")
			tt.setup(c)

			assert.Equal(t, tt.want, GetTraceID(c))
		})
	}
}

func TestHandleError(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/api/quotes/q-1", "")
	c.Set("trace_id", "trace-123")

	HandleError(c, domain.NewNotFoundError(domain.EntityQuote, "q-1"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.True(t, c.IsAborted())
	assert.Len(t, c.Errors, 1)

	resp := decodeError(t, w)
	assert.Equal(t, ErrorCodeNotFound, resp.Error.Code)
	assert.Equal(t, "trace-123", resp.TraceID)
}

func TestHandleBindError(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		c, w := newTestContext(http.MethodPost, "/api/quotes", `{"text":`)

		var req CreateQuoteRequest
		err := BindJSON(c, &req)
		require.ErrorIs(t, err, ErrBinding)

		HandleBindError(c, err)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, ErrorCodeBadRequest, resp.Error.Code)
		assert.Equal(t, MessageInvalidJSON, resp.Error.Message)
	})

	t.Run("oversized body", func(t *testing.T) {
		c, w := newTestContext(http.MethodPost, "/api/quotes", `{"text":"`+strings.Repeat("a", 64)+`"}`)
		c.Request.Body = http.MaxBytesReader(w, c.Request.Body, 16)

		var req CreateQuoteRequest
		HandleBindError(c, BindJSON(c, &req))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, ErrorCodeRequestTooLarge, decodeError(t, w).Error.Code)
	})
}

func TestAbortWithCode(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/api/quotes", "")

	AbortWithCode(c, ErrorCodeRateLimited, "too many requests")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, ErrorCodeRateLimited, decodeError(t, w).Error.Code)
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		page, limit string
		want        domain.PageRequest
	}{
		{"", "", domain.PageRequest{Page: 1, Limit: 10}},
		{"2", "5", domain.PageRequest{Page: 2, Limit: 5}},
		{" 3 ", "25", domain.PageRequest{Page: 3, Limit: 25}},
		{"0", "-4", domain.PageRequest{Page: 1, Limit: 10}},
		{"abc", "1.5", domain.PageRequest{Page: 1, Limit: 10}},
		{"2abc", "0x10", domain.PageRequest{Page: 1, Limit: 10}},
		{"99", "100000", domain.PageRequest{Page: 99, Limit: 100000}},
		{"99999999999999999999999", "7", domain.PageRequest{Page: 1, Limit: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.page+"/"+tt.limit, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePagination(tt.page, tt.limit))
			assert.Equal(t, tt.want, PageQuery{Page: tt.page, Limit: tt.limit}.PageRequest())
		})
	}
}

func TestNewQuotePageResponse(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	page := domain.NewPage([]domain.Quote{
		{ID: "q-2", Text: "Second", Author: "B", CreatedAt: created, UpdatedAt: created},
		{ID: "q-1", Text: "First", Author: "A", Source: "Book", Tags: []string{"life"}, Favorite: true},
	}, domain.PageRequest{Page: 2, Limit: 2}, 4)

	resp := NewQuotePageResponse(page)

	assert.Equal(t, 2, resp.CurrentPage)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Equal(t, int64(4), resp.TotalItems)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "q-2", resp.Items[0].ID)
	assert.Equal(t, []string{}, resp.Items[0].Tags)
	assert.Equal(t, []string{"life"}, resp.Items[1].Tags)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"items": [
			{"id":"q-2","text":"Second","author":"B","tags":[],"favorite":false,
			 "createdAt":"2025-03-01T12:00:00Z","updatedAt":"2025-03-01T12:00:00Z"},
			{"id":"q-1","text":"First","author":"A","source":"Book","tags":["life"],"favorite":true,
			 "createdAt":"0001-01-01T00:00:00Z","updatedAt":"0001-01-01T00:00:00Z"}
		],
		"currentPage": 2,
		"totalPages": 2,
		"totalItems": 4
	}`, string(raw))
}

func TestNewQuotePageResponse_EmptyItemsIsArray(t *testing.T) {
	raw, err := json.Marshal(NewQuotePageResponse(domain.NewPage[domain.Quote](nil, domain.PageRequest{Page: 99, Limit: 10}, 3)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"currentPage":99,"totalPages":1,"totalItems":3}`, string(raw))
}

func TestCreateQuoteRequest_ToInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		want domain.QuoteInput
	}{
		{
			name: "canonical names",
			body: `{"text":"Be.","author":"Ann","source":"Notes","tags":["a"],"favorite":true}`,
			want: domain.QuoteInput{Text: "Be.", Author: "Ann", Source: "Notes", Tags: []string{"a"}, Favorite: true},
		},
		{
			name: "legacy names",
			body: `{"quote":"Be.","author":"Ann","book":"Notes"}`,
			want: domain.QuoteInput{Text: "Be.", Author: "Ann", Source: "Notes"},
		},
		{
			name: "canonical wins",
			body: `{"text":"New","quote":"Old","author":"Ann","source":"S","book":"B"}`,
			want: domain.QuoteInput{Text: "New", Author: "Ann", Source: "S"},
		},
		{
			name: "blank canonical falls back to alias",
			body: `{"text":"  ","quote":"Old","author":"Ann"}`,
			want: domain.QuoteInput{Text: "Old", Author: "Ann"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req CreateQuoteRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			assert.Equal(t, tt.want, req.ToInput())
		})
	}
}

func TestUpdateQuoteRequest_ToPatch(t *testing.T) {
	var req UpdateQuoteRequest
	require.NoError(t, json.Unmarshal([]byte(`{"quote":"Old","text":"New","book":"B","tags":null,"favorite":false}`), &req))

	patch := req.ToPatch()

	require.NotNil(t, patch.Text)
	assert.Equal(t, "New", *patch.Text)
	require.NotNil(t, patch.Source)
	assert.Equal(t, "B", *patch.Source)
	assert.Nil(t, patch.Author)
	assert.Nil(t, patch.Tags)
	require.NotNil(t, patch.Favorite)
	assert.False(t, *patch.Favorite)
}

func ptr[T any](v T) *T { return &v }

func TestUpdateQuoteRequest_ToPatch_Aliases(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantText   *string
		wantSource *string
	}{
		{"blank canonical falls back to alias", `{"text":"","quote":"Kept","source":" ","book":"Walden"}`, ptr("Kept"), ptr("Walden")},
		{"alias alone", `{"quote":"Only alias"}`, ptr("Only alias"), nil},
		{"blank canonical without alias is still sent", `{"text":"  "}`, ptr("  "), nil},
		{"neither", `{"author":"A"}`, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req UpdateQuoteRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			patch := req.ToPatch()

			assert.Equal(t, tt.wantText, patch.Text)
			assert.Equal(t, tt.wantSource, patch.Source)
		})
	}
}

func TestBindQueryAndValidate_Search(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c, _ := newTestContext(http.MethodGet, "/api/quotes/search?q=life&page=2&limit=x", "")

		var q SearchQuery
		require.NoError(t, BindQueryAndValidate(c, &q))

		assert.Equal(t, "life", q.Q)
		assert.Equal(t, domain.PageRequest{Page: 2, Limit: 10}, q.PageRequest())
	})

	for _, target := range []string{"/api/quotes/search", "/api/quotes/search?q=%20%20"} {
		t.Run("blank "+target, func(t *testing.T) {
			c, w := newTestContext(http.MethodGet, target, "")

			var q SearchQuery
			err := BindQueryAndValidate(c, &q)
			require.ErrorIs(t, err, ErrValidation)
			assert.True(t, IsValidationError(err))

			HandleValidationErrors(c, err)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, ErrorCodeValidation, resp.Error.Code)
			assert.Equal(t, map[string]string{"q": "must not be empty"}, resp.Error.Details)
		})
	}
}

func TestValidationMessage(t *testing.T) {
	type sample struct {
		Name  string `json:"name" validate:"min=3"`
		Count int    `json:"count" validate:"max=2"`
		Kind  string `json:"kind" validate:"oneof=a b"`
		Other string `json:"other" validate:"alpha"`
	}

	err := Validate(sample{Name: "ab", Count: 5, Kind: "c", Other: "1"})
	require.Error(t, err)

	assert.Equal(t, map[string]string{
		"name":  "must be at least 3 characters",
		"count": "must be at most 2",
		"kind":  "must be one of: a b",
		"other": "failed validation: alpha",
	}, ValidationErrors(err))
}

func TestValidationErrors_NonValidatorError(t *testing.T) {
	assert.Empty(t, ValidationErrors(errors.New("plain")))
	assert.False(t, IsValidationError(errors.New("plain")))
}
