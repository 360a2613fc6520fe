package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		expectError bool
	}{
		{
			name:        "valid JSON",
			body:        `{"name": "test"}`,
			expectError: false,
		},
		{
			name:        "invalid JSON",
			body:        `{invalid}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(tt.body))
			var dest map[string]string

			err := ParseJSON(req, &dest)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "test", dest["name"])
			}
		})
	}
}

func TestParseJSONOrError(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(`nope`))
	var dest map[string]string

	assert.False(t, ParseJSONOrError(w, req, &dest))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParsePathInt64(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int64
		wantErr bool
	}{
		{"valid", "42", 42, false},
		{"zero", "0", 0, true},
		{"negative", "-3", 0, true},
		{"not a number", "abc", 0, true},
		{"missing", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/posts/x", nil)
			if tt.value != "" {
				req = mux.SetURLVars(req, map[string]string{"id": tt.value})
			}

			got, err := ParsePathInt64(req, "id")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePathInt64OrError(t *testing.T) {
	w := httptest.NewRecorder()
	req := mux.SetURLVars(httptest.NewRequest("GET", "/posts/x", nil), map[string]string{"id": "x"})

	_, ok := ParsePathInt64OrError(w, req, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/posts?page=2&bad=x", nil)

	v, err := ParseQueryInt(req, "page", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	v, err = ParseQueryInt(req, "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = ParseQueryInt(req, "bad", 0)
	assert.Error(t, err)
}

func TestParsePage(t *testing.T) {
	page, err := ParsePage(httptest.NewRequest("GET", "/posts", nil))
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)

	page, err = ParsePage(httptest.NewRequest("GET", "/posts?page=3&limit=25", nil))
	require.NoError(t, err)
	assert.Equal(t, 50, page.Offset())

	w := httptest.NewRecorder()
	_, ok := ParsePageOrError(w, httptest.NewRequest("GET", "/posts?limit=500", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
