package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/articles-api/internal/model"
)

// echoIdentity writes the caller's id so tests can see what RequireAuth stored.
var echoIdentity = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	_, _ = w.Write([]byte(id.ID))
})

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Status int    `json:"status"`
		Error  string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, rec.Code, body.Status)
	return body.Error
}

func TestRequireAuth_TokenSources(t *testing.T) {
	ts := newTestTokenService(t)
	token, err := ts.Generate(alice)
	require.NoError(t, err)

	cases := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }},
		{"lowercase scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer "+token) }},
		{"token header", func(r *http.Request) { r.Header.Set(TokenHeader, token) }},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookie, Value: token}) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/articles", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()

			RequireAuth(ts)(echoIdentity).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, alice.ID, rec.Body.String())
		})
	}
}

func TestRequireAuth_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	expired, err := ts.GenerateWithDuration(alice, -time.Minute)
	require.NoError(t, err)

	cases := []struct {
		name    string
		header  string
		wantMsg string
	}{
		{"missing", "", "Token is not provided"},
		{"garbage", "Bearer nope", "Invalid token"},
		{"expired", "Bearer " + expired, "Token has expired"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/articles", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			RequireAuth(ts)(echoIdentity).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tc.wantMsg, decodeError(t, rec))
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	admin := model.Identity{ID: "admin-1", IsAdmin: true}

	t.Run("admin passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/flags", nil)
		req = req.WithContext(WithIdentity(req.Context(), admin))
		rec := httptest.NewRecorder()

		RequireAdmin(echoIdentity).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, admin.ID, rec.Body.String())
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/flags", nil)
		req = req.WithContext(WithIdentity(req.Context(), alice))
		rec := httptest.NewRecorder()

		RequireAdmin(echoIdentity).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Not Authorized", decodeError(t, rec))
	})

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireAdmin(echoIdentity).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/flags", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
