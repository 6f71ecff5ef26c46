package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/upb/taskhub/internal/rbac"
	"github.com/upb/taskhub/middleware"
)

// newRequest builds a request carrying user and chi URL params
func newRequest(method, target, body string, user *rbac.User, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	ctx := req.Context()
	if user != nil {
		ctx = middleware.WithUser(ctx, user)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

// decodeData decodes the data envelope of a success response
func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", response)
	return data
}

func adminUser() *rbac.User {
	return &rbac.User{ID: "7d9f8a1e-2b1c-4c62-9a53-3c1f1e0f9a01", Email: "ada@example.com", Name: "Ada", Role: "ADMIN"}
}

func memberUser() *rbac.User {
	return &rbac.User{ID: "c3a6f0f4-8c7e-4a1e-9d0b-6b2e4c5d7f02", Email: "max@example.com", Name: "Max", Role: "member"}
}
