package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-cms/inkwell/pkg/auth"
	"github.com/inkwell-cms/inkwell/pkg/document"
	"github.com/inkwell-cms/inkwell/pkg/service"
	"github.com/inkwell-cms/inkwell/pkg/store"
)

func newUsersService(t *testing.T) *service.Service {
	t.Helper()
	col, err := store.NewMemory().Collection("users")
	require.NoError(t, err)
	svc := service.New(service.Config{Name: "users"}, col)

	res := svc.Create(context.Background(), document.Document{
		"id":    "1",
		"name":  "ed",
		"email": "ed@example.com",
		"role":  "admin",
		"token": "secret-token",
	}, nil)
	require.True(t, res.IsOK())
	return svc
}

func echoUser() (http.Handler, *[]*auth.User) {
	var seen []*auth.User
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, auth.FromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}), &seen
}

func TestAuthenticatorValidToken(t *testing.T) {
	handler, seen := echoUser()
	m := NewAuthenticator(newUsersService(t), false)

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	m.Handler(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, *seen, 1)
	user := (*seen)[0]
	require.NotNil(t, user)
	assert.Equal(t, "1", user.ID)
	assert.Equal(t, "ed@example.com", user.Email)
	assert.True(t, user.IsAdmin())
}

func TestAuthenticatorUnknownToken(t *testing.T) {
	handler, seen := echoUser()
	m := NewAuthenticator(newUsersService(t), true)

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	m.Handler(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code, "a present but invalid token is rejected even in optional mode")
	assert.Empty(t, *seen)
}

func TestAuthenticatorMissingHeader(t *testing.T) {
	t.Run("optional lets anonymous through", func(t *testing.T) {
		handler, seen := echoUser()
		m := NewAuthenticator(newUsersService(t), true)

		rec := httptest.NewRecorder()
		m.Handler(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, *seen, 1)
		assert.Nil(t, (*seen)[0])
	})

	t.Run("required rejects anonymous", func(t *testing.T) {
		handler, seen := echoUser()
		m := NewAuthenticator(newUsersService(t), false)

		rec := httptest.NewRecorder()
		m.Handler(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, *seen)
	})
}

func TestAuthenticatorBadHeaderFormat(t *testing.T) {
	handler, _ := echoUser()
	m := NewAuthenticator(newUsersService(t), true)

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	m.Handler(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResolveDefaultsRole(t *testing.T) {
	col, err := store.NewMemory().Collection("users")
	require.NoError(t, err)
	svc := service.New(service.Config{Name: "users"}, col)
	require.True(t, svc.Create(context.Background(), document.Document{
		"id":    "2",
		"email": "reader@example.com",
		"token": "reader-token",
	}, nil).IsOK())

	m := NewAuthenticator(svc, false)
	user, err := m.Resolve(context.Background(), "reader-token")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, user.Role)
	assert.False(t, user.IsAdmin())
}
