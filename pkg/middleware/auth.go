// Package middleware provides the HTTP authentication layer. Bearer tokens
// are resolved against the users service and the matching user is installed
// on the request context for the hook pipelines downstream.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/inkwell-cms/inkwell/pkg/auth"
	"github.com/inkwell-cms/inkwell/pkg/document"
	"github.com/inkwell-cms/inkwell/pkg/httputil"
	"github.com/inkwell-cms/inkwell/pkg/service"
)

// Authenticator resolves Authorization headers into authenticated users.
type Authenticator struct {
	users    *service.Service
	optional bool
}

// NewAuthenticator creates the authentication middleware. With optional set,
// requests without an Authorization header pass through anonymously; a
// present but invalid header is still rejected.
func NewAuthenticator(users *service.Service, optional bool) *Authenticator {
	return &Authenticator{users: users, optional: optional}
}

// Handler wraps an HTTP handler with bearer-token authentication.
func (m *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		user, err := m.Resolve(r.Context(), parts[1])
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid token")
			return
		}

		ctx := auth.WithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Resolve looks up the user holding the given token. The lookup runs as an
// internal call so the users service's own access guards do not apply to it.
func (m *Authenticator) Resolve(ctx context.Context, token string) (*auth.User, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token")
	}
	res := m.users.Find(auth.AsSystem(ctx), document.Query{"token": token}, nil)
	if !res.IsOK() {
		return nil, fmt.Errorf("token lookup failed: %s", res.ErrorMessage)
	}
	docs := res.Documents()
	if len(docs) != 1 {
		return nil, fmt.Errorf("unknown token")
	}
	return userFromDocument(docs[0]), nil
}

func userFromDocument(doc document.Document) *auth.User {
	user := &auth.User{ID: doc.ID(), Role: auth.RoleUser}
	if name, ok := doc["name"].(string); ok {
		user.Name = name
	}
	if email, ok := doc["email"].(string); ok {
		user.Email = email
	}
	if role, ok := doc["role"].(string); ok && role != "" {
		user.Role = auth.Role(role)
	}
	return user
}
