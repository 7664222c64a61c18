package blog

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-cms/inkwell/pkg/auth"
	"github.com/inkwell-cms/inkwell/pkg/document"
	"github.com/inkwell-cms/inkwell/pkg/service"
	"github.com/inkwell-cms/inkwell/pkg/store"
)

func newTestPlatform(t *testing.T) *Platform {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	p, err := NewPlatform(context.Background(), Config{
		Store:  store.NewMemory(),
		Logger: log,
	})
	require.NoError(t, err)
	return p
}

func adminCtx() context.Context {
	return auth.WithUser(context.Background(), &auth.User{ID: "100", Name: "ed", Role: auth.RoleAdmin})
}

func TestPostCreateDefaults(t *testing.T) {
	p := newTestPlatform(t)

	res := p.Posts.Create(adminCtx(), document.Document{"title": "Hello World"}, nil)
	require.True(t, res.IsOK(), res.ErrorMessage)

	post := res.Document()
	assert.Equal(t, "0", post.ID())
	assert.Equal(t, "standard", post["format"])
	assert.Equal(t, "publish", post["status"])
	assert.Equal(t, "post", post["type"])
	assert.Equal(t, []any{}, post["tags"])
	assert.Equal(t, "hello-world", post["slug"])
	assert.Equal(t, "100", post["author"], "post is associated with its creator")
}

func TestPostExplicitFieldsWin(t *testing.T) {
	p := newTestPlatform(t)

	res := p.Posts.Create(adminCtx(), document.Document{
		"title":  "Draft",
		"status": "draft",
		"slug":   "custom-slug",
	}, nil)
	require.True(t, res.IsOK())
	assert.Equal(t, "draft", res.Document()["status"])
	assert.Equal(t, "custom-slug", res.Document()["slug"])
}

func TestPostValidation(t *testing.T) {
	p := newTestPlatform(t)

	res := p.Posts.Create(adminCtx(), document.Document{"content": "no title"}, nil)
	assert.Equal(t, service.StatusError, res.Code)
	assert.Contains(t, res.ErrorMessage, "title is required")
}

func TestMutationsRequireAdmin(t *testing.T) {
	p := newTestPlatform(t)
	userCtx := auth.WithUser(context.Background(), &auth.User{ID: "7", Role: auth.RoleUser})

	for _, svc := range []*service.Service{p.Posts, p.Tags, p.Headlines, p.Options} {
		t.Run(svc.Name(), func(t *testing.T) {
			anon := svc.Create(context.Background(), document.Document{"title": "t", "name": "n"}, nil)
			assert.Equal(t, service.StatusError, anon.Code)
			assert.Contains(t, anon.ErrorMessage, "authentication required")

			res := svc.Create(userCtx, document.Document{"title": "t", "name": "n"}, nil)
			assert.Equal(t, service.StatusError, res.Code)
			assert.Contains(t, res.ErrorMessage, "admin role required")
		})
	}
}

func TestReadsAreOpenExceptUsers(t *testing.T) {
	p := newTestPlatform(t)
	require.True(t, p.Posts.Create(adminCtx(), document.Document{"title": "public"}, nil).IsOK())

	// Anonymous reads are allowed on content services.
	res := p.Posts.Find(context.Background(), nil, nil)
	require.True(t, res.IsOK())
	assert.Len(t, res.Documents(), 1)

	// The users service is admin-only even for reads.
	res = p.Users.Find(context.Background(), nil, nil)
	assert.Equal(t, service.StatusError, res.Code)
}

func TestTagSlugFromName(t *testing.T) {
	p := newTestPlatform(t)

	res := p.Tags.Create(adminCtx(), document.Document{"name": "Go Programming"}, nil)
	require.True(t, res.IsOK())
	assert.Equal(t, "go-programming", res.Document()["slug"])
	assert.Equal(t, "0", res.Document().ID())
}

func TestDuplicateSlugRejected(t *testing.T) {
	p := newTestPlatform(t)
	ctx := adminCtx()

	require.True(t, p.Posts.Create(ctx, document.Document{"title": "Same Title"}, nil).IsOK())
	res := p.Posts.Create(ctx, document.Document{"title": "Same Title"}, nil)
	assert.Equal(t, service.StatusError, res.Code)
}

func TestOptionsHideInternalDocuments(t *testing.T) {
	p := newTestPlatform(t)
	ctx := adminCtx()

	// Allocating a post id creates the posts:last_id counter option.
	require.True(t, p.Posts.Create(ctx, document.Document{"title": "seed"}, nil).IsOK())
	require.True(t, p.Options.Create(ctx, document.Document{"name": "site_title", "value": "Inkwell"}, nil).IsOK())

	res := p.Options.Find(ctx, nil, nil)
	require.True(t, res.IsOK())
	require.Len(t, res.Documents(), 1, "counter documents stay hidden")
	assert.Equal(t, "site_title", res.Documents()[0]["name"])

	// The counter is still addressable directly.
	counter := p.Options.Get(ctx, "posts:last_id", nil)
	require.True(t, counter.IsOK())
	assert.True(t, counter.Document().Internal())

	// Asking for internal documents explicitly reveals them.
	res = p.Options.Find(ctx, document.Query{"internal": true}, nil)
	require.True(t, res.IsOK())
	assert.Len(t, res.Documents(), 1)
	assert.Equal(t, "posts:last_id", res.Documents()[0].ID())
}

func TestOptionValidation(t *testing.T) {
	p := newTestPlatform(t)
	res := p.Options.Create(adminCtx(), document.Document{"value": "orphan"}, nil)
	assert.Equal(t, service.StatusError, res.Code)
	assert.Contains(t, res.ErrorMessage, "option name is required")
}

func TestUserEmailUnique(t *testing.T) {
	p := newTestPlatform(t)
	ctx := adminCtx()

	require.True(t, p.Users.Create(ctx, document.Document{"email": "ed@example.com", "role": "admin"}, nil).IsOK())
	res := p.Users.Create(ctx, document.Document{"email": "ed@example.com"}, nil)
	assert.Equal(t, service.StatusError, res.Code)

	res = p.Users.Create(ctx, document.Document{}, nil)
	assert.Contains(t, res.ErrorMessage, "user email is required")
}

func TestHeadlinesIncremental(t *testing.T) {
	p := newTestPlatform(t)
	ctx := adminCtx()

	first := p.Headlines.Create(ctx, document.Document{"text": "breaking"}, nil)
	require.True(t, first.IsOK())
	second := p.Headlines.Create(ctx, document.Document{"text": "update"}, nil)
	require.True(t, second.IsOK())

	assert.Equal(t, "0", first.Document().ID())
	assert.Equal(t, "1", second.Document().ID())
}

func TestServicesListsAllFive(t *testing.T) {
	p := newTestPlatform(t)
	names := make([]string, 0, 5)
	for _, svc := range p.Services() {
		names = append(names, svc.Name())
	}
	assert.Equal(t, []string{"posts", "tags", "headlines", "options", "users"}, names)
}
