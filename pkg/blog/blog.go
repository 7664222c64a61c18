// Package blog configures the concrete content services — posts, tags,
// headlines, options and users — over the generic service layer. Each
// service is a service.Config instance: a validator, a hook set and the
// incremental/cacheable flags; there is no per-service subclassing.
package blog

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inkwell-cms/inkwell/pkg/document"
	"github.com/inkwell-cms/inkwell/pkg/hooks"
	"github.com/inkwell-cms/inkwell/pkg/observability"
	"github.com/inkwell-cms/inkwell/pkg/service"
	"github.com/inkwell-cms/inkwell/pkg/store"
)

// Config carries the shared collaborators for every content service.
type Config struct {
	Store   store.Store
	Caches  service.CacheFactory
	Logger  *logrus.Logger
	Metrics *observability.Metrics
}

// Platform bundles the configured content services. Options is constructed
// first and bound into every incremental service as its id-allocator
// side channel.
type Platform struct {
	Posts     *service.Service
	Tags      *service.Service
	Headlines *service.Service
	Options   *service.Service
	Users     *service.Service
}

// NewPlatform opens the collections, declares their indexes and wires the
// services together.
func NewPlatform(ctx context.Context, cfg Config) (*Platform, error) {
	open := func(name string, indexes ...store.IndexSpec) (store.Collection, error) {
		col, err := cfg.Store.Collection(name)
		if err != nil {
			return nil, fmt.Errorf("failed to open collection %s: %w", name, err)
		}
		for _, idx := range indexes {
			if err := col.EnsureIndex(ctx, idx); err != nil {
				return nil, err
			}
		}
		return col, nil
	}

	optionsCol, err := open("options")
	if err != nil {
		return nil, err
	}
	postsCol, err := open("posts", store.IndexSpec{Field: "slug", Unique: true, Sparse: true})
	if err != nil {
		return nil, err
	}
	tagsCol, err := open("tags", store.IndexSpec{Field: "slug", Unique: true, Sparse: true})
	if err != nil {
		return nil, err
	}
	headlinesCol, err := open("headlines")
	if err != nil {
		return nil, err
	}
	usersCol, err := open("users", store.IndexSpec{Field: "email", Unique: true, Sparse: true})
	if err != nil {
		return nil, err
	}

	base := service.Config{Caches: cfg.Caches, Logger: cfg.Logger, Metrics: cfg.Metrics}
	configure := func(name string, incremental, cacheable bool, validate service.Validator, hookSet hooks.Set) service.Config {
		c := base
		c.Name = name
		c.Incremental = incremental
		c.Cacheable = cacheable
		c.Validate = validate
		c.Hooks = hookSet
		return c
	}

	adminMutations := hooks.New().AddAll(hooks.Before, hooks.Mutations(), hooks.RestrictToAdmin)

	p := &Platform{}

	p.Options = service.New(configure("options", false, true, validateOption,
		hooks.Merge(adminMutations,
			hooks.New().Add(hooks.After, hooks.OpFind, hideInternal),
		)), optionsCol)

	p.Posts = service.New(configure("posts", true, true, validatePost,
		hooks.Merge(adminMutations,
			hooks.New().Add(hooks.Before, hooks.OpCreate,
				hooks.CreateSlug("title"), hooks.AssociateUser, postDefaults),
		)), postsCol)

	p.Tags = service.New(configure("tags", true, true, validateTag,
		hooks.Merge(adminMutations,
			hooks.New().Add(hooks.Before, hooks.OpCreate, hooks.CreateSlug("name")),
		)), tagsCol)

	p.Headlines = service.New(configure("headlines", true, true, nil, adminMutations), headlinesCol)

	p.Users = service.New(configure("users", false, false, validateUser,
		hooks.New().
			AddAll(hooks.Before, hooks.Mutations(), hooks.RestrictToAdmin).
			AddAll(hooks.Before, []hooks.Op{hooks.OpFind, hooks.OpGet}, hooks.RestrictToAdmin)),
		usersCol)

	for _, svc := range []*service.Service{p.Posts, p.Tags, p.Headlines} {
		svc.BindOptions(p.Options)
	}

	return p, nil
}

// Services returns the platform services in mount order.
func (p *Platform) Services() []*service.Service {
	return []*service.Service{p.Posts, p.Tags, p.Headlines, p.Options, p.Users}
}

func validatePost(d document.Document) error {
	if title, _ := d["title"].(string); title == "" {
		return fmt.Errorf("post title is required")
	}
	return nil
}

func validateTag(d document.Document) error {
	if name, _ := d["name"].(string); name == "" {
		return fmt.Errorf("tag name is required")
	}
	return nil
}

func validateOption(d document.Document) error {
	if d.Internal() {
		return nil
	}
	if name, _ := d["name"].(string); name == "" {
		return fmt.Errorf("option name is required")
	}
	return nil
}

func validateUser(d document.Document) error {
	if email, _ := d["email"].(string); email == "" {
		return fmt.Errorf("user email is required")
	}
	return nil
}
