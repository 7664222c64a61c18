package hooks

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/inkwell-cms/inkwell/pkg/auth"
)

// RestrictToAdmin fails unless the caller is an admin or the call carries
// the internal system mark.
func RestrictToAdmin(hc *Context) error {
	if auth.IsSystem(hc.Ctx) {
		return nil
	}
	user := auth.FromContext(hc.Ctx)
	if user == nil {
		return fmt.Errorf("%s %s: authentication required", hc.Service, hc.Op)
	}
	if !user.IsAdmin() {
		return fmt.Errorf("%s %s: admin role required", hc.Service, hc.Op)
	}
	return nil
}

// CreateSlug derives a URL slug from the named source field and stores it
// under "slug". Existing slugs are kept; a missing source field aborts the
// operation.
func CreateSlug(field string) Func {
	return func(hc *Context) error {
		if hc.Data == nil {
			return fmt.Errorf("%s %s: no data to derive slug from", hc.Service, hc.Op)
		}
		if slug, ok := hc.Data["slug"].(string); ok && slug != "" {
			return nil
		}
		src, ok := hc.Data[field].(string)
		if !ok || src == "" {
			return fmt.Errorf("%s %s: field %q required to derive slug", hc.Service, hc.Op, field)
		}
		hc.Data["slug"] = Slugify(src)
		return nil
	}
}

// AssociateUser stamps the authenticated caller's id onto the document's
// author field. Anonymous and system calls leave the document untouched.
func AssociateUser(hc *Context) error {
	if hc.Data == nil {
		return nil
	}
	if user := auth.FromContext(hc.Ctx); user != nil {
		hc.Data["author"] = user.ID
	}
	return nil
}

// Slugify lowercases s and collapses every run of non-alphanumeric runes
// into a single hyphen.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
