package blog

import (
	"github.com/inkwell-cms/inkwell/pkg/auth"
	"github.com/inkwell-cms/inkwell/pkg/document"
	"github.com/inkwell-cms/inkwell/pkg/hooks"
	"github.com/inkwell-cms/inkwell/pkg/service"
)

// postDefaults fills the editorial fields a client may omit on creation.
func postDefaults(hc *hooks.Context) error {
	defaults := document.Document{
		"format": "standard",
		"status": "publish",
		"type":   "post",
	}
	for field, value := range defaults {
		if _, ok := hc.Data[field]; !ok {
			hc.Data[field] = value
		}
	}
	if _, ok := hc.Data["tags"]; !ok {
		hc.Data["tags"] = []any{}
	}
	return nil
}

// hideInternal drops bookkeeping documents (id counters and the like) from
// find results served to ordinary callers. System calls and queries that
// name the internal field see everything. The envelope may come from the
// result cache, so the filtered result is a fresh copy.
func hideInternal(hc *hooks.Context) error {
	if auth.IsSystem(hc.Ctx) {
		return nil
	}
	if _, asked := hc.Query[document.FieldInternal]; asked {
		return nil
	}
	res, ok := hc.Result.(service.Result)
	if !ok || !res.IsOK() {
		return nil
	}
	docs := res.Documents()
	if docs == nil {
		return nil
	}
	visible := make([]document.Document, 0, len(docs))
	for _, doc := range docs {
		if !doc.Internal() {
			visible = append(visible, doc)
		}
	}
	hc.Result = service.Success(visible)
	return nil
}
