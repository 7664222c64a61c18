package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/inkwell-cms/inkwell/pkg/auth"
	"github.com/inkwell-cms/inkwell/pkg/document"
)

// counterSuffix completes the counter document id for an incremental
// service. Counters are namespaced per service so concurrently configured
// incremental services can never collide on one document.
const counterSuffix = ":last_id"

// BindOptions attaches the companion options service the allocator reads
// and writes its counter through. Incremental services must be bound before
// their first create.
func (s *Service) BindOptions(options *Service) {
	s.options = options
}

// CounterID returns the id of the counter document this service allocates
// from.
func (s *Service) CounterID() string {
	return s.cfg.Name + counterSuffix
}

// nextID allocates the next sequential id. The read-modify-write of the
// counter document is safe because Create is serialized per service: no
// second allocation starts before this one persists the counter.
//
// All counter traffic goes through the options service's own envelope,
// cache and queue discipline; reads may be served from its cache, which is
// sound because every counter write purges it.
func (s *Service) nextID(ctx context.Context) (string, error) {
	if s.options == nil {
		return "", fmt.Errorf("service %s: incremental creation requires a bound options service", s.cfg.Name)
	}

	sys := auth.AsSystem(ctx)
	counterID := s.CounterID()

	next := int64(0)
	exists := false
	if res := s.options.Get(sys, counterID, nil); res.IsOK() {
		if doc := res.Document(); doc != nil {
			next = document.Int64Value(doc["value"]) + 1
			exists = true
		}
	}

	if exists {
		if res := s.options.Patch(sys, counterID, document.Document{"value": next}, nil); !res.IsOK() {
			return "", fmt.Errorf("failed to advance id counter %s: %s", counterID, res.ErrorMessage)
		}
	} else {
		counter := document.Document{
			document.FieldID:       counterID,
			"value":                next,
			document.FieldInternal: true,
		}
		if res := s.options.Create(sys, counter, nil); !res.IsOK() {
			return "", fmt.Errorf("failed to create id counter %s: %s", counterID, res.ErrorMessage)
		}
	}
	return strconv.FormatInt(next, 10), nil
}
