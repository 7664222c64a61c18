// Package hooks composes independently-authored validation and side-effect
// steps into ordered pipelines keyed by lifecycle phase and operation.
// Services declare a Set; the service layer runs the matching steps
// immediately before and after each operation.
package hooks

import (
	"context"

	"github.com/inkwell-cms/inkwell/pkg/document"
)

// Phase is the lifecycle position of a hook.
type Phase string

const (
	Before Phase = "before"
	After  Phase = "after"
)

// Op names a service operation.
type Op string

const (
	OpFind   Op = "find"
	OpGet    Op = "get"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpPatch  Op = "patch"
	OpRemove Op = "remove"
)

// Context is the mutable request context handed to each step. Before hooks
// may rewrite Data, Query and Params; after hooks see the operation's result
// in Result.
type Context struct {
	Ctx     context.Context
	Service string
	Op      Op
	ID      string
	Data    document.Document
	Query   document.Query
	Params  *document.Params
	Result  any
}

// Func is a single pipeline step. Returning an error aborts the remaining
// steps and the triggering operation; there is no skip primitive.
type Func func(*Context) error

// Set maps phase and operation to an ordered step sequence.
type Set map[Phase]map[Op][]Func

// New returns an empty hook set.
func New() Set {
	return Set{}
}

// Add appends steps for a phase and operation and returns the set for
// chaining.
func (s Set) Add(phase Phase, op Op, fns ...Func) Set {
	ops := s[phase]
	if ops == nil {
		ops = map[Op][]Func{}
		s[phase] = ops
	}
	ops[op] = append(ops[op], fns...)
	return s
}

// AddAll appends the same steps to several operations at once.
func (s Set) AddAll(phase Phase, ops []Op, fns ...Func) Set {
	for _, op := range ops {
		s.Add(phase, op, fns...)
	}
	return s
}

// Mutations lists the operations that modify documents.
func Mutations() []Op {
	return []Op{OpCreate, OpUpdate, OpPatch, OpRemove}
}

// Merge combines sets by concatenating step sequences per phase and
// operation, earlier arguments first.
func Merge(sets ...Set) Set {
	out := New()
	for _, s := range sets {
		for phase, ops := range s {
			for op, fns := range ops {
				out.Add(phase, op, fns...)
			}
		}
	}
	return out
}

// Run executes the steps registered for the phase and operation in order,
// stopping at the first error.
func (s Set) Run(phase Phase, op Op, hc *Context) error {
	ops, ok := s[phase]
	if !ok {
		return nil
	}
	for _, fn := range ops[op] {
		if err := fn(hc); err != nil {
			return err
		}
	}
	return nil
}
