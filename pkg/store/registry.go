package store

import (
	"slices"

	"github.com/statekit/statekit/pkg/id"
)

type middlewareEntry[S any] struct {
	handle id.Handle
	fn     Middleware[S]
	tag    string
	tagged bool
}

// middlewareRegistry keeps the ordered middleware list, the handle-to-scope
// mapping, and the tag index. The three are always mutated together; the
// store's lock confines access, so the registry itself takes no locks.
type middlewareRegistry[S any] struct {
	ordered []*middlewareEntry[S]
	scopes  map[id.Handle]*Scope
	tags    map[string][]id.Handle
}

func newMiddlewareRegistry[S any]() *middlewareRegistry[S] {
	return &middlewareRegistry[S]{
		scopes: make(map[id.Handle]*Scope),
		tags:   make(map[string][]id.Handle),
	}
}

func (r *middlewareRegistry[S]) add(entry *middlewareEntry[S], scope *Scope) {
	r.ordered = append(r.ordered, entry)
	r.scopes[entry.handle] = scope
	if entry.tagged {
		r.tags[entry.tag] = append(r.tags[entry.tag], entry.handle)
	}
}

// remove drops the entry from every structure that references it and returns
// the entry and the scope for the caller to cancel. Unknown handles report nil.
func (r *middlewareRegistry[S]) remove(handle id.Handle) (*middlewareEntry[S], *Scope) {
	scope, ok := r.scopes[handle]
	if !ok {
		return nil, nil
	}
	delete(r.scopes, handle)

	idx := slices.IndexFunc(r.ordered, func(e *middlewareEntry[S]) bool {
		return e.handle == handle
	})
	entry := r.ordered[idx]
	r.ordered = slices.Delete(r.ordered, idx, idx+1)

	if entry.tagged {
		members := slices.DeleteFunc(r.tags[entry.tag], func(h id.Handle) bool {
			return h == handle
		})
		if len(members) == 0 {
			delete(r.tags, entry.tag)
		} else {
			r.tags[entry.tag] = members
		}
	}
	return entry, scope
}

// membersOf returns the handles currently registered under tag, in addition
// order. Tags are case-sensitive; empty and whitespace tags are ordinary keys.
func (r *middlewareRegistry[S]) membersOf(tag string) []id.Handle {
	return slices.Clone(r.tags[tag])
}

func (r *middlewareRegistry[S]) hasTag(tag string) bool {
	return len(r.tags[tag]) > 0
}

// scope resolves the execution scope for a handle at invocation time.
func (r *middlewareRegistry[S]) scope(handle id.Handle) (*Scope, bool) {
	scope, ok := r.scopes[handle]
	return scope, ok
}

func (r *middlewareRegistry[S]) contains(handle id.Handle) bool {
	return slices.ContainsFunc(r.ordered, func(e *middlewareEntry[S]) bool {
		return e.handle == handle
	})
}

func (r *middlewareRegistry[S]) snapshot() []*middlewareEntry[S] {
	return slices.Clone(r.ordered)
}

func (r *middlewareRegistry[S]) allScopes() []*Scope {
	scopes := make([]*Scope, 0, len(r.scopes))
	for _, entry := range r.ordered {
		if scope, ok := r.scopes[entry.handle]; ok {
			scopes = append(scopes, scope)
		}
	}
	return scopes
}

func (r *middlewareRegistry[S]) size() int {
	return len(r.ordered)
}
