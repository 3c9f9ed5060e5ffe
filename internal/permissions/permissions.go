// Package permissions evaluates named allow/deny predicates for a request,
// composed with OR semantics in a fixed order.
package permissions

import (
	"foodgram/internal/models"
)

// Method classes used by predicates.
const (
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodOptions = "OPTIONS"
)

// Messages returned when a predicate denies.
const (
	MsgAdminRequired  = "Необходимы права администратора."
	MsgAuthRequired   = "Необходима авторизация."
	MsgAuthorRequired = "Необходимо авторство."
)

// Request is what a predicate sees about the call.
type Request struct {
	Method  string
	UserID  uint
	IsAdmin bool
}

// Authenticated reports whether the caller is logged in.
func (r Request) Authenticated() bool {
	return r.UserID != 0
}

// Safe reports whether the method is read-only.
func (r Request) Safe() bool {
	switch r.Method {
	case MethodGet, MethodHead, MethodOptions:
		return true
	}
	return false
}

// Owned is implemented by objects that carry an owning user.
type Owned interface {
	OwnerID() uint
}

// Decision is the outcome of one predicate stage.
type Decision struct {
	Allow  bool
	Reason string
}

func allow() Decision              { return Decision{Allow: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

// Predicate is a named permission check with a request stage and an object stage.
// A nil Object stage allows every object once the request stage passed.
type Predicate struct {
	Name    string
	Request func(req Request) Decision
	Object  func(req Request, obj Owned) Decision
}

// Set is an ordered OR-composition of predicates.
type Set []Predicate

// Any composes predicates in order.
func Any(preds ...Predicate) Set {
	return Set(preds)
}

// CheckRequest returns nil when any predicate allows the request.
// Predicates are evaluated in order and evaluation stops at the first allow.
func (s Set) CheckRequest(req Request) error {
	reason := ""
	for _, p := range s {
		d := p.Request(req)
		if d.Allow {
			return nil
		}
		if d.Reason != "" {
			reason = d.Reason
		}
	}
	return denied(reason)
}

// CheckObject returns nil when any predicate allows both the request and obj.
func (s Set) CheckObject(req Request, obj Owned) error {
	reason := ""
	for _, p := range s {
		d := p.Request(req)
		if d.Allow && p.Object != nil {
			d = p.Object(req, obj)
		}
		if d.Allow {
			return nil
		}
		if d.Reason != "" {
			reason = d.Reason
		}
	}
	return denied(reason)
}

func denied(reason string) error {
	if reason == "" {
		reason = MsgAuthRequired
	}
	return models.NewPermissionDeniedError(reason)
}

// IsAdmin allows administrators for every method and object.
var IsAdmin = Predicate{
	Name: "is_admin",
	Request: func(req Request) Decision {
		if req.Authenticated() && req.IsAdmin {
			return allow()
		}
		return deny(MsgAdminRequired)
	},
}

// IsAuthor allows authenticated callers, and at object level only the owner.
var IsAuthor = Predicate{
	Name: "is_author",
	Request: func(req Request) Decision {
		if req.Authenticated() {
			return allow()
		}
		return deny(MsgAuthRequired)
	},
	Object: func(req Request, obj Owned) Decision {
		if obj != nil && obj.OwnerID() == req.UserID {
			return allow()
		}
		return deny(MsgAuthorRequired)
	},
}

// ReadOnly allows safe methods for everyone.
var ReadOnly = Predicate{
	Name: "read_only",
	Request: func(req Request) Decision {
		if req.Safe() {
			return allow()
		}
		return Decision{}
	},
}

// Authenticated allows any logged-in caller.
var Authenticated = Predicate{
	Name: "authenticated",
	Request: func(req Request) Decision {
		if req.Authenticated() {
			return allow()
		}
		return deny(MsgAuthRequired)
	},
}

// Policies used by the API.
var (
	// RecipePolicy lets admins and authors write and everyone read.
	RecipePolicy = Any(IsAdmin, IsAuthor, ReadOnly)
	// AuthenticatedOnly guards per-user actions such as toggles and subscriptions.
	AuthenticatedOnly = Any(Authenticated)
)
