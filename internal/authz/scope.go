package authz

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/confhub/backend/pkg/apperr"
)

// Scope holds the tenant ids a request refers to. uuid.Nil means absent.
type Scope struct {
	OrgID    uuid.UUID
	ConfID   uuid.UUID
	TenantID uuid.UUID
}

// Source names where a scope id may appear, checked in order: path, query, body.
type Source struct {
	Param string
	Query string
	Body  string
}

var (
	OrgSource    = Source{Param: "orgId", Query: "organization_id", Body: "organization_id"}
	ConfSource   = Source{Param: "confId", Query: "conference_id", Body: "conference_id"}
	TenantSource = Source{Param: "tenantId", Query: "tenant_id", Body: "tenant_id"}
)

// RequestValues is the part of an incoming request the resolver reads.
type RequestValues struct {
	Params func(name string) string
	Query  url.Values
	Body   []byte
}

func (s Source) lookup(v RequestValues) string {
	if v.Params != nil {
		if p := strings.TrimSpace(v.Params(s.Param)); p != "" {
			return p
		}
	}
	if q := strings.TrimSpace(v.Query.Get(s.Query)); q != "" {
		return q
	}
	if len(v.Body) > 0 && gjson.ValidBytes(v.Body) {
		if r := gjson.GetBytes(v.Body, s.Body); r.Type == gjson.String {
			return strings.TrimSpace(r.Str)
		}
	}
	return ""
}

// ResolveScope extracts every scope id present in the request.
// A malformed id is an input error; a missing one is left as uuid.Nil for Authorize to judge.
func ResolveScope(v RequestValues) (Scope, error) {
	var scope Scope
	for _, f := range []struct {
		src  Source
		dst  *uuid.UUID
		name string
	}{
		{OrgSource, &scope.OrgID, "organization"},
		{ConfSource, &scope.ConfID, "conference"},
		{TenantSource, &scope.TenantID, "tenant"},
	} {
		raw := f.src.lookup(v)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return Scope{}, fmt.Errorf("%w: invalid %s id", apperr.ErrInvalidInput, f.name)
		}
		*f.dst = id
	}
	return scope, nil
}

// RequestContext is the immutable per-request value handed to handlers.
type RequestContext struct {
	Identity *Identity
	Scope    Scope
}
