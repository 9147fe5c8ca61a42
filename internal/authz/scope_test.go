package authz

import (
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confhub/backend/pkg/apperr"
)

func params(m map[string]string) func(string) string {
	return func(name string) string { return m[name] }
}

func TestResolveScope_PathBeatsQueryAndBody(t *testing.T) {
	pathID, queryID, bodyID := uuid.New(), uuid.New(), uuid.New()

	scope, err := ResolveScope(RequestValues{
		Params: params(map[string]string{"orgId": pathID.String()}),
		Query:  url.Values{"organization_id": {queryID.String()}},
		Body:   []byte(`{"organization_id":"` + bodyID.String() + `"}`),
	})

	require.NoError(t, err)
	assert.Equal(t, pathID, scope.OrgID)
}

func TestResolveScope_QueryBeatsBody(t *testing.T) {
	queryID, bodyID := uuid.New(), uuid.New()

	scope, err := ResolveScope(RequestValues{
		Query: url.Values{"conference_id": {queryID.String()}},
		Body:  []byte(`{"conference_id":"` + bodyID.String() + `"}`),
	})

	require.NoError(t, err)
	assert.Equal(t, queryID, scope.ConfID)
}

func TestResolveScope_BodyFallback(t *testing.T) {
	tenantID := uuid.New()

	scope, err := ResolveScope(RequestValues{
		Body: []byte(`{"tenant_id":"` + tenantID.String() + `","role":"SUBMITTER"}`),
	})

	require.NoError(t, err)
	assert.Equal(t, tenantID, scope.TenantID)
	assert.Equal(t, uuid.Nil, scope.OrgID)
}

func TestResolveScope_MissingIsNil(t *testing.T) {
	scope, err := ResolveScope(RequestValues{Body: []byte(`not json`)})

	require.NoError(t, err)
	assert.Equal(t, Scope{}, scope)
}

func TestResolveScope_MalformedID(t *testing.T) {
	_, err := ResolveScope(RequestValues{
		Params: params(map[string]string{"orgId": "not-a-uuid"}),
	})

	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
