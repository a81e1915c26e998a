package permissions

import (
	"context"
	"testing"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

func newTestEnforcer(t *testing.T) *casbin.Enforcer {
	t.Helper()

	m, err := model.NewModelFromString(rbacModel)
	require.NoError(t, err)

	enforcer, err := casbin.NewEnforcer(m)
	require.NoError(t, err)

	_, err = enforcer.AddPolicy("report-admin", "reports", "export")
	require.NoError(t, err)
	_, err = enforcer.AddPolicy("alice", "reports", "read")
	require.NoError(t, err)
	_, err = enforcer.AddGroupingPolicy("bob", "report-admin")
	require.NoError(t, err)

	return enforcer
}

func TestCasbinEvaluator(t *testing.T) {
	ctx := context.Background()
	enforcer := newTestEnforcer(t)

	factory, err := NewFactory(WithEvaluator(PolicyType, CasbinEvaluator(enforcer)))
	require.NoError(t, err)

	testCases := []struct {
		name      string
		principal *Principal
		spec      RawSpec
		expected  bool
	}{
		{
			name:      "direct policy on the principal",
			principal: NewPrincipal("alice", nil, ""),
			spec:      Policy("reports", "read"),
			expected:  true,
		},
		{
			name:      "role assigned in casbin",
			principal: NewPrincipal("bob", nil, ""),
			spec:      Policy("reports", "export"),
			expected:  true,
		},
		{
			name:      "token permission used as a role",
			principal: NewPrincipal("carol", []string{"report-admin"}, ""),
			spec:      Policy("reports", "export"),
			expected:  true,
		},
		{
			name:      "no matching policy",
			principal: NewPrincipal("alice", []string{"viewer"}, ""),
			spec:      Policy("reports", "export"),
			expected:  false,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			ok, err := factory.ForPrincipal(testCase.principal).HasPermissions(ctx, testCase.spec)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, ok)
		})
	}

	t.Run("a policy spec without an action is a configuration error", func(t *testing.T) {
		_, err := factory.ForPrincipal(NewPrincipal("alice", nil, "")).
			HasPermissions(ctx, RawSpec{Type: PolicyType, Fields: map[string]any{"object": "reports"}})
		assert.ErrorIs(t, err, ErrConfiguration)
	})
}
