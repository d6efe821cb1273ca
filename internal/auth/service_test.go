package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishigakitour/pickup/internal/auth"
)

func testService() *auth.Service {
	return auth.NewService(auth.ServiceConfig{
		JWTService: testJWTService("test-secret-key-for-testing-only", "iss", "aud"),
	})
}

func TestService_IssueAndValidate(t *testing.T) {
	svc := testService()

	resp, err := svc.IssueToken(auth.Operator{Name: "Kayo", Roles: []auth.Role{auth.RoleAdmin}}, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.InDelta(t, 7200, resp.ExpiresIn, 5)
	assert.Regexp(t, `^op_[0-9a-f-]{22}$`, resp.Operator.ID)

	op, err := svc.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Operator.ID, op.ID)
	assert.Equal(t, "Kayo", op.Name)
	assert.True(t, op.HasRole(auth.RoleAdmin))
	assert.True(t, op.HasRole(auth.RoleDispatcher))
}

func TestService_IssueTokenDefaultsToDispatcher(t *testing.T) {
	resp, err := testService().IssueToken(auth.Operator{ID: "op_desk"}, 0)
	require.NoError(t, err)

	assert.Equal(t, "op_desk", resp.Operator.ID)
	assert.Equal(t, []auth.Role{auth.RoleDispatcher}, resp.Operator.Roles)
	assert.False(t, resp.Operator.HasRole(auth.RoleAdmin))
}

func TestService_IssueTokenRejectsUnknownRole(t *testing.T) {
	_, err := testService().IssueToken(auth.Operator{Roles: []auth.Role{"driver"}}, 0)
	assert.ErrorIs(t, err, auth.ErrInvalidOperator)
}

func TestOperator_HasRoleNil(t *testing.T) {
	var op *auth.Operator
	assert.False(t, op.HasRole(auth.RoleDispatcher))
}
