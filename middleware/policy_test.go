package middleware

import (
	"errors"
	"net/http/httptest"
	"testing"

	"freshdock/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyAllowed(t *testing.T) {
	p, err := NewPolicy()
	require.NoError(t, err)

	tests := []struct {
		role models.Role
		obj  string
		act  string
		want bool
	}{
		{models.RoleStaff, ResDispatch, "receive", true},
		{models.RoleStaff, ResDispatch, "pickup", true},
		{models.RoleStaff, ResDispatch, "eta", true},
		{models.RoleStaff, ResDispatch, "edit", false},
		{models.RoleStaff, ResBusiness, "rotate_token", false},
		{models.RoleAdmin, ResDispatch, "receive", true},
		{models.RoleAdmin, ResBusiness, "rotate_token", true},
		{models.RoleAdmin, ResGrower, "provision", true},
		{models.RoleSupplier, ResDispatch, "pickup", true},
		{models.RoleSupplier, ResDispatch, "receive", false},
		{models.RoleSupplier, ResTemplate, "write", true},
		{models.RoleSupplier, ResConnection, "decide", false},
		{models.RoleTransporter, ResDispatch, "arrive", false},
		{models.RoleTransporter, ResDispatch, "read", false},
		{models.RoleTransporter, ResBusiness, "read", false},
		{models.RoleTransporter, ResTemplate, "read", false},
		{models.RoleSystem, ResBusiness, "rotate_token", true},
		{models.Role("guest"), ResDispatch, "read", false},
	}
	for _, tt := range tests {
		got := p.Allowed(tt.role, tt.obj, tt.act)
		assert.Equal(t, tt.want, got, "%s %s/%s", tt.role, tt.obj, tt.act)
	}
}

type stubParser map[string]models.Session

func (s stubParser) ParseToken(raw string) (models.Session, error) {
	sess, ok := s[raw]
	if !ok {
		return models.Session{}, errors.New("bad token")
	}
	return sess, nil
}

func TestAuthenticateAndAuthorize(t *testing.T) {
	p, err := NewPolicy()
	require.NoError(t, err)
	parser := stubParser{
		"staff":    {UserID: 1, Role: models.RoleStaff, BusinessID: 3, BusinessType: models.BusinessReceiver},
		"supplier": {UserID: 2, Role: models.RoleSupplier, BusinessID: 4, BusinessType: models.BusinessSupplier},
	}

	app := fiber.New()
	app.Post("/dispatches/:id/receive", Authenticate(parser), Authorize(p, ResDispatch, "receive"), func(ctx *fiber.Ctx) error {
		sess, ok := SessionFrom(ctx)
		if !ok {
			return ctx.SendStatus(fiber.StatusInternalServerError)
		}
		return ctx.SendString(sess.Role.String())
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic staff", fiber.StatusUnauthorized},
		{"unknown token", "Bearer nope", fiber.StatusUnauthorized},
		{"wrong role", "Bearer supplier", fiber.StatusForbidden},
		{"allowed", "Bearer staff", fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodPost, "/dispatches/1/receive", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
