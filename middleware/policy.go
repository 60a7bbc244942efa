package middleware

import (
	"fmt"

	"freshdock/models"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/gofiber/fiber/v2"
)

const policyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == "system" || (g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act)
`

// Resources guarded by role.
const (
	ResDispatch   = "dispatch"
	ResTemplate   = "template"
	ResConnection = "connection"
	ResGrower     = "grower"
	ResIntakeLink = "intake_link"
	ResBusiness   = "business"
)

var rolePolicies = map[models.Role]map[string][]string{
	models.RoleStaff: {
		ResDispatch:   {"read", "create", "pickup", "con_note", "eta", "arrive", "receive", "issue", "lot", "advice", "export", "upload"},
		ResConnection: {"read", "decide"},
		ResGrower:     {"provision"},
		ResIntakeLink: {"create", "read"},
		ResBusiness:   {"read"},
	},
	models.RoleAdmin: {
		ResBusiness: {"update", "rotate_token"},
	},
	models.RoleSupplier: {
		ResDispatch:   {"read", "create", "edit", "pickup", "con_note", "eta", "advice", "export", "upload"},
		ResTemplate:   {"read", "write"},
		ResConnection: {"read", "request"},
		ResBusiness:   {"read", "update"},
	},
}

// Policy answers role checks. Admins inherit every staff permission.
type Policy struct {
	enforcer *casbin.Enforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	var rules [][]string
	for role, resources := range rolePolicies {
		for obj, acts := range resources {
			for _, act := range acts {
				rules = append(rules, []string{string(role), obj, act})
			}
		}
	}
	if _, err := e.AddPolicies(rules); err != nil {
		return nil, fmt.Errorf("add policies: %w", err)
	}
	if _, err := e.AddGroupingPolicy(string(models.RoleAdmin), string(models.RoleStaff)); err != nil {
		return nil, fmt.Errorf("add role grouping: %w", err)
	}
	return &Policy{enforcer: e}, nil
}

func (p *Policy) Allowed(role models.Role, obj, act string) bool {
	ok, err := p.enforcer.Enforce(string(role), obj, act)
	return err == nil && ok
}

// Authorize rejects requests whose session role lacks obj/act. It must run
// after Authenticate.
func Authorize(p *Policy, obj, act string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		sess, ok := SessionFrom(ctx)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Unauthorized",
			})
		}
		if !p.Allowed(sess.Role, obj, act) {
			return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Forbidden: You do not have permission",
			})
		}
		return ctx.Next()
	}
}
