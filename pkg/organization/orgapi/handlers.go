package orgapi

import (
	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth"
	"github.com/Abraxas-365/clientportal/pkg/iam/rbac"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
	"github.com/Abraxas-365/clientportal/pkg/organization/orgsrv"
	"github.com/gofiber/fiber/v2"
)

type OrganizationHandlers struct {
	service *orgsrv.OrganizationService
}

func NewOrganizationHandlers(service *orgsrv.OrganizationService) *OrganizationHandlers {
	return &OrganizationHandlers{service: service}
}

func (h *OrganizationHandlers) RegisterRoutes(app fiber.Router, guard *auth.RouteGuard) {
	orgs := app.Group("/api/v1/organizations/:orgId", guard.API(auth.SurfaceAPI))

	orgs.Get("/members", h.ListMembers)
	orgs.Patch("/members/:userId/role", h.UpdateMemberRole)
	orgs.Put("/billing/default-payment-method", h.SetDefaultPaymentMethod)
}

func (h *OrganizationHandlers) ListMembers(c *fiber.Ctx) error {
	id, _ := auth.GetIdentity(c)
	members, err := h.service.ListMembers(c.UserContext(), id, kernel.NewOrganizationID(c.Params("orgId")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"members": members, "total": len(members)})
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (h *OrganizationHandlers) UpdateMemberRole(c *fiber.Ctx) error {
	var req updateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Malformed("invalid request body")
	}
	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		return err
	}

	id, _ := auth.GetIdentity(c)
	err = h.service.UpdateMemberRole(c.UserContext(), id,
		kernel.NewOrganizationID(c.Params("orgId")), kernel.NewUserID(c.Params("userId")), role)
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type defaultPaymentRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
}

func (h *OrganizationHandlers) SetDefaultPaymentMethod(c *fiber.Ctx) error {
	var req defaultPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Malformed("invalid request body")
	}

	id, _ := auth.GetIdentity(c)
	if err := h.service.SetDefaultPaymentMethod(c.UserContext(), id, kernel.NewOrganizationID(c.Params("orgId")), req.PaymentMethodID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
