package apikeyapi

import (
	"github.com/Abraxas-365/clientportal/pkg/errx"
	"github.com/Abraxas-365/clientportal/pkg/iam/apikey"
	"github.com/Abraxas-365/clientportal/pkg/iam/apikey/apikeysrv"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

type APIKeyHandlers struct {
	service *apikeysrv.APIKeyService
}

func NewAPIKeyHandlers(service *apikeysrv.APIKeyService) *APIKeyHandlers {
	return &APIKeyHandlers{service: service}
}

func (h *APIKeyHandlers) RegisterRoutes(app fiber.Router, guard *auth.RouteGuard) {
	keys := app.Group("/api/v1/organizations/:orgId/api-keys", guard.API(auth.SurfaceAPI))

	keys.Get("/", h.List)
	keys.Post("/", h.Create)
	keys.Delete("/:keyId", h.Revoke)
	app.Get("/api/v1/api-key-scopes", guard.API(auth.SurfaceAPI), h.Scopes)
}

func (h *APIKeyHandlers) Create(c *fiber.Ctx) error {
	var req apikey.CreateAPIKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Malformed("invalid request body")
	}

	id, _ := auth.GetIdentity(c)
	resp, err := h.service.Create(c.UserContext(), id, kernel.NewOrganizationID(c.Params("orgId")), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *APIKeyHandlers) List(c *fiber.Ctx) error {
	id, _ := auth.GetIdentity(c)
	resp, err := h.service.List(c.UserContext(), id, kernel.NewOrganizationID(c.Params("orgId")))
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *APIKeyHandlers) Revoke(c *fiber.Ctx) error {
	id, _ := auth.GetIdentity(c)
	err := h.service.Revoke(c.UserContext(), id,
		kernel.NewOrganizationID(c.Params("orgId")), kernel.APIKeyID(c.Params("keyId")))
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIKeyHandlers) Scopes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"scopes":     apikey.ScopeDescriptions,
		"categories": apikey.ScopeCategories,
	})
}
