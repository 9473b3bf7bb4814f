package packages

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Post("/", func(c *fiber.Ctx) error {
		var req Package
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Sender.Name == "" || req.Recipient.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "sender and recipient required")
		}
		pkg, err := svc.Create(c.Context(), req)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(pkg)
	})

	r.Get("/", func(c *fiber.Ctx) error {
		pkgs, err := svc.List(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"packages": pkgs, "total": len(pkgs)})
	})

	r.Get("/:trackingID", func(c *fiber.Ctx) error {
		pkg, err := svc.GetByTrackingID(c.Context(), c.Params("trackingID"))
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(pkg)
	})

	r.Patch("/:trackingID/status", func(c *fiber.Ctx) error {
		var req struct {
			Status string `json:"status"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Status == "" {
			return fiber.NewError(fiber.StatusBadRequest, "status required")
		}
		pkg, err := svc.UpdateStatus(c.Context(), c.Params("trackingID"), req.Status)
		switch {
		case errors.Is(err, ErrNotFound):
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		case errors.Is(err, ErrInvalidTransition):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(pkg)
	})
}
