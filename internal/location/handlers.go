package location

import (
	"errors"

	"github.com/bbalwant/smart-tracking-system/internal/packages"
	"github.com/bbalwant/smart-tracking-system/internal/track"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Post("/:trackingID/location", func(c *fiber.Ctx) error {
		var req struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		sample, err := svc.Update(c.Context(), c.Params("trackingID"), req.Latitude, req.Longitude)
		switch {
		case errors.Is(err, packages.ErrNotFound):
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		case errors.Is(err, track.ErrLatitudeOutOfRange), errors.Is(err, track.ErrLongitudeOutOfRange):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(sample)
	})

	r.Get("/:trackingID/history", func(c *fiber.Ctx) error {
		trackingID := c.Params("trackingID")
		history, err := svc.History(c.Context(), trackingID)
		switch {
		case errors.Is(err, packages.ErrNotFound):
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"tracking_id": trackingID, "locations": history})
	})

	r.Get("/:trackingID/eta", func(c *fiber.Ctx) error {
		eta, err := svc.ETA(c.Context(), c.Params("trackingID"))
		switch {
		case errors.Is(err, packages.ErrNotFound), errors.Is(err, ErrETANotAvailable):
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(eta)
	})
}
