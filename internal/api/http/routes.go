package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-history/internal/aggregate"
	"github.com/i474232898/weather-history/internal/store"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app. aggregatePath is the file the
// duplicate audit runs against.
func RegisterRoutes(app *fiber.App, index store.Index, aggregatePath string) {
	v1 := app.Group("/api/v1")

	v1.Get("/schema", func(c *fiber.Ctx) error {
		cols, err := index.Columns()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read columns")
		}
		return c.JSON(fiber.Map{
			"columns": cols,
			"count":   len(cols),
		})
	})

	v1.Get("/observations", func(c *fiber.Ctx) error {
		q := observationQuery{City: c.Query("city"), Date: c.Query("date")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		obs, err := index.Get(q.City, q.Date)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data for requested city and date")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}

		return c.JSON(fiber.Map{
			"city":         q.City,
			"date":         q.Date,
			"observations": obs,
		})
	})

	v1.Get("/observations/history", func(c *fiber.Ctx) error {
		q := historyQuery{City: c.Query("city"), From: c.Query("from"), To: c.Query("to")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if q.To < q.From {
			return fiber.NewError(fiber.StatusBadRequest, "to must not be before from")
		}

		obs, err := index.Range(q.City, q.From, q.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		return c.JSON(fiber.Map{
			"city":         q.City,
			"from":         q.From,
			"to":           q.To,
			"observations": obs,
		})
	})

	v1.Get("/duplicates", func(c *fiber.Ctx) error {
		rep, err := aggregate.Audit(aggregatePath)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to audit aggregate file")
		}
		return c.JSON(fiber.Map{
			"count":      len(rep.Duplicates),
			"duplicates": rep.Duplicates,
		})
	})
}

// observationQuery holds query parameters for a single day lookup.
type observationQuery struct {
	City string `validate:"required"`
	Date string `validate:"required,len=8,numeric"`
}

// historyQuery holds query parameters for the history endpoint. Dates are YYYYMMDD, so
// string order is date order.
type historyQuery struct {
	City string `validate:"required"`
	From string `validate:"required,len=8,numeric"`
	To   string `validate:"required,len=8,numeric"`
}
