package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/route-weather/internal/planner"
)

var validate = validator.New()

// Planner plans weather-ranked routes for one request.
type Planner interface {
	Plan(ctx context.Context, req planner.Request) (planner.Response, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc Planner) {
	v1 := app.Group("/api/v1")

	v1.Post("/route-weather", func(c *fiber.Ctx) error {
		var req routeWeatherRequest
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		resp, err := svc.Plan(c.UserContext(), req.toRequest())
		if err != nil {
			return planError(err)
		}
		return c.JSON(resp)
	})
}

// routeWeatherRequest is the JSON body of the route-weather endpoint.
type routeWeatherRequest struct {
	Origin        string     `json:"origin" validate:"required,max=256"`
	Destination   string     `json:"destination" validate:"required,max=256"`
	DepartureTime *time.Time `json:"departure_time"`
}

func (r *routeWeatherRequest) bind(c *fiber.Ctx) error {
	if err := c.BodyParser(r); err != nil {
		return errors.New("invalid request body")
	}
	r.Origin = strings.TrimSpace(r.Origin)
	r.Destination = strings.TrimSpace(r.Destination)
	return nil
}

func (r routeWeatherRequest) toRequest() planner.Request {
	return planner.Request{
		Origin:        r.Origin,
		Destination:   r.Destination,
		DepartureTime: r.DepartureTime,
	}
}

// planError maps planner failures onto HTTP status codes.
func planError(err error) error {
	switch {
	case errors.Is(err, planner.ErrDirections):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case errors.Is(err, planner.ErrInvalidRoute):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "request timed out")
	default:
		return err
	}
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal server error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		msg = e.Message
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": msg,
	})
}
