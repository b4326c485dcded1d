package http

import (
	"github.com/gofiber/fiber/v2"

	"mdac/internal/services"
)

// resumeHandler releases a job paused on a manual gate token. Unknown
// tokens include jobs that already resumed or whose pause window
// elapsed.
func resumeHandler(c *fiber.Ctx) error {
	token := c.Params("token")
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "Missing resume token",
		})
	}

	svc := c.Locals("jobs").(services.JobService)

	if !svc.Resume(token) {
		return c.Status(fiber.StatusNotFound).JSON(ResumeResponse{
			Success: false,
			Code:    "NOT_FOUND",
			Error:   "No job is waiting on this token",
		})
	}

	return c.JSON(ResumeResponse{Success: true})
}
