package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"mdac/internal/config"
	"mdac/internal/services"
)

// retrieveHandler enqueues a confirmation slip retrieval job.
func retrieveHandler(c *fiber.Ctx) error {
	var reqBody RetrieveRequest
	if err := c.BodyParser(&reqBody); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST_INVALID_JSON",
			Error:   "Bad request, malformed JSON",
		})
	}

	var missing string
	switch {
	case reqBody.Passport == "":
		missing = "passport"
	case reqBody.Nationality == "":
		missing = "nationality"
	case reqBody.Pin == "":
		missing = "pin"
	}
	if missing != "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "Missing required field '" + missing + "'",
		})
	}

	cfg := c.Locals("config").(*config.Config)
	svc := c.Locals("jobs").(services.JobService)

	job, err := svc.SubmitRetrieve(c.Context(), reqBody.RetrieveInput, reqBody.Record)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   "Failed to enqueue job: " + err.Error(),
		})
	}

	resp := JobResponse{
		Success: true,
		ID:      job.ID.String(),
		Status:  job.Status,
	}

	if reqBody.Sync == nil || !*reqBody.Sync {
		return c.Status(fiber.StatusAccepted).JSON(resp)
	}

	wait := time.Duration(cfg.Worker.SyncJobWaitTimeoutMs) * time.Millisecond
	out, done := svc.WaitForJob(c.Context(), job.ID, wait)
	if !done {
		return c.Status(fiber.StatusAccepted).JSON(resp)
	}

	resp.Status = out.Status
	resp.Data = &out
	return c.JSON(resp)
}
