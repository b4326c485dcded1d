package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"mdac/internal/config"
	"mdac/internal/services"
)

// registerHandler enqueues one registration job. With "sync": true the
// request blocks until the job reaches a terminal status; otherwise it
// returns 202 with the job id for polling.
func registerHandler(c *fiber.Ctx) error {
	var reqBody RegisterRequest
	if err := c.BodyParser(&reqBody); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST_INVALID_JSON",
			Error:   "Bad request, malformed JSON",
		})
	}

	if missing := validateRegister(&reqBody); missing != "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "Missing required field '" + missing + "'",
		})
	}

	cfg := c.Locals("config").(*config.Config)
	svc := c.Locals("jobs").(services.JobService)

	opts := services.SubmitOptions{Record: reqBody.Record}
	if reqBody.Pause != nil {
		opts.Pause = *reqBody.Pause
	}

	job, err := svc.SubmitRegister(c.Context(), reqBody.RegisterInput, opts)
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
	if job.PauseToken.Valid {
		resp.PauseToken = job.PauseToken.String
	}

	if reqBody.Sync == nil || !*reqBody.Sync {
		return c.Status(fiber.StatusAccepted).JSON(resp)
	}

	wait := time.Duration(cfg.Worker.SyncJobWaitTimeoutMs) * time.Millisecond
	out, done := svc.WaitForJob(c.Context(), job.ID, wait)
	if !done {
		// Still running; hand back the id so the caller can poll.
		return c.Status(fiber.StatusAccepted).JSON(resp)
	}

	resp.Status = out.Status
	resp.Data = &out
	return c.JSON(resp)
}

func validateRegister(req *RegisterRequest) string {
	switch {
	case req.Passport == "":
		return "passport"
	case req.Nationality == "":
		return "nationality"
	case req.FullName == "":
		return "fullName"
	case req.ArrivalDate == "":
		return "arrivalDate"
	case req.DepartureDate == "":
		return "departureDate"
	}
	return ""
}
