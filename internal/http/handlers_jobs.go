package http

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"mdac/internal/model"
	"mdac/internal/store"
)

// jobStatusHandler returns the current status of one job, including
// the structured output once the job is terminal.
func jobStatusHandler(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "Invalid job id",
		})
	}

	st := c.Locals("store").(*store.Store)

	job, err := st.GetJob(c.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "Job not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   "Job lookup failed: " + err.Error(),
		})
	}

	resp := JobResponse{
		Success: true,
		ID:      job.ID.String(),
		Status:  job.Status,
	}
	if len(job.Output) > 0 {
		var out model.JobOutput
		if err := json.Unmarshal(job.Output, &out); err == nil {
			resp.Data = &out
		}
	}
	if resp.Data == nil && job.Error.Valid {
		resp.Error = job.Error.String
	}

	return c.JSON(resp)
}
