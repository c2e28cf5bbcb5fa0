// internal/workers/assistant/analyze-resume/handler.go
package analyzeresume

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"research-assistant/internal/common/errors"
	"research-assistant/internal/common/logger"
	"research-assistant/internal/common/metrics"
	"research-assistant/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "analyze-resume"

var inputValidator = validation.MustValidator(validation.ResumeRequestSchema)

type Handler struct {
	config       *Config
	service      *Service
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, service *Service, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		service:      service,
		errorHandler: errors.NewErrorHandler(l),
		logger:       l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := parseInput(job.GetVariables())
	if err == nil {
		var output *Output
		if output, err = h.service.Execute(ctx, input); err == nil {
			metrics.ObserveJob(TaskType, "", time.Since(start))
			return h.completeJob(ctx, client, job, output)
		}
	}

	code := string(errors.ErrCodeInternal)
	if stdErr, ok := errors.As(err); ok {
		code = string(stdErr.Code)
	}
	metrics.ObserveJob(TaskType, code, time.Since(start))
	h.errorHandler.HandleJobError(ctx, client, job, err)
	return nil
}

func parseInput(variables string) (*Input, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &raw); err != nil {
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("parse variables: %v", err))
	}
	if result := inputValidator.ValidateInput(raw); !result.Valid {
		if result.HasErrors("resumeId") {
			id, _ := raw["resumeId"].(string)
			return nil, errors.NewInvalidResumeIDError(id).WithMetadata("validation", result.Summary())
		}
		return nil, errors.NewInvalidRequestError(result.Summary())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("build complete command: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return fmt.Errorf("complete job %d: %w", job.GetKey(), err)
	}
	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":   job.GetKey(),
		"resumeId": output.ResumeID,
		"failed":   output.Failed,
	})
	return nil
}
