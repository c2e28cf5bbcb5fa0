// internal/workers/assistant/normalize-agent-response/handler.go
package normalizeagentresponse

import (
	"context"
	"fmt"
	"time"

	"research-assistant/internal/common/errors"
	"research-assistant/internal/common/logger"
	"research-assistant/internal/common/metrics"
	"research-assistant/internal/normalizer"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "normalize-agent-response"

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

// parseInput decodes the variables document itself so rawResponse keeps its
// member order.
func parseInput(variables string) (*Input, error) {
	doc, err := normalizer.Decode([]byte(variables))
	if err != nil {
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("parse variables: %v", err))
	}
	if !doc.IsObject() {
		return nil, errors.NewInvalidRequestError("variables must be an object")
	}

	in := &Input{RawResponse: doc.Field("rawResponse")}
	if p, ok := doc.Get("panel"); ok {
		switch p.Kind() {
		case normalizer.KindString:
			in.Panel = p.Str()
		case normalizer.KindNull:
		default:
			return nil, errors.NewInvalidRequestError("panel must be a string")
		}
	}
	return in, nil
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
		"jobKey": job.GetKey(),
		"shape":  output.Shape,
	})
	return nil
}
