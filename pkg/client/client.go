package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloudfit/internal/auth"
	"cloudfit/pkg/api"
	"cloudfit/pkg/train"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// Client talks to the training backend's REST API. It implements
// train.JobService, so it can be passed directly to a Trainer to run
// cloud fits against a live backend.
type Client struct {
	client *resty.Client
}

var _ train.JobService = (*Client)(nil)

func New(baseURL, apiKey string) *Client {
	client := resty.New().SetBaseURL(baseURL)
	if apiKey != "" {
		client.SetHeader(auth.APIKeyHeader, apiKey)
	}
	return &Client{client: client}
}

func (c *Client) SubmitTrainingJob(ctx context.Context, request api.SubmitTrainingJobRequest) (*api.TrainingJob, error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(request).
		Post("/api/v1/jobs")
	if err != nil {
		return nil, fmt.Errorf("error submitting training job: %w", err)
	}

	var job api.TrainingJob
	if err := parseResponse(res, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) GetTrainingJob(ctx context.Context, jobId uuid.UUID) (*api.TrainingJob, error) {
	res, err := c.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/api/v1/jobs/%s", jobId))
	if err != nil {
		return nil, fmt.Errorf("error getting training job: %w", err)
	}

	var job api.TrainingJob
	if err := parseResponse(res, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) ListTrainingJobs(ctx context.Context, query api.ListTrainingJobsQuery) (*api.TrainingJobList, error) {
	req := c.client.R().SetContext(ctx)
	if query.Status != "" {
		req.SetQueryParam("status", query.Status)
	}
	if query.Limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(query.Limit))
	}
	if query.Offset > 0 {
		req.SetQueryParam("offset", strconv.Itoa(query.Offset))
	}

	res, err := req.Get("/api/v1/jobs")
	if err != nil {
		return nil, fmt.Errorf("error listing training jobs: %w", err)
	}

	var jobs api.TrainingJobList
	if err := parseResponse(res, &jobs); err != nil {
		return nil, err
	}
	return &jobs, nil
}

// AwaitTrainingJob polls until the job reaches a terminal status. A zero
// interval falls back to the trainer's default poll interval.
func (c *Client) AwaitTrainingJob(ctx context.Context, jobId uuid.UUID, interval time.Duration) (*api.TrainingJob, error) {
	if interval <= 0 {
		interval = train.DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := c.GetTrainingJob(ctx, jobId)
		if err != nil {
			return nil, err
		}

		if api.IsTerminal(job.Status) {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) Health(ctx context.Context) error {
	res, err := c.client.R().
		SetContext(ctx).
		Get("/api/v1/health")
	if err != nil {
		return fmt.Errorf("error checking backend health: %w", err)
	}

	var health api.HealthResponse
	if err := parseResponse(res, &health); err != nil {
		return err
	}

	if health.Status != "ok" {
		return fmt.Errorf("backend reported status '%s'", health.Status)
	}
	return nil
}

func parseResponse(res *resty.Response, out any) error {
	if !res.IsSuccess() {
		return fmt.Errorf("backend returned status %d: %s", res.StatusCode(), strings.TrimSpace(res.String()))
	}

	if err := json.Unmarshal(res.Body(), out); err != nil {
		return fmt.Errorf("error parsing response from backend: %w", err)
	}
	return nil
}
