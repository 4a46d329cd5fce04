package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/geneflow-org/geneflow/internal/backoff"
)

const (
	defaultConnectTimeout = 30 * time.Second
	defaultReadTimeout    = 300 * time.Second
	defaultSubmitRetries  = 5
	defaultRetryInitial   = 500 * time.Millisecond
)

// jobStateMap translates a remote job-service status string to a State.
// Unrecognized strings map to StateUndetermined rather than erroring, so
// an unfamiliar scheduler response never aborts a poll loop outright.
var jobStateMap = map[string]State{
	"PENDING":    StateQueued,
	"STAGED":     StateQueued,
	"SUBMITTING": StateQueued,
	"QUEUED":     StateQueued,
	"RUNNING":    StateRunning,
	"PAUSED":     StateSuspended,
	"FINISHED":   StateDone,
	"FAILED":     StateFailed,
	"STOPPED":    StateFailed,
}

// RemoteContext is the execution context for steps submitted to a
// remote-REST (Agave-compatible) job service. It wraps an authenticated
// resty client and retries 5xx/429 submit/poll responses with a bounded
// exponential backoff.
type RemoteContext struct {
	client *resty.Client
	retry  *backoff.ExponentialBackoffPolicy
}

// NewRemoteContext returns a RemoteContext pointed at baseURL, carrying
// bearerToken on every request. Connect/read timeouts and the retry
// policy use GeneFlow's defaults; the client and policy are unexported
// fields, so they cannot be changed after construction.
func NewRemoteContext(baseURL, bearerToken string) *RemoteContext {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(bearerToken).
		SetTimeout(defaultConnectTimeout + defaultReadTimeout)
	return &RemoteContext{
		client: client,
		retry:  backoff.NewExponentialBackoffPolicy(defaultRetryInitial, defaultSubmitRetries),
	}
}

func (c *RemoteContext) Name() string { return "remote" }

func (c *RemoteContext) DataScheme() string { return "agave" }

func (c *RemoteContext) Initialize(ctx context.Context) error {
	// The resty client is stateless to construct; a lightweight reachability
	// probe would go here if the job service exposed one. None is assumed.
	return nil
}

func (c *RemoteContext) Teardown(ctx context.Context) error { return nil }

// shouldRetryResponse reports whether resp's status warrants a retried
// attempt under GeneFlow's remote-REST policy: any transport error, 429,
// and any 5xx.
func shouldRetryResponse(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	code := resp.StatusCode()
	return code == 429 || code >= 500
}

// withRetry executes op, retrying on transient (429/5xx) failures per
// c.retry until the policy's budget is exhausted or ctx is canceled.
func (c *RemoteContext) withRetry(ctx context.Context, op func() (*resty.Response, error)) (*resty.Response, error) {
	retrier := backoff.NewRetrier(c.retry)
	for {
		resp, err := op()
		if !shouldRetryResponse(resp, err) {
			return resp, err
		}
		waitErr := retrier.Next(ctx, err)
		if waitErr != nil {
			return resp, fmt.Errorf("remote backend: giving up after retries: %w", waitErr)
		}
	}
}

// SubmitJob submits a job manifest (an opaque JSON-serializable payload
// built by the remote step executor) and returns the job service's
// assigned job ID.
func (c *RemoteContext) SubmitJob(ctx context.Context, manifest any) (string, error) {
	var body struct {
		Result struct {
			ID string `json:"id"`
		} `json:"result"`
	}
	_, err := c.withRetry(ctx, func() (*resty.Response, error) {
		return c.client.R().
			SetContext(ctx).
			SetBody(manifest).
			SetResult(&body).
			Post("/jobs/v2")
	})
	if err != nil {
		return "", err
	}
	return body.Result.ID, nil
}

// JobStatus polls the job service for jobID's current state.
func (c *RemoteContext) JobStatus(ctx context.Context, jobID string) (State, error) {
	var body struct {
		Result struct {
			Status string `json:"status"`
		} `json:"result"`
	}
	_, err := c.withRetry(ctx, func() (*resty.Response, error) {
		return c.client.R().
			SetContext(ctx).
			SetResult(&body).
			Get(fmt.Sprintf("/jobs/v2/%s", jobID))
	})
	if err != nil {
		return StateUndetermined, err
	}
	if s, ok := jobStateMap[body.Result.Status]; ok {
		return s, nil
	}
	return StateUndetermined, nil
}

// JobHistory fetches the job service's event history for jobID, used for
// diagnostics when a job finishes FAILED.
func (c *RemoteContext) JobHistory(ctx context.Context, jobID string) ([]string, error) {
	var body struct {
		Result []struct {
			Status      string `json:"status"`
			Description string `json:"description"`
		} `json:"result"`
	}
	_, err := c.withRetry(ctx, func() (*resty.Response, error) {
		return c.client.R().
			SetContext(ctx).
			SetResult(&body).
			Get(fmt.Sprintf("/jobs/v2/%s/history", jobID))
	})
	if err != nil {
		return nil, err
	}
	events := make([]string, 0, len(body.Result))
	for _, e := range body.Result {
		events = append(events, fmt.Sprintf("%s: %s", e.Status, e.Description))
	}
	return events, nil
}

// AddUpdateApp registers or updates an app definition with the job
// service, ahead of submitting jobs that reference it.
func (c *RemoteContext) AddUpdateApp(ctx context.Context, appDef any) error {
	_, err := c.withRetry(ctx, func() (*resty.Response, error) {
		return c.client.R().
			SetContext(ctx).
			SetBody(appDef).
			Post("/apps/v2")
	})
	return err
}

// PublishApp marks a previously registered app as published, the job
// service's precondition for jobs to reference it.
func (c *RemoteContext) PublishApp(ctx context.Context, appName string) error {
	_, err := c.withRetry(ctx, func() (*resty.Response, error) {
		return c.client.R().
			SetContext(ctx).
			Post(fmt.Sprintf("/apps/v2/%s?action=publish", appName))
	})
	return err
}
