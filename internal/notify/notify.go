// Package notify implements GeneFlow's Notifier: on any job-status
// transition, POST a status-change payload to every endpoint configured
// on the job. Notifications never fail a run: a
// non-201 response (or transport error) is logged and swallowed.
package notify

import (
	"context"
	"log/slog"

	"github.com/go-resty/resty/v2"

	"github.com/geneflow-org/geneflow/internal/model"
)

// Payload is the body POSTed to each notification endpoint.
type Payload struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// Notifier POSTs status-change notifications via resty, the same REST
// client library the remote backend uses.
type Notifier struct {
	client *resty.Client
	log    *slog.Logger
	// BearerToken, when non-empty, is attached as "Authorization: Bearer
	// <token>". New leaves it empty, and nothing in the engine copies the
	// remote-REST backend's token into it.
	BearerToken string
}

// New returns a Notifier. log may be nil, in which case slog.Default()
// is used.
func New(log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{client: resty.New(), log: log}
}

// Notify POSTs payload to every notification endpoint. Failures (non-201
// responses or transport errors) are logged and otherwise ignored:
// notifications never fail the run.
func (n *Notifier) Notify(ctx context.Context, notifications []model.Notification, from, subject, content string) {
	for _, dest := range notifications {
		payload := Payload{To: dest.To, From: from, Subject: subject, Content: content}
		req := n.client.R().SetContext(ctx).SetBody(payload)
		if n.BearerToken != "" {
			req.SetAuthToken(n.BearerToken)
		}
		resp, err := req.Post(dest.URL)
		if err != nil {
			n.log.Warn("notify: post failed", "url", dest.URL, "error", err)
			continue
		}
		if resp.StatusCode() != 201 {
			n.log.Warn("notify: non-201 response", "url", dest.URL, "status", resp.StatusCode())
		}
	}
}
