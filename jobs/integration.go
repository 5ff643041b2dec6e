package jobs

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/harvest-erp/harvest-erp/internal/production"
)

// ApprovalDispatcher forwards committed approvals to the job queue so the
// producibility cache gets rebuilt off the request path.
type ApprovalDispatcher struct {
	client *Client
}

// NewApprovalDispatcher constructs the dispatcher.
func NewApprovalDispatcher(client *Client) *ApprovalDispatcher {
	return &ApprovalDispatcher{client: client}
}

// HandleOrderApproved enqueues a producibility warmup run.
func (d *ApprovalDispatcher) HandleOrderApproved(ctx context.Context, evt production.OrderApprovedEvent) error {
	if d == nil || d.client == nil {
		return errors.New("jobs: approval dispatcher not configured")
	}
	task, err := NewProducibleWarmupTask(evt.ApprovedAt, "order_approved")
	if err != nil {
		return err
	}
	_, err = d.client.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}
