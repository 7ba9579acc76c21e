package jenkins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/bndr/gojenkins"
)

// QueueClient resolves queue items through the gojenkins SDK. The SDK shares
// the HTTP client, and with it the cookie jar, of the session.
type QueueClient struct {
	client *Client
	logger *slog.Logger

	mu  sync.Mutex
	sdk *gojenkins.Jenkins
}

// init lazily connects the SDK on first use.
func (c *QueueClient) init(ctx context.Context) (*gojenkins.Jenkins, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sdk != nil {
		return c.sdk, nil
	}

	session := c.client.Session()

	sdk := gojenkins.CreateJenkins(
		c.client.HTTPClient(),
		session.Endpoint(),
		session.Username(),
		session.credential,
	)

	if _, err := sdk.Init(ctx); err != nil {
		return nil, &Error{
			Kind:    KindConnection,
			Message: "failed to initialize jenkins sdk",
			Err:     err,
		}
	}

	c.logger.Debug("jenkins sdk initialized",
		"endpoint", session.Endpoint(),
	)

	c.sdk = sdk
	return sdk, nil
}

// Item returns the queue item with the given id.
func (c *QueueClient) Item(ctx context.Context, id int64) (*QueueItem, error) {
	if id <= 0 {
		return nil, newError(KindInvalidArgument, 0, "queue id must be a positive integer")
	}

	sdk, err := c.init(ctx)

	if err != nil {
		return nil, err
	}

	task, err := sdk.GetQueueItem(ctx, id)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, &Error{Kind: KindConnection, Message: "queue lookup aborted", Err: err}
		}

		return nil, c.classify(ctx, id, err)
	}

	if task == nil || task.Raw == nil || task.Raw.ID == 0 {
		return nil, newError(KindQueueItemNotFound, 404, "queue item %d does not exist", id)
	}

	return &QueueItem{
		ID:          task.Raw.ID,
		JobName:     task.Raw.Task.Name,
		Why:         task.Raw.Why,
		Blocked:     task.Raw.Blocked,
		Stuck:       task.Raw.Stuck,
		BuildNumber: task.Raw.Executable.Number,
		BuildURL:    task.Raw.Executable.URL,
	}, nil
}

// classify turns a plain SDK error into the typed taxonomy. The SDK hides the
// status code, so the item is requested once more to learn it.
func (c *QueueClient) classify(ctx context.Context, id int64, cause error) error {
	req, err := c.client.NewRequest(ctx, http.MethodGet, fmt.Sprintf("/queue/item/%d/api/json", id), nil)

	if err != nil {
		return err
	}

	resp, err := c.client.Do(req, "get_queue_item")

	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return newError(KindQueueItemNotFound, resp.StatusCode, "queue item %d does not exist", id)
	case !resp.Success():
		return statusError(resp, fmt.Sprintf("fetching queue item %d", id))
	}

	return &Error{
		Kind:    KindAPI,
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("failed to fetch queue item %d", id),
		Err:     cause,
	}
}
