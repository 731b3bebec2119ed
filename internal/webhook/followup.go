package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// FollowUpPayload is the body posted to the follow-up webhook
type FollowUpPayload struct {
	Lead      interface{} `json:"lead"`
	Message   string      `json:"message"`
	Timestamp string      `json:"timestamp"`
	Source    string      `json:"source"`
}

// FollowUpReceipt is what the caller learns about a delivered follow-up
type FollowUpReceipt struct {
	SentAt   time.Time
	Response json.RawMessage
}

// SendFollowUp delivers one message about a lead. Any non-2xx answer is an
// error; delivery is never assumed.
func (c *Client) SendFollowUp(ctx context.Context, lead interface{}, message string) (*FollowUpReceipt, error) {
	if !c.FollowUpEnabled() {
		return nil, ErrNotConfigured
	}

	sentAt := c.now().UTC()
	body, err := json.Marshal(FollowUpPayload{
		Lead:      lead,
		Message:   message,
		Timestamp: sentAt.Format(time.RFC3339Nano),
		Source:    c.source,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	resp, err := c.call(ctx, c.followUp, c.followUpURL, body)
	if err != nil {
		return nil, err
	}

	receipt := &FollowUpReceipt{SentAt: sentAt}
	if json.Valid(resp) {
		receipt.Response = resp
	}
	return receipt, nil
}
