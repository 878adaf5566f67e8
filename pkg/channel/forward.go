package channel

import (
	"context"
	"fmt"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/intentwire/intents-bridge/pkg/intent"
)

const forwardLogPrefix = "channel:forward"

// ForwardRequest is the payload delivered to an app's handler subject when
// the bridge forwards an invocation over the channel.
type ForwardRequest struct {
	Intent string         `json:"intent"`
	Params map[string]any `json:"params"`
}

// NewForwardingHandler builds an intent handler that forwards invocations to
// an app listening on the given COMMS subject and decodes the reply as a
// result map. Apps that register over the wire cannot attach an in-process
// function, so this is the handler installed on their behalf.
//
// A non-positive timeout leaves the deadline entirely to the caller's
// context.
func NewForwardingHandler(nc *comms.Conn, subject, identifier string, timeout time.Duration) intent.Handler {
	return func(ctx context.Context, params intent.Params) (*intent.Result, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		payload, err := EncodePayload(ForwardRequest{Intent: identifier, Params: params.Wire()})
		if err != nil {
			return nil, fmt.Errorf("%s - failed to encode forward request: %w", forwardLogPrefix, err)
		}

		msg, err := nc.RequestWithContext(ctx, subject, payload)
		if err != nil {
			return nil, fmt.Errorf("%s - request to %s failed: %w", forwardLogPrefix, subject, err)
		}

		var m map[string]any
		if err := DecodePayload(msg.Data, &m); err != nil {
			return nil, fmt.Errorf("%s - failed to decode reply from %s: %w", forwardLogPrefix, subject, err)
		}
		result, err := intent.ResultFromMap(m)
		if err != nil {
			return nil, fmt.Errorf("%s - malformed result from %s: %w", forwardLogPrefix, subject, err)
		}
		return &result, nil
	}
}
