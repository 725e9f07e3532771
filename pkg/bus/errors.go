package bus

import "errors"

var (
	errClientClosed   = errors.New("bus client is closed")
	errDecodeEvent    = errors.New("failed to decode event envelope")
	errEncodeEvent    = errors.New("failed to encode event envelope")
	errPublishFailed  = errors.New("failed to publish message")
	ErrHandlerFailure = errors.New("handler failed")
)
