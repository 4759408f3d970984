package smartthings

import "errors"

var (
	// ErrTransport indicates the request never produced an HTTP
	// response (timeout, DNS, connection refused). Retryable.
	ErrTransport = errors.New("smartthings: transport error")

	// ErrAPI indicates an unexpected API response.
	ErrAPI = errors.New("smartthings: api error")

	// ErrUnauthorized indicates a missing, expired or under-scoped
	// token. Not retryable.
	ErrUnauthorized = errors.New("smartthings: unauthorized")

	// ErrDeviceNotFound indicates the device id is unknown to the API.
	ErrDeviceNotFound = errors.New("smartthings: device not found")

	// ErrRateLimited indicates the API rejected the request for rate
	// limiting.
	ErrRateLimited = errors.New("smartthings: rate limited")
)
