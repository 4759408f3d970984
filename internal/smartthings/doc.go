// Package smartthings implements the capability transport against the
// SmartThings REST API using a static personal access token.
//
// It is intentionally thin: capability discovery, full status reads and
// command execution on a device's main component. OAuth token refresh
// and the event stream are out of scope for a personal-token bridge;
// push is reported as unsupported and polling carries all inbound
// state.
package smartthings
