package smartthings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stbridge/media-bridge-core/internal/capability"
	"github.com/stbridge/media-bridge-core/internal/infrastructure/config"
)

// DefaultBaseURL is the SmartThings public API endpoint.
const DefaultBaseURL = "https://api.smartthings.com/v1"

const defaultRequestTimeout = 15 * time.Second

// mainComponent is the device component the bridge talks to. Multi
// component devices (e.g. soundbar + subwoofer) expose the player on
// main.
const mainComponent = "main"

// Client is a capability.Client backed by the SmartThings REST API
// with a static personal access token.
//
// The SmartThings event stream requires an OAuth SmartApp registration,
// which a personal access token cannot provide, so Subscribe reports
// push as unsupported and the sync controller falls back to polling.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a SmartThings API client from config.
func New(cfg config.SmartThingsConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := defaultRequestTimeout
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
	}
}

// deviceResponse mirrors GET /devices/{id}.
type deviceResponse struct {
	DeviceID   string `json:"deviceId"`
	Label      string `json:"label"`
	Components []struct {
		ID           string `json:"id"`
		Capabilities []struct {
			ID      string `json:"id"`
			Version int    `json:"version"`
		} `json:"capabilities"`
	} `json:"components"`
}

// ListCapabilities returns the capability identifiers of the device's
// main component, vendor capabilities included; filtering to the known
// set is the profile layer's job.
func (c *Client) ListCapabilities(ctx context.Context, deviceID string) ([]capability.ID, error) {
	var dev deviceResponse
	if err := c.get(ctx, fmt.Sprintf("/devices/%s", deviceID), &dev); err != nil {
		return nil, err
	}

	for _, comp := range dev.Components {
		if comp.ID != mainComponent {
			continue
		}
		ids := make([]capability.ID, 0, len(comp.Capabilities))
		for _, cap := range comp.Capabilities {
			ids = append(ids, capability.ID(cap.ID))
		}
		return ids, nil
	}
	return nil, fmt.Errorf("%w: device %s has no main component", ErrAPI, deviceID)
}

// statusResponse mirrors GET /devices/{id}/status.
type statusResponse struct {
	Components map[string]map[string]map[string]attributeValue `json:"components"`
}

type attributeValue struct {
	Value     any       `json:"value"`
	Unit      string    `json:"unit,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// GetStatus returns every attribute of the main component as a batch
// of poll-sourced reports. Attributes with a null value are skipped;
// the device has never populated them.
func (c *Client) GetStatus(ctx context.Context, deviceID string) ([]capability.AttributeReport, error) {
	var status statusResponse
	if err := c.get(ctx, fmt.Sprintf("/devices/%s/status", deviceID), &status); err != nil {
		return nil, err
	}

	caps, ok := status.Components[mainComponent]
	if !ok {
		return nil, fmt.Errorf("%w: device %s has no main component status", ErrAPI, deviceID)
	}

	var reports []capability.AttributeReport
	for capID, attrs := range caps {
		for attr, av := range attrs {
			if av.Value == nil {
				continue
			}
			reports = append(reports, capability.AttributeReport{
				Capability: capability.ID(capID),
				Attribute:  attr,
				Value:      av.Value,
				Timestamp:  av.Timestamp,
				Source:     capability.SourcePoll,
			})
		}
	}
	return reports, nil
}

// commandsRequest mirrors POST /devices/{id}/commands.
type commandsRequest struct {
	Commands []wireCommand `json:"commands"`
}

type wireCommand struct {
	Component  string `json:"component"`
	Capability string `json:"capability"`
	Command    string `json:"command"`
	Arguments  []any  `json:"arguments,omitempty"`
}

// SendCommand executes one capability command on the device. A nil
// return is transport acknowledgment only.
func (c *Client) SendCommand(ctx context.Context, deviceID string, cmd capability.Command) error {
	body := commandsRequest{
		Commands: []wireCommand{{
			Component:  mainComponent,
			Capability: string(cmd.Capability),
			Command:    cmd.Command,
			Arguments:  cmd.Arguments,
		}},
	}
	return c.post(ctx, fmt.Sprintf("/devices/%s/commands", deviceID), body)
}

// Subscribe reports push as unsupported; see the Client doc comment.
func (c *Client) Subscribe(ctx context.Context, deviceID string) (<-chan capability.AttributeReport, error) {
	return nil, capability.ErrPushUnsupported
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %w", ErrAPI, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", ErrUnauthorized, resp.StatusCode, snippet)
	case http.StatusNotFound:
		return fmt.Errorf("%w: status %d: %s", ErrDeviceNotFound, resp.StatusCode, snippet)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %s", ErrRateLimited, resp.StatusCode, snippet)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrAPI, resp.StatusCode, snippet)
	}
}
