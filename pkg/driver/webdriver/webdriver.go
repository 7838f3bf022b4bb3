// Package webdriver implements driver.Driver against a W3C WebDriver server
// such as Appium, using the UiAutomator2 XPath locator strategy.
package webdriver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/diaryscope/diaryscope/pkg/driver"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
)

// W3C and legacy JSON wire element reference keys.
const (
	elementKey       = "element-6066-11e4-a52f-4a5d7de9c0b3"
	legacyElementKey = "ELEMENT"
)

// Error is a WebDriver error the driver package has no sentinel for.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("webdriver: %s (HTTP %d): %s", e.Code, e.Status, e.Message)
}

type Config struct {
	// URL is the server's base URL, e.g. http://127.0.0.1:4723.
	URL          string
	Capabilities map[string]interface{}
	// Timeout bounds every request, retries excluded.
	Timeout time.Duration
	Retries int
}

// Client is a WebDriver session. It is not safe for concurrent use.
type Client struct {
	base    string
	http    *retryablehttp.Client
	session string
	caps    map[string]interface{}
}

var _ driver.Driver = (*Client)(nil)

func New(cfg Config) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.CheckRetry = checkRetry
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.Timeout > 0 {
		retryClient.HTTPClient.Timeout = cfg.Timeout
	}
	return &Client{
		base: strings.TrimRight(cfg.URL, "/"),
		http: retryClient,
		caps: cfg.Capabilities,
	}
}

// checkRetry retries transport failures and gateway errors only. Every other
// status carries a WebDriver error that a retry would repeat.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

func mapError(status int, code, message string) error {
	switch code {
	case "no such element":
		return fmt.Errorf("%s: %w", message, driver.ErrNotFound)
	case "stale element reference":
		return fmt.Errorf("%s: %w", message, driver.ErrStale)
	case "timeout", "script timeout":
		return fmt.Errorf("%s: %w", message, driver.ErrTimeout)
	}
	return &Error{Status: status, Code: code, Message: message}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (gjson.Result, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return gjson.Result{}, err
		}
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return gjson.Result{}, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return gjson.Result{}, fmt.Errorf("%s %s: %w", method, path, driver.ErrTimeout)
		}
		return gjson.Result{}, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, err
	}

	value := gjson.GetBytes(raw, "value")
	if code := value.Get("error"); code.Exists() {
		return value, mapError(resp.StatusCode, code.String(), value.Get("message").String())
	}
	if resp.StatusCode >= 400 {
		return value, &Error{Status: resp.StatusCode, Code: "unknown error", Message: strings.TrimSpace(string(raw))}
	}
	return value, nil
}

// NewSession starts a session with the configured capabilities.
func (c *Client) NewSession(ctx context.Context) error {
	body := map[string]interface{}{
		"capabilities": map[string]interface{}{"alwaysMatch": c.caps},
	}
	value, err := c.do(ctx, http.MethodPost, "/session", body)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	id := value.Get("sessionId").String()
	if id == "" {
		return errors.New("creating session: no session id in response")
	}
	c.session = id
	return nil
}

// Attach reuses a session created elsewhere.
func (c *Client) Attach(sessionID string) { c.session = sessionID }

func (c *Client) SessionID() string { return c.session }

// Close deletes the session.
func (c *Client) Close(ctx context.Context) error {
	if c.session == "" {
		return nil
	}
	_, err := c.do(ctx, http.MethodDelete, "/session/"+c.session, nil)
	c.session = ""
	return err
}

func (c *Client) sessionPath(parts ...string) string {
	p := "/session/" + c.session
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func elementID(v gjson.Result) driver.Handle {
	if id := v.Get(elementKey); id.Exists() {
		return driver.Handle(id.String())
	}
	return driver.Handle(v.Get(legacyElementKey).String())
}

func locate(loc driver.Locator, relative bool) map[string]string {
	return map[string]string{"using": "xpath", "value": loc.XPath(relative)}
}

func (c *Client) FindAll(ctx context.Context, loc driver.Locator) ([]driver.Handle, error) {
	value, err := c.do(ctx, http.MethodPost, c.sessionPath("elements"), locate(loc, false))
	if err != nil {
		return nil, err
	}
	return handles(value), nil
}

func (c *Client) Find(ctx context.Context, loc driver.Locator) (driver.Handle, error) {
	value, err := c.do(ctx, http.MethodPost, c.sessionPath("element"), locate(loc, false))
	if err != nil {
		return "", err
	}
	return elementID(value), nil
}

func (c *Client) FindAllIn(ctx context.Context, parent driver.Handle, loc driver.Locator) ([]driver.Handle, error) {
	value, err := c.do(ctx, http.MethodPost, c.sessionPath("element", string(parent), "elements"), locate(loc, true))
	if err != nil {
		return nil, err
	}
	return handles(value), nil
}

func (c *Client) FindIn(ctx context.Context, parent driver.Handle, loc driver.Locator) (driver.Handle, error) {
	value, err := c.do(ctx, http.MethodPost, c.sessionPath("element", string(parent), "element"), locate(loc, true))
	if err != nil {
		return "", err
	}
	return elementID(value), nil
}

func handles(value gjson.Result) []driver.Handle {
	arr := value.Array()
	out := make([]driver.Handle, 0, len(arr))
	for _, v := range arr {
		out = append(out, elementID(v))
	}
	return out
}

func (c *Client) Text(ctx context.Context, h driver.Handle) (string, error) {
	value, err := c.do(ctx, http.MethodGet, c.sessionPath("element", string(h), "text"), nil)
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

func (c *Client) Attribute(ctx context.Context, h driver.Handle, name string) (string, error) {
	value, err := c.do(ctx, http.MethodGet, c.sessionPath("element", string(h), "attribute", name), nil)
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

func (c *Client) Rect(ctx context.Context, h driver.Handle) (driver.Rect, error) {
	value, err := c.do(ctx, http.MethodGet, c.sessionPath("element", string(h), "rect"), nil)
	if err != nil {
		return driver.Rect{}, err
	}
	return driver.Rect{
		X:      int(value.Get("x").Float()),
		Y:      int(value.Get("y").Float()),
		Width:  int(value.Get("width").Float()),
		Height: int(value.Get("height").Float()),
	}, nil
}

func (c *Client) Click(ctx context.Context, h driver.Handle) error {
	_, err := c.do(ctx, http.MethodPost, c.sessionPath("element", string(h), "click"), map[string]interface{}{})
	return err
}

// ScrollBetween performs a one-finger touch drag between the two element
// centers.
func (c *Client) ScrollBetween(ctx context.Context, from, to driver.Handle, duration time.Duration) error {
	fr, err := c.Rect(ctx, from)
	if err != nil {
		return err
	}
	tr, err := c.Rect(ctx, to)
	if err != nil {
		return err
	}
	fx, fy := fr.Center()
	tx, ty := tr.Center()
	actions := map[string]interface{}{
		"actions": []interface{}{
			map[string]interface{}{
				"type":       "pointer",
				"id":         "finger1",
				"parameters": map[string]string{"pointerType": "touch"},
				"actions": []interface{}{
					map[string]interface{}{"type": "pointerMove", "duration": 0, "x": fx, "y": fy},
					map[string]interface{}{"type": "pointerDown", "button": 0},
					map[string]interface{}{"type": "pointerMove", "duration": duration.Milliseconds(), "origin": "viewport", "x": tx, "y": ty},
					map[string]interface{}{"type": "pointerUp", "button": 0},
				},
			},
		},
	}
	_, err = c.do(ctx, http.MethodPost, c.sessionPath("actions"), actions)
	return err
}

func (c *Client) Back(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, c.sessionPath("back"), map[string]interface{}{})
	return err
}

// Source returns the XML page source of the current screen.
func (c *Client) Source(ctx context.Context) (string, error) {
	value, err := c.do(ctx, http.MethodGet, c.sessionPath("source"), nil)
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// Ping checks that the server answers its status endpoint.
func (c *Client) Ping(ctx context.Context) error {
	value, err := c.do(ctx, http.MethodGet, "/status", nil)
	if err != nil {
		return err
	}
	if ready := value.Get("ready"); ready.Exists() && !ready.Bool() {
		return fmt.Errorf("server not ready: %s", value.Get("message").String())
	}
	return nil
}
