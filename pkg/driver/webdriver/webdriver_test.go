package webdriver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/diaryscope/diaryscope/pkg/driver"
	"github.com/tidwall/gjson"
)

type fakeServer struct {
	mu          sync.Mutex
	unavailable int
	requests    []string
	actions     string
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	if f.unavailable > 0 {
		f.unavailable--
		f.mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	reply := func(status int, value string) {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"value":%s}`, value)
	}
	werror := func(status int, code string) {
		reply(status, fmt.Sprintf(`{"error":%q,"message":"fake %s","stacktrace":""}`, code, code))
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/session":
		if gjson.GetBytes(body, "capabilities.alwaysMatch.platformName").String() != "Android" {
			werror(http.StatusBadRequest, "session not created")
			return
		}
		reply(http.StatusOK, `{"sessionId":"s1","capabilities":{}}`)
	case r.Method == http.MethodDelete && r.URL.Path == "/session/s1":
		reply(http.StatusOK, `null`)
	case r.URL.Path == "/session/s1/element":
		switch gjson.GetBytes(body, "value").String() {
		case "//*[@resource-id='pkg:id/btnDate']":
			reply(http.StatusOK, `{"element-6066-11e4-a52f-4a5d7de9c0b3":"e1"}`)
		case "//*[@text='legacy']":
			reply(http.StatusOK, `{"ELEMENT":"e9"}`)
		default:
			werror(http.StatusNotFound, "no such element")
		}
	case r.URL.Path == "/session/s1/elements":
		reply(http.StatusOK, `[{"element-6066-11e4-a52f-4a5d7de9c0b3":"e1"},{"element-6066-11e4-a52f-4a5d7de9c0b3":"e2"}]`)
	case r.URL.Path == "/session/s1/element/e1/elements":
		if gjson.GetBytes(body, "value").String() != ".//*[@resource-id='pkg:id/txtCalories']" {
			reply(http.StatusOK, `[]`)
			return
		}
		reply(http.StatusOK, `[{"element-6066-11e4-a52f-4a5d7de9c0b3":"e3"}]`)
	case r.URL.Path == "/session/s1/element/e1/text":
		reply(http.StatusOK, `"Today, Jan 4"`)
	case r.URL.Path == "/session/s1/element/e1/attribute/content-desc":
		reply(http.StatusOK, `"Sat, Jan 4"`)
	case r.URL.Path == "/session/s1/element/e1/rect":
		reply(http.StatusOK, `{"x":0,"y":100.0,"width":1080,"height":150}`)
	case r.URL.Path == "/session/s1/element/e2/rect":
		reply(http.StatusOK, `{"x":0,"y":1500,"width":1080,"height":150}`)
	case r.URL.Path == "/session/s1/element/e1/click":
		reply(http.StatusOK, `null`)
	case r.URL.Path == "/session/s1/element/gone/click":
		werror(http.StatusNotFound, "stale element reference")
	case r.URL.Path == "/session/s1/element/slow/click":
		werror(http.StatusInternalServerError, "timeout")
	case r.URL.Path == "/session/s1/element/bad/click":
		werror(http.StatusInternalServerError, "unknown error")
	case r.URL.Path == "/session/s1/actions":
		f.mu.Lock()
		f.actions = string(body)
		f.mu.Unlock()
		reply(http.StatusOK, `null`)
	case r.URL.Path == "/session/s1/back":
		reply(http.StatusOK, `null`)
	case r.URL.Path == "/session/s1/source":
		reply(http.StatusOK, `"<hierarchy/>"`)
	case r.URL.Path == "/status":
		reply(http.StatusOK, `{"ready":true,"message":"ok"}`)
	default:
		werror(http.StatusNotFound, "unknown command")
	}
}

func newTestClient(t *testing.T, f *fakeServer) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c := New(Config{
		URL:          srv.URL + "/",
		Capabilities: map[string]interface{}{"platformName": "Android"},
		Timeout:      5 * time.Second,
		Retries:      3,
	})
	c.http.RetryWaitMin = time.Millisecond
	c.http.RetryWaitMax = time.Millisecond
	if err := c.NewSession(context.Background()); err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return c
}

func TestSession(t *testing.T) {
	f := &fakeServer{}
	c := newTestClient(t, f)
	if c.SessionID() != "s1" {
		t.Fatalf("SessionID() = %q, want s1", c.SessionID())
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if c.SessionID() != "" {
		t.Errorf("SessionID() after Close = %q", c.SessionID())
	}

	bad := New(Config{URL: c.base, Capabilities: map[string]interface{}{"platformName": "iOS"}})
	err := bad.NewSession(context.Background())
	var wdErr *Error
	if !errors.As(err, &wdErr) || wdErr.Code != "session not created" {
		t.Errorf("NewSession() error = %v, want session not created", err)
	}
}

func TestAttach(t *testing.T) {
	f := &fakeServer{}
	srv := httptest.NewServer(f)
	defer srv.Close()
	c := New(Config{URL: srv.URL})
	c.Attach("s1")

	h, err := c.Find(context.Background(), driver.ID("pkg:id/btnDate"))
	if err != nil || h != "e1" {
		t.Fatalf("Find() = %q, %v", h, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r == "POST /session" {
			t.Errorf("attached client created a session: %v", f.requests)
		}
	}
}

func TestFind(t *testing.T) {
	c := newTestClient(t, &fakeServer{})
	ctx := context.Background()

	h, err := c.Find(ctx, driver.ID("pkg:id/btnDate"))
	if err != nil || h != "e1" {
		t.Fatalf("Find() = %q, %v", h, err)
	}
	h, err = c.Find(ctx, driver.Text("legacy"))
	if err != nil || h != "e9" {
		t.Errorf("Find(legacy) = %q, %v", h, err)
	}
	if _, err := c.Find(ctx, driver.ID("pkg:id/missing")); !errors.Is(err, driver.ErrNotFound) {
		t.Errorf("Find(missing) error = %v, want ErrNotFound", err)
	}

	all, err := c.FindAll(ctx, driver.AnyContentDesc())
	if err != nil || len(all) != 2 || all[1] != "e2" {
		t.Errorf("FindAll() = %v, %v", all, err)
	}
	in, err := c.FindAllIn(ctx, "e1", driver.ID("pkg:id/txtCalories"))
	if err != nil || len(in) != 1 || in[0] != "e3" {
		t.Errorf("FindAllIn() = %v, %v", in, err)
	}
	in, err = c.FindAllIn(ctx, "e1", driver.ID("pkg:id/other"))
	if err != nil || len(in) != 0 {
		t.Errorf("FindAllIn(other) = %v, %v", in, err)
	}
}

func TestElementCommands(t *testing.T) {
	c := newTestClient(t, &fakeServer{})
	ctx := context.Background()

	if text, err := c.Text(ctx, "e1"); err != nil || text != "Today, Jan 4" {
		t.Errorf("Text() = %q, %v", text, err)
	}
	if desc, err := c.Attribute(ctx, "e1", "content-desc"); err != nil || desc != "Sat, Jan 4" {
		t.Errorf("Attribute() = %q, %v", desc, err)
	}
	want := driver.Rect{X: 0, Y: 100, Width: 1080, Height: 150}
	if r, err := c.Rect(ctx, "e1"); err != nil || r != want {
		t.Errorf("Rect() = %+v, %v, want %+v", r, err, want)
	}
	if err := c.Click(ctx, "e1"); err != nil {
		t.Errorf("Click() error = %v", err)
	}
	if err := c.Back(ctx); err != nil {
		t.Errorf("Back() error = %v", err)
	}
	if src, err := c.Source(ctx); err != nil || src != "<hierarchy/>" {
		t.Errorf("Source() = %q, %v", src, err)
	}
}

func TestErrorMapping(t *testing.T) {
	c := newTestClient(t, &fakeServer{})
	tests := []struct {
		handle driver.Handle
		want   error
	}{
		{"gone", driver.ErrStale},
		{"slow", driver.ErrTimeout},
	}
	for _, tt := range tests {
		if err := c.Click(context.Background(), tt.handle); !errors.Is(err, tt.want) {
			t.Errorf("Click(%s) error = %v, want %v", tt.handle, err, tt.want)
		}
	}

	err := c.Click(context.Background(), "bad")
	var wdErr *Error
	if !errors.As(err, &wdErr) || wdErr.Status != http.StatusInternalServerError {
		t.Errorf("Click(bad) error = %v, want *Error", err)
	}
	if driver.IsTransient(err) {
		t.Errorf("Click(bad) error should not be transient")
	}
}

func TestScrollBetween(t *testing.T) {
	f := &fakeServer{}
	c := newTestClient(t, f)
	if err := c.ScrollBetween(context.Background(), "e2", "e1", 500*time.Millisecond); err != nil {
		t.Fatalf("ScrollBetween() error = %v", err)
	}
	steps := gjson.Get(f.actions, "actions.0.actions").Array()
	if len(steps) != 4 {
		t.Fatalf("got %d pointer steps, want 4: %s", len(steps), f.actions)
	}
	if gjson.Get(f.actions, "actions.0.parameters.pointerType").String() != "touch" {
		t.Errorf("pointer type = %s", gjson.Get(f.actions, "actions.0.parameters.pointerType"))
	}
	start, end := steps[0], steps[2]
	if start.Get("x").Int() != 540 || start.Get("y").Int() != 1575 {
		t.Errorf("start = (%d, %d), want (540, 1575)", start.Get("x").Int(), start.Get("y").Int())
	}
	if end.Get("y").Int() != 175 || end.Get("duration").Int() != 500 {
		t.Errorf("end = %s, want y 175 after 500ms", end.Raw)
	}
}

func TestRetryOnUnavailable(t *testing.T) {
	f := &fakeServer{}
	c := newTestClient(t, f)

	f.mu.Lock()
	f.unavailable = 2
	f.requests = nil
	f.mu.Unlock()
	if _, err := c.Text(context.Background(), "e1"); err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if len(f.requests) != 3 {
		t.Errorf("got %d requests, want 3", len(f.requests))
	}

	f.mu.Lock()
	f.unavailable = 10
	f.mu.Unlock()
	_, err := c.Text(context.Background(), "e1")
	var wdErr *Error
	if !errors.As(err, &wdErr) || wdErr.Status != http.StatusServiceUnavailable {
		t.Errorf("Text() error = %v, want HTTP 503 after retries", err)
	}
}

func TestNoRetryOnWebDriverError(t *testing.T) {
	f := &fakeServer{}
	c := newTestClient(t, f)
	f.requests = nil
	if _, err := c.Find(context.Background(), driver.ID("missing")); !errors.Is(err, driver.ErrNotFound) {
		t.Fatalf("Find() error = %v", err)
	}
	if len(f.requests) != 1 {
		t.Errorf("got %d requests, want 1", len(f.requests))
	}
}

func TestCancelledContext(t *testing.T) {
	c := newTestClient(t, &fakeServer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Text(ctx, "e1"); !errors.Is(err, context.Canceled) {
		t.Errorf("Text() error = %v, want context.Canceled", err)
	}
}

func TestInspect(t *testing.T) {
	source := `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy index="0" class="hierarchy" rotation="0" width="1080" height="2400">
  <android.widget.FrameLayout index="0" class="android.widget.FrameLayout" bounds="[0,0][1080,2400]">
    <android.widget.TextView index="0" class="android.widget.TextView" text="Diary" resource-id="" bounds="[0,80][300,160]" />
    <android.widget.Button index="1" class="android.widget.Button" text="Today" resource-id="com.myfitnesspal.android:id/btnDate" content-desc="" bounds="[300,200][780,300]" />
    <android.view.View$Inner index="2" class="android.view.View" content-desc="Diary" resource-id="com.myfitnesspal.android:id/action_diary" bounds="[270,2200][540,2400]"/>
  </android.widget.FrameLayout>
</hierarchy>`
	elements, err := Inspect(source)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if len(elements) != 5 {
		t.Fatalf("Inspect() returned %d elements, want 5: %+v", len(elements), elements)
	}

	want := []struct {
		depth int
		class string
		label bool
	}{
		{0, "hierarchy", false},
		{1, "android.widget.FrameLayout", false},
		{2, "android.widget.TextView", true},
		{2, "android.widget.Button", true},
		{2, "android.view.View", true},
	}
	for i, w := range want {
		e := elements[i]
		if e.Depth != w.depth || e.Class != w.class || e.Labelled() != w.label {
			t.Errorf("element %d = %+v, want depth %d class %s labelled %v", i, e, w.depth, w.class, w.label)
		}
	}
	if got := elements[3].ResourceID; got != "com.myfitnesspal.android:id/btnDate" {
		t.Errorf("ResourceID = %q", got)
	}
	if got := elements[4].ContentDesc; got != "Diary" {
		t.Errorf("ContentDesc = %q", got)
	}
}
