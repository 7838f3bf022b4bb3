// Package drivertest provides an in-memory driver.Driver backed by a
// re-rendered element tree, and a simulated diary application built on it.
// Tests use it in place of a real device session.
package drivertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/diaryscope/diaryscope/pkg/driver"
)

// Node is one rendered element. Key must be unique within a render and stable
// for as long as the element stays on screen; handles are resolved by Key.
type Node struct {
	Key      string
	ID       string
	Class    string
	Text     string
	Desc     string
	Rect     driver.Rect
	Children []*Node
	OnClick  func()
}

// Scene produces the current element tree and reacts to gestures.
type Scene interface {
	Render() *Node
	Scroll(from, to driver.Rect, duration time.Duration)
	Back()
}

// Gesture records one ScrollBetween call.
type Gesture struct {
	From, To driver.Rect
	Duration time.Duration
}

// Screen implements driver.Driver over a Scene.
type Screen struct {
	Scene Scene
	// Fail, when set, is consulted before every operation on a handle or
	// locator; a non-nil return is handed back to the caller.
	Fail func(op string, target string) error

	mu       sync.Mutex
	Clicks   []string
	Gestures []Gesture
	Backs    int
}

func NewScreen(scene Scene) *Screen {
	return &Screen{Scene: scene}
}

var _ driver.Driver = (*Screen)(nil)

func (s *Screen) fail(op, target string) error {
	if s.Fail == nil {
		return nil
	}
	return s.Fail(op, target)
}

func (s *Screen) resolve(h driver.Handle) (*Node, error) {
	n := findKey(s.Scene.Render(), string(h))
	if n == nil {
		return nil, fmt.Errorf("%s: %w", h, driver.ErrStale)
	}
	return n, nil
}

func (s *Screen) FindAll(ctx context.Context, loc driver.Locator) ([]driver.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("findAll", loc.String()); err != nil {
		return nil, err
	}
	return handles(query(s.Scene.Render(), loc)), nil
}

func (s *Screen) Find(ctx context.Context, loc driver.Locator) (driver.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("find", loc.String()); err != nil {
		return "", err
	}
	found := query(s.Scene.Render(), loc)
	if len(found) == 0 {
		return "", fmt.Errorf("%s: %w", loc, driver.ErrNotFound)
	}
	return driver.Handle(found[0].Key), nil
}

func (s *Screen) FindAllIn(ctx context.Context, parent driver.Handle, loc driver.Locator) ([]driver.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("findAllIn", string(parent)); err != nil {
		return nil, err
	}
	p, err := s.resolve(parent)
	if err != nil {
		return nil, err
	}
	return handles(query(p, loc)), nil
}

func (s *Screen) FindIn(ctx context.Context, parent driver.Handle, loc driver.Locator) (driver.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("findIn", string(parent)); err != nil {
		return "", err
	}
	p, err := s.resolve(parent)
	if err != nil {
		return "", err
	}
	found := query(p, loc)
	if len(found) == 0 {
		return "", fmt.Errorf("%s in %s: %w", loc, parent, driver.ErrNotFound)
	}
	return driver.Handle(found[0].Key), nil
}

func (s *Screen) Text(ctx context.Context, h driver.Handle) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("text", string(h)); err != nil {
		return "", err
	}
	n, err := s.resolve(h)
	if err != nil {
		return "", err
	}
	return n.Text, nil
}

func (s *Screen) Attribute(ctx context.Context, h driver.Handle, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("attribute", string(h)); err != nil {
		return "", err
	}
	n, err := s.resolve(h)
	if err != nil {
		return "", err
	}
	switch name {
	case "resource-id":
		return n.ID, nil
	case "content-desc":
		return n.Desc, nil
	case "text":
		return n.Text, nil
	case "class":
		return n.Class, nil
	case "displayed":
		return "true", nil
	}
	return "", nil
}

func (s *Screen) Rect(ctx context.Context, h driver.Handle) (driver.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("rect", string(h)); err != nil {
		return driver.Rect{}, err
	}
	n, err := s.resolve(h)
	if err != nil {
		return driver.Rect{}, err
	}
	return n.Rect, nil
}

func (s *Screen) Click(ctx context.Context, h driver.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("click", string(h)); err != nil {
		return err
	}
	n, err := s.resolve(h)
	if err != nil {
		return err
	}
	s.Clicks = append(s.Clicks, n.Key)
	if n.OnClick != nil {
		n.OnClick()
	}
	return nil
}

func (s *Screen) ScrollBetween(ctx context.Context, from, to driver.Handle, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("scroll", string(from)); err != nil {
		return err
	}
	f, err := s.resolve(from)
	if err != nil {
		return err
	}
	t, err := s.resolve(to)
	if err != nil {
		return err
	}
	s.Gestures = append(s.Gestures, Gesture{From: f.Rect, To: t.Rect, Duration: d})
	s.Scene.Scroll(f.Rect, t.Rect, d)
	return nil
}

func (s *Screen) Back(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("back", ""); err != nil {
		return err
	}
	s.Backs++
	s.Scene.Back()
	return nil
}

// ClickCount returns how many clicks landed on nodes whose key starts with prefix.
func (s *Screen) ClickCount(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, k := range s.Clicks {
		if strings.HasPrefix(k, prefix) {
			n++
		}
	}
	return n
}

func handles(nodes []*Node) []driver.Handle {
	out := make([]driver.Handle, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, driver.Handle(n.Key))
	}
	return out
}

func findKey(root *Node, key string) *Node {
	if root == nil {
		return nil
	}
	if root.Key == key {
		return root
	}
	for _, c := range root.Children {
		if n := findKey(c, key); n != nil {
			return n
		}
	}
	return nil
}

// walk visits the descendants of root in document order.
func walk(root *Node, fn func(*Node)) {
	for _, c := range root.Children {
		fn(c)
		walk(c, fn)
	}
}

func query(root *Node, loc driver.Locator) []*Node {
	var out []*Node
	if root == nil {
		return out
	}
	switch loc.Kind {
	case driver.ChildrenOf:
		walk(root, func(n *Node) {
			if n.ID == loc.Value {
				out = append(out, n.Children...)
			}
		})
	case driver.Descendants:
		walk(root, func(n *Node) { out = append(out, n) })
	default:
		walk(root, func(n *Node) {
			if matches(n, loc) {
				out = append(out, n)
			}
		})
	}
	return out
}

func matches(n *Node, loc driver.Locator) bool {
	switch loc.Kind {
	case driver.ByResourceID:
		return n.ID == loc.Value
	case driver.ByContentDesc:
		return n.Desc == loc.Value
	case driver.ByContentDescContaining:
		if n.Desc == "" {
			return false
		}
		for _, p := range loc.Parts {
			if !strings.Contains(n.Desc, p) {
				return false
			}
		}
		return true
	case driver.ByText:
		return n.Text == loc.Value
	case driver.ByClass:
		return n.Class == loc.Value
	case driver.WithContentDesc:
		return n.Desc != ""
	}
	return false
}
