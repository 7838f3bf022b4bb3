package drivertest

import (
	"strconv"
	"time"

	"github.com/diaryscope/diaryscope/pkg/app"
	"github.com/diaryscope/diaryscope/pkg/driver"
)

// List is a bare scrollable list of text rows above the application ribbon,
// optionally closed by an end marker row.
type List struct {
	Items      []string
	RowHeight  int
	OverlayTop int
	// Height is the screen height; rows are rendered down to it, under the
	// overlay.
	Height int
	// EndMarker appends a final row with resource-id "end".
	EndMarker bool

	Offset  int
	Scrolls int
}

// NewList returns a list of 100 pixel rows on a 1100 pixel screen whose
// bottom 100 pixels are covered by the ribbon.
func NewList(items ...string) *List {
	return &List{Items: items, RowHeight: 100, OverlayTop: 1000, Height: 1100, EndMarker: true}
}

func (l *List) rows() int {
	n := len(l.Items)
	if l.EndMarker {
		n++
	}
	return n
}

func (l *List) maxOffset() int {
	return max(0, l.rows()*l.RowHeight-l.OverlayTop+l.RowHeight/2)
}

func (l *List) Render() *Node {
	root := &Node{Key: "root", Rect: driver.Rect{Width: ScreenWidth, Height: l.Height}}
	for i := 0; i < l.rows(); i++ {
		top := i*l.RowHeight - l.Offset
		bottom := top + l.RowHeight
		if bottom <= 0 || top >= l.Height {
			continue
		}
		y := max(top, 0)
		rect := driver.Rect{Y: y, Width: ScreenWidth, Height: min(bottom, l.Height) - y}
		if i == len(l.Items) {
			root.Children = append(root.Children, &Node{Key: "end", ID: "end", Rect: rect})
			continue
		}
		root.Children = append(root.Children, &Node{Key: "item:" + strconv.Itoa(i), ID: "item", Text: l.Items[i], Rect: rect})
	}
	root.Children = append(root.Children, &Node{
		Key:  "ribbon",
		ID:   app.BottomContainer,
		Rect: driver.Rect{Y: l.OverlayTop, Width: ScreenWidth, Height: l.Height - l.OverlayTop},
	})
	return root
}

func (l *List) Scroll(from, to driver.Rect, _ time.Duration) {
	l.Scrolls++
	l.Offset = min(max(l.Offset+from.Y-to.Y, 0), l.maxOffset())
}

func (l *List) Back() {}
