package diary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diaryscope/diaryscope/internal/utils"
	"github.com/diaryscope/diaryscope/pkg/app"
	"github.com/diaryscope/diaryscope/pkg/collector"
	"github.com/diaryscope/diaryscope/pkg/driver"
)

// ErrMacroMismatch is returned when a day's macro detail cannot be read in full.
var ErrMacroMismatch = errors.New("macro detail mismatch")

const (
	// MaxMacroPasses bounds the scrolling of the food detail screen.
	MaxMacroPasses = 8
	macroGesture   = 500 * time.Millisecond
)

// MacroRecord is the food detail screen of one diary item, as displayed.
type MacroRecord struct {
	Meal               string `json:"meal"`
	Time               string `json:"time"`
	Name               string `json:"name"`
	Units              string `json:"units"`
	Servings           string `json:"servings"`
	Calories           string `json:"calories"`
	Carbohydrates      string `json:"carbohydrates"`
	Fat                string `json:"fat"`
	Protein            string `json:"protein"`
	VitaminA           string `json:"vitamin a"`
	Cholesterol        string `json:"cholesterol"`
	SaturatedFat       string `json:"saturated fat"`
	PolyunsaturatedFat string `json:"polyunsaturated fat"`
	MonounsaturatedFat string `json:"monounsaturated fat"`
	TransFat           string `json:"trans fat"`
	Sodium             string `json:"sodium"`
	Potassium          string `json:"potassium"`
	Fiber              string `json:"fiber"`
	Sugar              string `json:"sugar"`
	VitaminC           string `json:"vitamin c"`
	Calcium            string `json:"calcium"`
	Iron               string `json:"iron"`
}

func (m *MacroRecord) field(name string) *string {
	switch name {
	case "meal":
		return &m.Meal
	case "time":
		return &m.Time
	case "name":
		return &m.Name
	case "units":
		return &m.Units
	case "servings":
		return &m.Servings
	case "calories":
		return &m.Calories
	case "carbohydrates":
		return &m.Carbohydrates
	case "fat":
		return &m.Fat
	case "protein":
		return &m.Protein
	case "vitamin a":
		return &m.VitaminA
	case "cholesterol":
		return &m.Cholesterol
	case "saturated fat":
		return &m.SaturatedFat
	case "polyunsaturated fat":
		return &m.PolyunsaturatedFat
	case "monounsaturated fat":
		return &m.MonounsaturatedFat
	case "trans fat":
		return &m.TransFat
	case "sodium":
		return &m.Sodium
	case "potassium":
		return &m.Potassium
	case "fiber":
		return &m.Fiber
	case "sugar":
		return &m.Sugar
	case "vitamin c":
		return &m.VitaminC
	case "calcium":
		return &m.Calcium
	case "iron":
		return &m.Iron
	}
	return nil
}

// Set stores value under the archive field name. It reports false for
// unknown names.
func (m *MacroRecord) Set(name, value string) bool {
	f := m.field(name)
	if f == nil {
		return false
	}
	*f = value
	return true
}

// Get returns the value stored under the archive field name.
func (m *MacroRecord) Get(name string) string {
	if f := m.field(name); f != nil {
		return *f
	}
	return ""
}

// MacroReader reads the food detail screen, scrolling it until every field
// has been seen fully uncovered.
type MacroReader struct {
	Driver  driver.Driver
	Overlay collector.Overlay
	Fields  []app.MacroField
}

func NewMacroReader(d driver.Driver) *MacroReader {
	return &MacroReader{Driver: d, Overlay: collector.Overlay{Driver: d}, Fields: app.MacroFields}
}

type placed struct {
	handle driver.Handle
	y      int
}

func (r *MacroReader) Read(ctx context.Context) (MacroRecord, error) {
	var rec MacroRecord
	read := make(map[string]bool, len(r.Fields))
	var last placed
	for pass := 1; pass <= MaxMacroPasses; pass++ {
		overlayTop, covered, err := r.Overlay.Top(ctx)
		if err != nil {
			return rec, err
		}
		var top, bottom *placed
		for _, f := range r.Fields {
			h, ok, err := driver.FindOptional(ctx, r.Driver, driver.ID(f.ResourceID))
			if err != nil {
				return rec, err
			}
			if !ok {
				continue
			}
			rect, err := r.Driver.Rect(ctx, h)
			if err != nil {
				return rec, err
			}
			if covered && collector.ObscuredLevel(rect, overlayTop) != 0 {
				continue
			}
			// Fields read on an earlier pass still anchor the scroll.
			p := &placed{handle: h, y: rect.Y}
			if top == nil || p.y < top.y {
				top = p
			}
			if bottom == nil || p.y > bottom.y {
				bottom = p
			}
			if read[f.Name] {
				continue
			}
			text, err := r.Driver.Text(ctx, h)
			if err != nil {
				return rec, err
			}
			rec.Set(f.Name, text)
			read[f.Name] = true
		}
		if len(read) == len(r.Fields) {
			return rec, nil
		}
		if top == nil || top.handle == bottom.handle || *top == last {
			break
		}
		last = *top
		utils.Log.Debugf("Read %d of %d macro fields after pass %d", len(read), len(r.Fields), pass)
		if err := r.Driver.ScrollBetween(ctx, bottom.handle, top.handle, macroGesture); err != nil {
			return rec, err
		}
	}

	var missing []string
	for _, f := range r.Fields {
		if !read[f.Name] {
			missing = append(missing, f.Name)
		}
	}
	return rec, fmt.Errorf("missing %s: %w", strings.Join(missing, ", "), ErrMacroMismatch)
}
