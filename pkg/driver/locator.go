package driver

import (
	"fmt"
	"strings"
)

// LocatorKind selects how a Locator matches elements.
type LocatorKind int

const (
	// ByResourceID matches elements whose resource-id equals Value.
	ByResourceID LocatorKind = iota + 1
	// ByContentDesc matches elements whose content-desc equals Value.
	ByContentDesc
	// ByContentDescContaining matches elements whose content-desc contains every Parts entry.
	ByContentDescContaining
	// ByText matches elements whose text equals Value.
	ByText
	// ByClass matches elements whose class equals Value.
	ByClass
	// WithContentDesc matches every element carrying a content-desc attribute.
	WithContentDesc
	// ChildrenOf matches the direct children of elements whose resource-id equals Value.
	ChildrenOf
	// Descendants matches every descendant of the search root.
	Descendants
)

// Locator is a structured element query. Backends that speak XPath render it
// with XPath; simulated backends match it directly.
type Locator struct {
	Kind  LocatorKind
	Value string
	Parts []string
}

func ID(resourceID string) Locator { return Locator{Kind: ByResourceID, Value: resourceID} }

func Desc(contentDesc string) Locator { return Locator{Kind: ByContentDesc, Value: contentDesc} }

func DescContaining(parts ...string) Locator {
	return Locator{Kind: ByContentDescContaining, Parts: parts}
}

func Text(text string) Locator { return Locator{Kind: ByText, Value: text} }

func Class(class string) Locator { return Locator{Kind: ByClass, Value: class} }

func AnyContentDesc() Locator { return Locator{Kind: WithContentDesc} }

func Children(resourceID string) Locator { return Locator{Kind: ChildrenOf, Value: resourceID} }

func AllDescendants() Locator { return Locator{Kind: Descendants} }

// XPath renders the locator as an absolute (//) or relative (.//) path.
func (l Locator) XPath(relative bool) string {
	prefix := "//"
	if relative {
		prefix = ".//"
	}
	switch l.Kind {
	case ByResourceID:
		return prefix + "*[@resource-id=" + quote(l.Value) + "]"
	case ByContentDesc:
		return prefix + "*[@content-desc=" + quote(l.Value) + "]"
	case ByContentDescContaining:
		conds := make([]string, 0, len(l.Parts))
		for _, p := range l.Parts {
			conds = append(conds, "contains(@content-desc, "+quote(p)+")")
		}
		return prefix + "*[" + strings.Join(conds, " and ") + "]"
	case ByText:
		return prefix + "*[@text=" + quote(l.Value) + "]"
	case ByClass:
		return prefix + l.Value
	case WithContentDesc:
		return prefix + "*[@content-desc]"
	case ChildrenOf:
		return prefix + "*[@resource-id=" + quote(l.Value) + "]/child::*"
	case Descendants:
		return prefix + "child::*"
	}
	return ""
}

func (l Locator) String() string {
	return l.XPath(false)
}

// quote produces an XPath 1.0 string literal. XPath has no escape sequences,
// so values holding both quote characters are split with concat().
func quote(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	out := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			out = append(out, `"'"`)
		}
		out = append(out, "'"+p+"'")
	}
	return fmt.Sprintf("concat(%s)", strings.Join(out, ", "))
}
