// Package visibility decides whether a rendered element is worth showing to the model.
package visibility

import (
	"strconv"
	"strings"

	"vision-crawler/internal/domain/entity"
)

// IsVisible reports whether the element and every ancestor pass the style
// test and the element's box lies fully inside the viewport.
func IsVisible(el *entity.ElementSnapshot, vp entity.Viewport) bool {
	if el == nil {
		return false
	}
	if !StyleVisible(el.Style) {
		return false
	}
	for _, ancestor := range el.Ancestors {
		if !StyleVisible(ancestor) {
			return false
		}
	}
	return InViewport(el.Box, vp)
}

// StyleVisible applies the per-node computed style test.
func StyleVisible(s entity.ComputedStyle) bool {
	return !isZero(s.Width) &&
		!isZero(s.Height) &&
		!isZero(s.Opacity) &&
		strings.TrimSpace(s.Display) != "none" &&
		strings.TrimSpace(s.Visibility) != "hidden"
}

func InViewport(r entity.Rect, vp entity.Viewport) bool {
	return r.Top() >= 0 &&
		r.Left() >= 0 &&
		r.Bottom() <= vp.Height &&
		r.Right() <= vp.Width
}

// isZero treats "0", "0px", "0.0" as zero. Empty and keyword values such as
// "auto" are not zero.
func isZero(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	v = strings.TrimSuffix(v, "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return false
	}
	return f == 0
}
