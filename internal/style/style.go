// Package style rewrites 3D tileset style records. A style maps channel
// names (color, labelColor, show, ...) to declarative expressions.
package style

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedStyle is returned when a color expression cannot be parsed.
var ErrMalformedStyle = errors.New("malformed style expression")

// Style is a declarative tileset style.
type Style map[string]string

const (
	ChannelColor      = "color"
	ChannelLabelColor = "labelColor"
	ChannelShow       = "show"
)

// Clone returns a shallow copy of s. A nil style clones to an empty one.
func (s Style) Clone() Style {
	out := make(Style, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ClampOpacity bounds v to [0,1]. NaN becomes 1.
func ClampOpacity(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 1
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// FormatOpacity renders an opacity the way it is written in expressions and
// permalinks: shortest decimal form, no exponent.
func FormatOpacity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WithOpacity returns a copy of s whose color channel carries opacity.
//
// The channel is color, or labelColor when only that one is set. The
// expression name(args) keeps its arguments up to the alpha channel and gets
// the new opacity appended; rgb is promoted to rgba. A style without a color
// channel gets color("white", opacity). s is never modified.
func WithOpacity(s Style, opacity float64) (Style, error) {
	opacity = ClampOpacity(opacity)
	out := s.Clone()

	channel := ""
	switch {
	case s[ChannelColor] != "":
		channel = ChannelColor
	case s[ChannelLabelColor] != "":
		channel = ChannelLabelColor
	default:
		out[ChannelColor] = fmt.Sprintf(`color("white", %s)`, FormatOpacity(opacity))
		return out, nil
	}

	name, args, err := splitColor(s[channel])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", channel, err)
	}
	out[channel] = fmt.Sprintf("%s(%s, %s)", name, args, FormatOpacity(opacity))
	return out, nil
}

// splitColor parses name(args) and returns the function name, normalized to
// rgba for rgb, and the arguments that precede the alpha channel.
func splitColor(expr string) (string, string, error) {
	expr = strings.TrimSpace(expr)
	open := strings.IndexByte(expr, '(')
	if open <= 0 {
		return "", "", fmt.Errorf("%w: %q has no function call", ErrMalformedStyle, expr)
	}
	name := strings.TrimSpace(expr[:open])

	var end int
	if name == "rgba" {
		end = strings.LastIndexByte(expr, ',')
		if end < open {
			return "", "", fmt.Errorf("%w: %q has no alpha argument", ErrMalformedStyle, expr)
		}
	} else {
		end = matchingParen(expr, open)
		if end < 0 {
			return "", "", fmt.Errorf("%w: %q has unbalanced parentheses", ErrMalformedStyle, expr)
		}
	}

	args := strings.TrimSpace(expr[open+1 : end])
	if args == "" {
		return "", "", fmt.Errorf("%w: %q has no arguments", ErrMalformedStyle, expr)
	}
	if name == "rgb" {
		name = "rgba"
	}
	return name, args, nil
}

// matchingParen returns the index of the ')' closing the '(' at open, or -1.
// Parentheses inside quoted strings are ignored.
func matchingParen(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
