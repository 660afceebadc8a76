package classifier

import (
	"fmt"
	"strings"
)

// BodyType is one of five proportion-based silhouette categories
type BodyType string

const (
	Hourglass        BodyType = "hourglass"
	Pear             BodyType = "pear"
	Apple            BodyType = "apple"
	Rectangle        BodyType = "rectangle"
	InvertedTriangle BodyType = "inverted_triangle"
)

// BodyTypes returns every known body type in a stable order
func BodyTypes() []BodyType {
	return []BodyType{Hourglass, Pear, Apple, Rectangle, InvertedTriangle}
}

// ParseBodyType accepts any casing and treats spaces and dashes as underscores
func ParseBodyType(s string) (BodyType, error) {
	key := NormalizeKey(s)
	for _, bt := range BodyTypes() {
		if NormalizeKey(string(bt)) == key {
			return bt, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBodyType, s)
}

// NormalizeKey folds a body type name to a comparable key:
// "Inverted Triangle", "inverted-triangle" and "inverted_triangle" all match.
func NormalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(s)
}

func (b BodyType) String() string {
	return string(b)
}

// Label returns the human readable form, e.g. "inverted triangle"
func (b BodyType) Label() string {
	return strings.ReplaceAll(string(b), "_", " ")
}

var descriptions = map[BodyType]string{
	Hourglass:        "Balanced proportions with a defined waist, similar shoulder and hip measurements",
	Pear:             "Hips are wider than shoulders, with a smaller upper body",
	Apple:            "Fuller midsection with less defined waist, broader shoulders",
	Rectangle:        "Similar measurements throughout, straight silhouette",
	InvertedTriangle: "Broader shoulders than hips, athletic build",
}

// Description explains what a body type looks like
func Description(bodyType string) string {
	bt, err := ParseBodyType(bodyType)
	if err != nil {
		return "Unknown body type"
	}
	return descriptions[bt]
}

var styleTips = map[BodyType][]string{
	Hourglass: {
		"Emphasize your waist with belts or fitted styles",
		"Choose wrap dresses or fit-and-flare silhouettes",
		"V-necks and sweetheart necklines are flattering",
		"Avoid boxy or oversized clothing that hides your curves",
	},
	Pear: {
		"Balance your proportions with structured shoulders",
		"Choose A-line and fit-and-flare dresses",
		"Emphasize your upper body with interesting necklines",
		"Avoid clingy fabrics around the hip area",
	},
	Apple: {
		"Create a defined waist with empire waistlines",
		"Choose dresses with gentle draping and vertical lines",
		"Deeper necklines help elongate your torso",
		"Avoid tight-fitting clothes around the midsection",
	},
	Rectangle: {
		"Create curves with belted styles and peplum details",
		"Choose dresses with darts or seaming for shape",
		"Layer to add visual interest and dimension",
		"Avoid straight, boxy silhouettes",
	},
	InvertedTriangle: {
		"Balance your silhouette with A-line skirts",
		"Choose V-necks to soften your shoulder line",
		"Add volume to your lower half with pleats or ruffles",
		"Avoid shoulder pads or embellishments at the shoulder",
	},
}

// StyleTips returns short styling tips for a body type
func StyleTips(bodyType string) []string {
	bt, err := ParseBodyType(bodyType)
	if err != nil {
		return []string{"Consult with a stylist for personalized advice"}
	}
	return append([]string(nil), styleTips[bt]...)
}
