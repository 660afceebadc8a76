package recommend

import "github.com/menta2k/body-analyzer/pkg/classifier"

// StyleAdvice lists what works, what to avoid and what to emphasize
type StyleAdvice struct {
	WhatWorks   []string `json:"what_works"`
	WhatToAvoid []string `json:"what_to_avoid"`
	KeyFeatures []string `json:"key_features"`
}

// ColorAdvice lists colours and patterns that suit a body type
type ColorAdvice struct {
	BestColors []string `json:"best_colors"`
	Patterns   []string `json:"patterns"`
}

var advice = map[classifier.BodyType]StyleAdvice{
	classifier.Hourglass: {
		WhatWorks:   []string{"Wrap dresses and tops", "Fit-and-flare silhouettes", "Belted styles", "V-necks and sweetheart necklines"},
		WhatToAvoid: []string{"Boxy or oversized clothing", "Straight-cut dresses", "Shapeless garments"},
		KeyFeatures: []string{"Emphasize your waist", "Choose fitted styles", "Show off your balanced proportions"},
	},
	classifier.Pear: {
		WhatWorks:   []string{"A-line dresses", "Structured shoulders", "Interesting necklines", "Empire waists"},
		WhatToAvoid: []string{"Clingy fabrics on hips", "Tapered or pencil skirts", "Hip pockets"},
		KeyFeatures: []string{"Draw attention upward", "Balance your proportions", "Emphasize your upper body"},
	},
	classifier.Apple: {
		WhatWorks:   []string{"Empire waistlines", "Vertical lines", "Gentle draping", "Deep V-necks"},
		WhatToAvoid: []string{"Tight-fitting waistlines", "Horizontal stripes", "Clingy fabrics at midsection"},
		KeyFeatures: []string{"Create waist definition above your middle", "Elongate your torso", "Choose flowing fabrics"},
	},
	classifier.Rectangle: {
		WhatWorks:   []string{"Belted styles", "Peplum details", "Layering", "Dresses with darts"},
		WhatToAvoid: []string{"Straight, boxy cuts", "Shapeless dresses", "Minimal detailing"},
		KeyFeatures: []string{"Create curves and definition", "Add visual interest", "Emphasize or create a waistline"},
	},
	classifier.InvertedTriangle: {
		WhatWorks:   []string{"A-line skirts", "V-necks", "Fuller bottoms", "Soft fabrics"},
		WhatToAvoid: []string{"Shoulder pads", "Boat necks", "Embellishments on shoulders"},
		KeyFeatures: []string{"Add volume to lower body", "Soften your shoulder line", "Balance your silhouette"},
	},
}

var colors = map[classifier.BodyType]ColorAdvice{
	classifier.Hourglass: {
		BestColors: []string{"Rich jewel tones", "Deep blues", "Emerald green", "Classic black", "Ruby red"},
		Patterns:   []string{"Small to medium prints", "Vertical stripes", "Subtle patterns"},
	},
	classifier.Pear: {
		BestColors: []string{"Bright colors on top", "Pastels", "Light neutrals", "Bold jewel tones"},
		Patterns:   []string{"Patterns on upper body", "Solid colors on bottom", "Horizontal stripes on top"},
	},
	classifier.Apple: {
		BestColors: []string{"Monochromatic looks", "Deep colors", "Rich purples", "Navy blue"},
		Patterns:   []string{"Vertical stripes", "Small all-over prints", "Solid colors"},
	},
	classifier.Rectangle: {
		BestColors: []string{"Bold colors", "Bright hues", "Contrasting colors", "Color blocking"},
		Patterns:   []string{"Large prints", "Geometric patterns", "Mixed patterns"},
	},
	classifier.InvertedTriangle: {
		BestColors: []string{"Dark colors on top", "Light colors on bottom", "Earth tones"},
		Patterns:   []string{"Solid tops", "Patterned bottoms", "Vertical patterns"},
	},
}

// Advice returns style advice; unknown body types get the rectangle advice
func Advice(bodyType string) StyleAdvice {
	a := advice[resolve(bodyType)]
	return StyleAdvice{
		WhatWorks:   append([]string(nil), a.WhatWorks...),
		WhatToAvoid: append([]string(nil), a.WhatToAvoid...),
		KeyFeatures: append([]string(nil), a.KeyFeatures...),
	}
}

// Colors returns colour advice; unknown body types get the rectangle advice
func Colors(bodyType string) ColorAdvice {
	c := colors[resolve(bodyType)]
	return ColorAdvice{
		BestColors: append([]string(nil), c.BestColors...),
		Patterns:   append([]string(nil), c.Patterns...),
	}
}

func resolve(bodyType string) classifier.BodyType {
	bt, err := classifier.ParseBodyType(bodyType)
	if err != nil {
		return classifier.Rectangle
	}
	return bt
}
