// Package recommend holds the static dress and style tables keyed by body type.
package recommend

import (
	"github.com/menta2k/body-analyzer/pkg/classifier"
)

// DressRecommendation is a suggested dress with the reason it suits the body type
type DressRecommendation struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Style  string `json:"style,omitempty"`
	Image  string `json:"image"`
	Reason string `json:"reason"`
}

var dresses = map[classifier.BodyType][]DressRecommendation{
	classifier.Hourglass: {
		{ID: "wrap-1", Title: "Classic Wrap Dress", Style: "wrap", Image: "/dresses/wrap-dress-1.png",
			Reason: "Wrap dresses emphasize your natural waist and balance your proportions perfectly"},
		{ID: "fit-flare-1", Title: "Fit & Flare Midi", Style: "fit-and-flare", Image: "/dresses/fit-flare-1.png",
			Reason: "This style highlights your waist while providing a flattering A-line silhouette"},
		{ID: "bodycon-1", Title: "Bodycon V-Neck", Style: "bodycon", Image: "/dresses/bodycon-1.png",
			Reason: "Shows off your balanced curves with a flattering V-neckline"},
	},
	classifier.Pear: {
		{ID: "aline-1", Title: "A-Line Dress", Style: "a-line", Image: "/dresses/aline-1.png",
			Reason: "A-line silhouette balances your proportions by emphasizing your upper body"},
		{ID: "fit-flare-2", Title: "Structured Fit & Flare", Style: "fit-and-flare", Image: "/dresses/fit-flare-2.png",
			Reason: "Structured bodice draws attention upward while the flare flatters your hips"},
		{ID: "empire-1", Title: "Empire Waist Dress", Style: "empire", Image: "/dresses/empire-1.png",
			Reason: "High waistline creates length and draws attention to your smallest point"},
	},
	classifier.Apple: {
		{ID: "empire-2", Title: "Empire Waist Maxi", Style: "empire", Image: "/dresses/empire-2.png",
			Reason: "Empire waistline creates a defined waist above your midsection"},
		{ID: "shift-1", Title: "Shift Dress", Style: "shift", Image: "/dresses/shift-1.png",
			Reason: "Loose fit with vertical lines creates a streamlined silhouette"},
		{ID: "tunic-1", Title: "Tunic Style Dress", Style: "tunic", Image: "/dresses/tunic-1.png",
			Reason: "Gentle draping and V-neck elongate your torso beautifully"},
	},
	classifier.Rectangle: {
		{ID: "belted-1", Title: "Belted Sheath Dress", Style: "sheath", Image: "/dresses/belted-1.png",
			Reason: "Belt creates definition at the waist to add curves to your silhouette"},
		{ID: "peplum-1", Title: "Peplum Dress", Style: "peplum", Image: "/dresses/peplum-1.png",
			Reason: "Peplum detail adds volume at the hips to create an hourglass shape"},
		{ID: "wrap-2", Title: "Printed Wrap Dress", Style: "wrap", Image: "/dresses/wrap-2.png",
			Reason: "Wrap style with print adds visual interest and creates waist definition"},
	},
	classifier.InvertedTriangle: {
		{ID: "aline-2", Title: "A-Line Midi", Style: "a-line", Image: "/dresses/aline-2.png",
			Reason: "A-line skirt adds volume to your lower half to balance broad shoulders"},
		{ID: "pleated-1", Title: "Pleated Skirt Dress", Style: "pleated", Image: "/dresses/pleated-1.png",
			Reason: "Pleated skirt creates fullness at the hips while V-neck softens shoulders"},
		{ID: "maxi-1", Title: "Flowing Maxi Dress", Style: "maxi", Image: "/dresses/maxi-1.png",
			Reason: "Long, flowing silhouette balances your proportions beautifully"},
	},
}

var defaultDresses = []DressRecommendation{
	{ID: "default-1", Title: "Classic A-Line Dress", Image: "/dresses/aline-1.png",
		Reason: "A universally flattering style that works for most body types"},
	{ID: "default-2", Title: "Wrap Style Dress", Image: "/dresses/wrap-dress-1.png",
		Reason: "Creates a flattering silhouette with adjustable fit"},
	{ID: "default-3", Title: "Fit & Flare Dress", Image: "/dresses/fit-flare-1.png",
		Reason: "Timeless style that enhances your natural shape"},
}

// Recommend returns the dresses for a body type. Names are matched
// loosely ("Inverted Triangle" finds inverted_triangle); anything else gets
// the three-item default list.
func Recommend(bodyType string) []DressRecommendation {
	bt, err := classifier.ParseBodyType(bodyType)
	if err != nil {
		return clone(defaultDresses)
	}
	return clone(dresses[bt])
}

// IsDefault reports whether recs is the fallback list
func IsDefault(recs []DressRecommendation) bool {
	return len(recs) > 0 && recs[0].ID == defaultDresses[0].ID
}

func clone(recs []DressRecommendation) []DressRecommendation {
	return append([]DressRecommendation(nil), recs...)
}
