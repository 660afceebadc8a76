package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/body-analyzer/pkg/classifier"
)

func TestRecommendEveryBodyType(t *testing.T) {
	seen := map[string]bool{}
	for _, bt := range classifier.BodyTypes() {
		recs := Recommend(bt.String())
		require.Len(t, recs, 3, bt)
		assert.False(t, IsDefault(recs), bt)
		for _, r := range recs {
			assert.NotEmpty(t, r.Title)
			assert.NotEmpty(t, r.Image)
			assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
			seen[r.ID] = true
		}
	}
}

func TestRecommendUnknownReturnsDefaults(t *testing.T) {
	recs := Recommend("unknown_type")

	require.Len(t, recs, 3)
	assert.Equal(t, "default-1", recs[0].ID)
	assert.Equal(t, "default-2", recs[1].ID)
	assert.Equal(t, "default-3", recs[2].ID)
	assert.True(t, IsDefault(recs))
}

func TestRecommendLooseNames(t *testing.T) {
	want := Recommend("inverted_triangle")
	assert.Equal(t, want, Recommend("Inverted Triangle"))
	assert.Equal(t, want, Recommend("inverted-triangle"))
	assert.Equal(t, "aline-2", want[0].ID)
}

func TestRecommendReturnsCopy(t *testing.T) {
	recs := Recommend("pear")
	recs[0].Title = "changed"
	assert.Equal(t, "A-Line Dress", Recommend("pear")[0].Title)

	defaults := Recommend("")
	defaults[0].ID = "changed"
	assert.Equal(t, "default-1", Recommend("")[0].ID)
}

func TestAdviceFallsBackToRectangle(t *testing.T) {
	assert.Equal(t, Advice("rectangle"), Advice("unknown"))
	assert.Equal(t, Colors("rectangle"), Colors("unknown"))
	assert.Contains(t, Advice("hourglass").WhatWorks, "Belted styles")
	assert.Contains(t, Colors("apple").BestColors, "Navy blue")
}
