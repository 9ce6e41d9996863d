package scoring

import (
	"testing"

	"github.com/dmitrijs2005/pagenotes/internal/server/models"
	"github.com/stretchr/testify/assert"
)

func TestProject(t *testing.T) {
	v := Project(models.Tally{Helpful: 2, Somewhat: 1, NotHelpful: 1})
	assert.Equal(t, TransparencyView{
		HelpfulCount:             2,
		SomewhatCount:            1,
		NotHelpfulCount:          1,
		PositiveCount:            3,
		TotalRatings:             4,
		MeetsPositiveThreshold:   true,
		MeetsHelpfulRatio:        true,
		MeetsNotHelpfulThreshold: false,
		MeetsNotHelpfulRatio:     false,
		PositiveProgress:         3,
		NegativeProgress:         1,
		MinPositiveNeeded:        3,
	}, v)
}

func TestProject_Empty(t *testing.T) {
	v := Project(models.Tally{})
	assert.True(t, v.MeetsHelpfulRatio)
	assert.True(t, v.MeetsNotHelpfulRatio)
	assert.False(t, v.MeetsPositiveThreshold)
	assert.Zero(t, v.PositiveProgress)
}

func TestProject_ProgressCapped(t *testing.T) {
	v := Project(models.Tally{Helpful: 9, NotHelpful: 5})
	assert.Equal(t, 3, v.PositiveProgress)
	assert.Equal(t, 3, v.NegativeProgress)
	assert.False(t, v.MeetsHelpfulRatio)
	assert.True(t, v.MeetsNotHelpfulThreshold)
}
