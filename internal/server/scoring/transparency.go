package scoring

import "github.com/dmitrijs2005/pagenotes/internal/server/models"

// TransparencyView explains a note's progress toward both thresholds.
type TransparencyView struct {
	HelpfulCount    int `json:"helpful_count"`
	SomewhatCount   int `json:"somewhat_count"`
	NotHelpfulCount int `json:"not_helpful_count"`
	PositiveCount   int `json:"positive_count"`
	TotalRatings    int `json:"total_ratings"`

	MeetsPositiveThreshold   bool `json:"meets_positive_threshold"`
	MeetsHelpfulRatio        bool `json:"meets_helpful_ratio"`
	MeetsNotHelpfulThreshold bool `json:"meets_not_helpful_threshold"`
	MeetsNotHelpfulRatio     bool `json:"meets_not_helpful_ratio"`

	PositiveProgress  int `json:"positive_progress"`
	NegativeProgress  int `json:"negative_progress"`
	MinPositiveNeeded int `json:"min_positive_needed"`
}

// Project builds the transparency view for a tally.
func Project(t models.Tally) TransparencyView {
	pos, neg := t.Positive(), t.Negative()
	return TransparencyView{
		HelpfulCount:    t.Helpful,
		SomewhatCount:   t.Somewhat,
		NotHelpfulCount: neg,
		PositiveCount:   pos,
		TotalRatings:    t.Total(),

		MeetsPositiveThreshold:   pos >= MinVotes,
		MeetsHelpfulRatio:        neg == 0 || pos > RatioFactor*neg,
		MeetsNotHelpfulThreshold: neg >= MinVotes,
		MeetsNotHelpfulRatio:     pos == 0 || neg > RatioFactor*pos,

		PositiveProgress:  min(pos, MinVotes),
		NegativeProgress:  min(neg, MinVotes),
		MinPositiveNeeded: MinVotes,
	}
}
