// Package scoring adjusts a business's base catering potential with a configurable rule set.
package scoring

import "github.com/sells-group/prospect-cli/internal/model"

// Kind tags a rule as a penalty or a bonus.
type Kind string

const (
	Penalty Kind = "penalty"
	Bonus   Kind = "bonus"
)

// Rule ids.
const (
	RuleMissingAddress       = "missing_address"
	RuleMissingEmployeeCount = "missing_employee_count"
	RuleMissingContact       = "missing_contact"
	RuleVerifiedBusiness     = "verified_business"
	RuleBureauAccredited     = "bureau_accredited"
	RuleHighRating           = "high_rating"
	RuleConferenceRoom       = "conference_room"
	RuleEventSpace           = "event_space"
	RuleLargeEmployer        = "large_employer"
)

// Thresholds used by the default predicates.
const (
	HighRatingThreshold    = 4.5
	LargeEmployerThreshold = 100
)

// Rule adds Points to the score of every business its predicate matches.
type Rule struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        Kind   `json:"kind"`
	Points      int    `json:"points"`
	Default     int    `json:"default_points"`
	Min         int    `json:"min"`
	Max         int    `json:"max"`
	Enabled     bool   `json:"enabled"`

	match func(*model.BusinessRecord) bool
}

// Matches reports whether the rule's predicate holds for b, ignoring Enabled.
func (r Rule) Matches(b *model.BusinessRecord) bool {
	return r.match != nil && r.match(b)
}

func (r Rule) bound(points int) int {
	if points < r.Min {
		return r.Min
	}
	if points > r.Max {
		return r.Max
	}
	return points
}

// DefaultRules returns the factory rule set, all enabled.
func DefaultRules() []Rule {
	rules := []Rule{
		{
			ID: RuleMissingAddress, Name: "Missing address", Kind: Penalty,
			Description: "No street address on record",
			Points:      -10, Min: -25, Max: 0,
			match: func(b *model.BusinessRecord) bool { return !b.HasFullAddress() },
		},
		{
			ID: RuleMissingEmployeeCount, Name: "Missing employee count", Kind: Penalty,
			Description: "Neither an employee count nor an on-site estimate",
			Points:      -3, Min: -15, Max: 0,
			match: func(b *model.BusinessRecord) bool { return b.EffectiveEmployees() <= 0 },
		},
		{
			ID: RuleMissingContact, Name: "Missing contact", Kind: Penalty,
			Description: "No phone and no email",
			Points:      -5, Min: -20, Max: 0,
			match: func(b *model.BusinessRecord) bool { return !b.HasContact() },
		},
		{
			ID: RuleVerifiedBusiness, Name: "Verified business", Kind: Bonus,
			Description: "Listing verified by a source",
			Points:      5, Min: 0, Max: 15,
			match: func(b *model.BusinessRecord) bool { return b.Verified },
		},
		{
			ID: RuleBureauAccredited, Name: "Bureau accredited", Kind: Bonus,
			Description: "Accredited by the business bureau",
			Points:      10, Min: 0, Max: 20,
			match: func(b *model.BusinessRecord) bool { return b.BureauAccredited },
		},
		{
			ID: RuleHighRating, Name: "High rating", Kind: Bonus,
			Description: "Rated 4.5 or higher",
			Points:      5, Min: 0, Max: 15,
			match: func(b *model.BusinessRecord) bool { return b.Rating >= HighRatingThreshold },
		},
		{
			ID: RuleConferenceRoom, Name: "Conference room", Kind: Bonus,
			Description: "Has a conference room",
			Points:      5, Min: 0, Max: 15,
			match: func(b *model.BusinessRecord) bool { return b.HasConferenceRoom },
		},
		{
			ID: RuleEventSpace, Name: "Event space", Kind: Bonus,
			Description: "Has dedicated event space",
			Points:      7, Min: 0, Max: 20,
			match: func(b *model.BusinessRecord) bool { return b.HasEventSpace },
		},
		{
			ID: RuleLargeEmployer, Name: "Large employer", Kind: Bonus,
			Description: "100 or more employees or people on site",
			Points:      8, Min: 0, Max: 20,
			match: func(b *model.BusinessRecord) bool { return b.EffectiveEmployees() >= LargeEmployerThreshold },
		},
	}
	for i := range rules {
		rules[i].Default = rules[i].Points
		rules[i].Enabled = true
	}
	return rules
}
