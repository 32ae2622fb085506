package insight

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Thresholds shared by the local templates.
const (
	highPotential   = 60
	largeHeadcount  = 100
	denseMarket     = 500
	strongRating    = 4.5
	affluentIncome  = 75000
	thinMarketPop   = 5000
	localConfidence = 0.6
)

// LocalEngine builds insights from record fields with fixed templates. It never fails on a
// non-nil record and makes no network calls.
type LocalEngine struct{}

// NewLocal returns the local engine.
func NewLocal() *LocalEngine { return &LocalEngine{} }

// Name implements Engine.
func (*LocalEngine) Name() string { return NameLocal }

// AnalyzeBusiness implements Engine.
func (*LocalEngine) AnalyzeBusiness(_ context.Context, b *model.BusinessRecord) (*BusinessInsight, error) {
	if b == nil {
		return nil, eris.New("insight: nil business")
	}
	emp := b.EffectiveEmployees()

	var highlights []string
	if emp > 0 {
		highlights = append(highlights, fmt.Sprintf("About %d people on site", emp))
	}
	if b.HasConferenceRoom {
		highlights = append(highlights, "Has a conference room for catered meetings")
	}
	if b.HasEventSpace {
		highlights = append(highlights, "Has dedicated event space")
	}
	if b.RegularMeetings {
		highlights = append(highlights, "Holds regular meetings")
	}
	if b.BureauAccredited {
		grade := ""
		if b.BureauRating != "" {
			grade = " (" + b.BureauRating + ")"
		}
		highlights = append(highlights, "Bureau accredited"+grade)
	}
	if b.Rating >= strongRating {
		highlights = append(highlights, fmt.Sprintf("Rated %.1f from %d reviews", b.Rating, b.ReviewCount))
	}
	if b.YearsInBusiness >= 10 {
		highlights = append(highlights, fmt.Sprintf("%d years in business", b.YearsInBusiness))
	}

	var actions []string
	switch {
	case b.HasEventSpace:
		actions = append(actions, "Pitch event catering packages for their venue")
	case b.HasConferenceRoom || b.RegularMeetings:
		actions = append(actions, "Offer a recurring meeting lunch program")
	case emp >= largeHeadcount:
		actions = append(actions, "Propose a staff appreciation lunch")
	default:
		actions = append(actions, "Introduce drop-off catering with a sample menu")
	}
	if b.HasContact() {
		contact := b.Phone
		if contact == "" {
			contact = b.Email
		}
		actions = append(actions, "Reach the office manager at "+contact)
	} else {
		actions = append(actions, "Find a contact before outreach")
	}
	if !b.HasFullAddress() {
		actions = append(actions, "Confirm the street address")
	}

	size := "small"
	switch {
	case emp >= largeHeadcount:
		size = "large"
	case emp >= 25:
		size = "mid-sized"
	case emp == 0:
		size = "unsized"
	}
	where := b.City
	if where == "" {
		where = "the search area"
	}
	summary := fmt.Sprintf("%s is a %s %s in %s with a base potential of %d.",
		b.Name, size, strings.ToLower(b.Type.Label()), where, b.BaseScore)

	confidence := localConfidence
	if emp == 0 || !b.HasContact() {
		confidence -= 0.2
	}

	return &BusinessInsight{
		Summary:            summary,
		Highlights:         highlights,
		RecommendedActions: actions,
		MatchReason:        matchReason(b),
		Confidence:         confidence,
		Engine:             NameLocal,
	}, nil
}

func matchReason(b *model.BusinessRecord) string {
	switch {
	case b.HasEventSpace:
		return "Event space suggests regular catered functions"
	case b.HasConferenceRoom:
		return "Conference room suggests catered meetings"
	case b.EffectiveEmployees() >= largeHeadcount:
		return "Large on-site headcount"
	case b.BaseScore >= highPotential:
		return "High base potential for " + strings.ToLower(b.Type.Label())
	}
	return "Nearby " + strings.ToLower(b.Type.Label())
}

// AnalyzeMarket implements Engine.
func (*LocalEngine) AnalyzeMarket(_ context.Context, areas []*model.AreaRecord, businesses []*model.BusinessRecord) (*MarketInsight, error) {
	var pop, workforce, bizCount, incomeSum, incomeN, potentialSum int
	for _, a := range areas {
		pop += a.Population
		workforce += a.Workforce
		bizCount += a.BusinessCount
		potentialSum += a.MarketPotential
		if a.MedianIncome > 0 {
			incomeSum += a.MedianIncome
			incomeN++
		}
	}

	byType := make(map[model.BusinessType]int)
	var high, venues int
	for _, b := range businesses {
		byType[b.Type]++
		if b.BaseScore >= highPotential {
			high++
		}
		if b.HasConferenceRoom || b.HasEventSpace {
			venues++
		}
	}

	var sentences []string
	if len(areas) > 0 {
		sentences = append(sentences, fmt.Sprintf("%d areas with %d residents, a workforce of %d and %d businesses; average market potential %d.",
			len(areas), pop, workforce, bizCount, potentialSum/len(areas)))
	}
	if len(businesses) > 0 {
		sentences = append(sentences, fmt.Sprintf("%d prospects, %d high potential, %d with meeting or event space.", len(businesses), high, venues))
	}
	if len(sentences) == 0 {
		sentences = append(sentences, "No market data available for this search.")
	}

	out := &MarketInsight{OverallAnalysis: strings.Join(sentences, " "), Engine: NameLocal}

	if top := topTypes(byType, 2); len(top) > 0 {
		out.Recommendations = append(out.Recommendations, "Focus outreach on "+strings.Join(top, " and "))
	}
	if venues > 0 {
		out.Recommendations = append(out.Recommendations, "Lead with event catering for venues")
	}
	if high > 0 {
		out.Opportunities = append(out.Opportunities, fmt.Sprintf("%d high-potential prospects ready for outreach", high))
	}
	if bizCount >= denseMarket {
		out.Opportunities = append(out.Opportunities, "Dense business market supports recurring delivery routes")
	}
	if incomeN > 0 && incomeSum/incomeN >= affluentIncome {
		out.Opportunities = append(out.Opportunities, "Affluent area supports premium menus")
	}
	if len(areas) > 0 && pop < thinMarketPop {
		out.Risks = append(out.Risks, "Small population may limit repeat orders")
	}
	if len(businesses) > 0 && high == 0 {
		out.Risks = append(out.Risks, "No high-potential prospects found")
	}
	if len(businesses) == 0 {
		out.Risks = append(out.Risks, "No businesses found to validate demand")
	}
	return out, nil
}

func topTypes(counts map[model.BusinessType]int, n int) []string {
	types := make([]model.BusinessType, 0, len(counts))
	for t := range counts {
		if t != model.TypeUnknown && t != "" {
			types = append(types, t)
		}
	}
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return types[i] < types[j]
	})
	if len(types) > n {
		types = types[:n]
	}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = strings.ToLower(t.Label())
	}
	return out
}

// GenerateSearchSummary implements Engine.
func (e *LocalEngine) GenerateSearchSummary(ctx context.Context, rs *model.ResultSet) (string, error) {
	if rs == nil {
		return "", eris.New("insight: nil result set")
	}
	var areas []*model.AreaRecord
	var businesses []*model.BusinessRecord
	for _, it := range rs.Items {
		if it.Area != nil {
			areas = append(areas, it.Area)
		}
		if it.Business != nil {
			businesses = append(businesses, it.Business)
		}
	}
	m, err := e.AnalyzeMarket(ctx, areas, businesses)
	if err != nil {
		return "", err
	}
	summary := m.OverallAnalysis
	if len(m.Recommendations) > 0 {
		summary += " " + m.Recommendations[0] + "."
	}
	return summary, nil
}
