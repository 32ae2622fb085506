package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/prospect-cli/internal/model"
)

// HighPotentialScore is the score at which a prospect counts as high potential.
const HighPotentialScore = 60

// Narrative describes a result set in plain sentences. It is local and cheap.
func Narrative(rs *model.ResultSet) string {
	var high, featured, accredited, businesses, areas int
	for _, it := range rs.Items {
		if it.Kind == model.KindArea {
			areas++
			continue
		}
		businesses++
		if it.OverallScore >= HighPotentialScore {
			high++
		}
		if it.Business.HasConferenceRoom || it.Business.HasEventSpace {
			featured++
		}
		if it.Business.BureauAccredited {
			accredited++
		}
	}

	radius := rs.Query.RadiusMiles
	if radius <= 0 {
		radius = model.DefaultRadiusMiles
	}

	var sentences []string
	if rs.Anchor.Fallback {
		sentences = append(sentences, fmt.Sprintf("Location %q could not be resolved, so results are centered on %s.",
			strings.TrimSpace(rs.Query.Location), rs.Anchor.Label))
	}

	if businesses == 0 && areas == 0 {
		sentences = append(sentences, fmt.Sprintf("No prospects found within %g miles of %s.", radius, rs.Anchor.Label))
	} else {
		found := fmt.Sprintf("Found %s", plural(businesses, "prospect", "prospects"))
		if areas > 0 {
			found += " and " + plural(areas, "market area", "market areas")
		}
		sentences = append(sentences, fmt.Sprintf("%s within %g miles of %s.", found, radius, rs.Anchor.Label))
	}

	if businesses > 0 {
		sentences = append(sentences,
			fmt.Sprintf("%s high potential (score %d or above).", isAre(high), HighPotentialScore),
			fmt.Sprintf("%s a conference room or event space.", hasHave(featured)),
			fmt.Sprintf("%s bureau accredited.", isAre(accredited)),
		)
	}

	if len(rs.SourceErrors) > 0 {
		labels := make([]string, 0, len(rs.SourceErrors))
		for src := range rs.SourceErrors {
			labels = append(labels, src.Label())
		}
		sort.Strings(labels)
		sentences = append(sentences, fmt.Sprintf("Coverage is partial: %s returned no data.", strings.Join(labels, ", ")))
	}
	return strings.Join(sentences, " ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

func isAre(n int) string {
	if n == 1 {
		return "1 is"
	}
	return fmt.Sprintf("%d are", n)
}

func hasHave(n int) string {
	if n == 1 {
		return "1 has"
	}
	return fmt.Sprintf("%d have", n)
}
