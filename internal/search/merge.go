package search

import (
	"strings"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/provider"
)

// merge flattens responses in the order given. The first response that carries businesses is
// the primary and is inserted as-is. A later business whose trimmed name exactly matches an inserted business is
// folded into it; otherwise it is inserted. Areas are always appended.
func merge(responses []*provider.Response) []*model.ResultItem {
	var items []*model.ResultItem
	byName := make(map[string]*model.ResultItem)
	havePrimary := false

	for _, resp := range responses {
		primary := !havePrimary && len(resp.Businesses) > 0
		havePrimary = havePrimary || primary
		for _, b := range resp.Businesses {
			if b == nil {
				continue
			}
			key := strings.TrimSpace(b.Name)
			if existing, ok := byName[key]; ok && !primary && key != "" {
				MergeBusiness(existing.Business, b)
				existing.Sources = append([]model.Source(nil), existing.Business.Sources...)
				continue
			}
			it := model.NewBusinessItem(b)
			items = append(items, it)
			if _, seen := byName[key]; !seen {
				byName[key] = it
			}
		}
		for _, a := range resp.Areas {
			if a != nil {
				items = append(items, model.NewAreaItem(a))
			}
		}
	}
	return items
}

// MergeBusiness copies into dst every field that dst lacks and src has, and appends src's
// sources to dst's provenance. Fields dst already has are never changed, so dst keeps its id
// and name.
func MergeBusiness(dst, src *model.BusinessRecord) {
	fillString(&dst.Address, src.Address)
	fillString(&dst.City, src.City)
	fillString(&dst.State, src.State)
	fillString(&dst.ZipCode, src.ZipCode)
	fillString(&dst.Phone, src.Phone)
	fillString(&dst.Email, src.Email)
	fillString(&dst.Website, src.Website)
	fillString(&dst.BureauRating, src.BureauRating)
	fillString(&dst.Summary, src.Summary)

	if dst.Type == "" || dst.Type == model.TypeUnknown {
		dst.Type = src.Type
	}
	if !dst.HasCoordinates() && src.HasCoordinates() {
		dst.Latitude, dst.Longitude = src.Latitude, src.Longitude
	}

	fillInt(&dst.EmployeeCount, src.EmployeeCount)
	fillInt(&dst.OnSiteEstimate, src.OnSiteEstimate)
	fillInt(&dst.ReviewCount, src.ReviewCount)
	fillInt(&dst.YearsInBusiness, src.YearsInBusiness)
	fillInt(&dst.BaseScore, src.BaseScore)
	if dst.Rating == 0 {
		dst.Rating = src.Rating
	}

	dst.BureauAccredited = dst.BureauAccredited || src.BureauAccredited
	dst.HasConferenceRoom = dst.HasConferenceRoom || src.HasConferenceRoom
	dst.HasEventSpace = dst.HasEventSpace || src.HasEventSpace
	dst.RegularMeetings = dst.RegularMeetings || src.RegularMeetings
	dst.Verified = dst.Verified || src.Verified

	if len(dst.Highlights) == 0 {
		dst.Highlights = append([]string(nil), src.Highlights...)
	}
	if len(dst.RecommendedActions) == 0 {
		dst.RecommendedActions = append([]string(nil), src.RecommendedActions...)
	}
	dst.Tags = appendMissing(dst.Tags, src.Tags...)
	for _, s := range src.Sources {
		if !dst.HasSource(s) {
			dst.Sources = append(dst.Sources, s)
		}
	}
	if src.Updated.After(dst.Updated) {
		dst.Updated = src.Updated
	}
}

func fillString(dst *string, src string) {
	if strings.TrimSpace(*dst) == "" && strings.TrimSpace(src) != "" {
		*dst = src
	}
}

func fillInt(dst *int, src int) {
	if *dst == 0 {
		*dst = src
	}
}

func appendMissing(dst []string, vals ...string) []string {
	for _, v := range vals {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
