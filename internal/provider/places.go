package provider

import (
	"context"
	"strings"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/google"
)

// prospectPlaceTypes restricts nearby search to the kinds of places that order group catering.
var prospectPlaceTypes = []string{
	"corporate_office", "coworking_space", "convention_center", "event_venue", "hospital",
	"university", "local_government_office", "bank", "accounting", "lawyer", "insurance_agency",
}

// placesFetch queries Google Places: text search when the request has a keyword, nearby search
// otherwise. Closed businesses are skipped.
func placesFetch(client google.Client) fetchFunc {
	return func(ctx context.Context, req Request) (*payload, error) {
		area := google.NewArea(req.Latitude, req.Longitude, req.RadiusMiles)

		var (
			resp *google.SearchResponse
			err  error
		)
		if kw := strings.TrimSpace(req.Keyword); kw != "" {
			query := kw
			if req.Label != "" {
				query += " near " + req.Label
			}
			resp, err = client.TextSearch(ctx, google.TextSearchRequest{
				TextQuery:      query,
				LocationBias:   area,
				MaxResultCount: req.EffectiveLimit(),
			})
		} else {
			resp, err = client.SearchNearby(ctx, google.NearbySearchRequest{
				IncludedTypes:       prospectPlaceTypes,
				LocationRestriction: *area,
				MaxResultCount:      req.EffectiveLimit(),
				RankPreference:      "DISTANCE",
			})
		}
		if err != nil {
			return nil, err
		}

		p := &payload{}
		for _, pl := range resp.Places {
			if pl.BusinessStatus != "" && pl.BusinessStatus != "OPERATIONAL" {
				continue
			}
			p.Businesses = append(p.Businesses, placeToBusiness(pl))
		}
		return p, nil
	}
}

func placeToBusiness(pl google.Place) *model.BusinessRecord {
	tags := pl.Types
	if pl.PrimaryType != "" {
		tags = append([]string{pl.PrimaryType}, pl.Types...)
	}
	b := &model.BusinessRecord{
		ID:          string(model.SourcePlaces) + "-" + pl.ID,
		Name:        strings.TrimSpace(pl.DisplayName.Text),
		Type:        PlacesTaxonomy.Classify(tags, pl.DisplayName.Text),
		City:        pl.Component("locality"),
		State:       pl.Component("administrative_area_level_1"),
		ZipCode:     pl.Component("postal_code"),
		Phone:       pl.NationalPhoneNumber,
		Website:     pl.WebsiteURI,
		Rating:      pl.Rating,
		ReviewCount: pl.UserRatingCount,
		Tags:        pl.Types,
		Verified:    pl.BusinessStatus == "OPERATIONAL",
	}
	if addr, _, ok := strings.Cut(pl.FormattedAddress, ","); ok {
		b.Address = strings.TrimSpace(addr)
	} else {
		b.Address = strings.TrimSpace(pl.FormattedAddress)
	}
	if pl.Location != nil {
		b.Latitude, b.Longitude = pl.Location.Latitude, pl.Location.Longitude
	}
	b.HasEventSpace = b.Type == model.TypeConferenceCenter
	b.BaseScore = BasePotential(b)
	return b
}
