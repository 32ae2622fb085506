package provider

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/prospect-cli/internal/geo"
	"github.com/sells-group/prospect-cli/internal/model"
)

// The synthetic backends stand in for live directories. Output is a pure function of the
// request, so repeated searches and tests are reproducible. All sources draw from one shared
// local roster, which gives the aggregator overlapping names to merge.

const rosterSize = 18

var nameStems = []string{
	"Summit", "Pinnacle", "Cedar", "Harbor", "Granite", "Meridian", "Northstar", "Riverbend",
	"Keystone", "Evergreen", "Liberty", "Redwood", "Aspen", "Bluebird", "Ironwood", "Lakeside",
	"Silverline", "Crestview",
}

var typeSuffixes = map[model.BusinessType][]string{
	model.TypeCorporateOffice:    {"Corporate Headquarters", "Holdings Headquarters"},
	model.TypeTechCompany:        {"Software", "Technologies", "Labs"},
	model.TypeMedicalFacility:    {"Medical Center", "Health Clinic"},
	model.TypeEducational:        {"University", "Academy"},
	model.TypeManufacturing:      {"Manufacturing", "Industries"},
	model.TypeWarehouseLogistics: {"Logistics", "Distribution"},
	model.TypeGovernment:         {"County Offices"},
	model.TypeNonprofit:          {"Foundation", "Association"},
	model.TypeFinancialServices:  {"Financial", "Credit Union"},
	model.TypeLawFirm:            {"Law Group", "Attorneys LLP"},
	model.TypeHotelHospitality:   {"Hotel", "Suites"},
	model.TypeConferenceCenter:   {"Conference Center", "Event Center"},
	model.TypeCoworkingSpace:     {"Coworking", "Shared Offices"},
}

// employeeRange is [min, max) headcount per type.
var employeeRange = map[model.BusinessType][2]int{
	model.TypeCorporateOffice:    {80, 900},
	model.TypeTechCompany:        {20, 400},
	model.TypeMedicalFacility:    {60, 1200},
	model.TypeEducational:        {40, 800},
	model.TypeManufacturing:      {50, 600},
	model.TypeWarehouseLogistics: {30, 300},
	model.TypeGovernment:         {40, 500},
	model.TypeNonprofit:          {5, 80},
	model.TypeFinancialServices:  {15, 350},
	model.TypeLawFirm:            {8, 150},
	model.TypeHotelHospitality:   {25, 200},
	model.TypeConferenceCenter:   {10, 120},
	model.TypeCoworkingSpace:     {4, 40},
}

var streets = []string{
	"Main St", "Market St", "Broadway", "Commerce Dr", "Park Ave", "Lincoln Blvd",
	"Technology Way", "Industrial Pkwy", "Center St", "Oak St", "Elm St", "Harbor Rd",
}

var bureauGrades = []string{"A+", "A", "A-", "B+", "B", "C"}

// rosterEntry is one business shared by every synthetic source for a request.
type rosterEntry struct {
	name      string
	typ       model.BusinessType
	lat, lon  float64
	address   string
	zip       string
	employees int
}

func seeded(parts ...string) *rand.Rand {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

func stableID(src model.Source, name, address string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(name + "|" + address)))
	return fmt.Sprintf("%s-%08x", src, h.Sum32())
}

func city(label string) string {
	c, _, _ := strings.Cut(label, ",")
	return strings.TrimSpace(c)
}

func slug(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func phone(r *rand.Rand) string {
	return fmt.Sprintf("(%03d) 555-%04d", 200+r.IntN(700), r.IntN(10000))
}

// roster builds the shared business list for a request. Every third name carries the keyword.
func roster(req Request) []rosterEntry {
	r := seeded("roster", req.CacheKey(""))
	types := model.BusinessTypes()
	title := cases.Title(language.English)
	keyword := strings.TrimSpace(req.Keyword)
	radius := req.RadiusMiles
	if radius <= 0 {
		radius = model.DefaultRadiusMiles
	}
	baseZip := 10000 + r.IntN(89000)

	seen := make(map[string]bool, rosterSize)
	out := make([]rosterEntry, 0, rosterSize)
	for attempt := 0; len(out) < rosterSize && attempt < rosterSize*4; attempt++ {
		typ := types[r.IntN(len(types))]
		suffixes := typeSuffixes[typ]
		stem := nameStems[r.IntN(len(nameStems))]
		if keyword != "" && len(out)%3 == 0 {
			stem = title.String(keyword)
		}
		name := stem + " " + suffixes[r.IntN(len(suffixes))]
		if seen[name] {
			continue
		}
		seen[name] = true

		// sqrt spreads points evenly over the disc instead of clustering at the center
		dist := radius * math.Sqrt(r.Float64())
		lat, lon := geo.Offset(req.Latitude, req.Longitude, r.Float64()*360, dist)
		er := employeeRange[typ]
		out = append(out, rosterEntry{
			name:      name,
			typ:       typ,
			lat:       lat,
			lon:       lon,
			address:   fmt.Sprintf("%d %s", 100+r.IntN(9800), streets[r.IntN(len(streets))]),
			zip:       fmt.Sprintf("%05d", baseZip+r.IntN(40)),
			employees: er[0] + r.IntN(er[1]-er[0]),
		})
	}
	return out
}

func syntheticPlaces(req Request) *payload {
	r := seeded(string(model.SourcePlaces), req.CacheKey(model.SourcePlaces))
	p := &payload{}
	for _, e := range roster(req) {
		if r.Float64() > 0.8 {
			continue
		}
		tags := append(PlacesTaxonomy.tagsFor(e.typ), "point_of_interest", "establishment")
		if r.Float64() < 0.15 {
			tags = []string{"point_of_interest", "establishment"}
		}
		reviews := r.IntN(400)
		b := &model.BusinessRecord{
			ID:          stableID(model.SourcePlaces, e.name, e.address),
			Name:        e.name,
			Type:        PlacesTaxonomy.Classify(tags, e.name),
			Address:     e.address,
			City:        city(req.Label),
			ZipCode:     e.zip,
			Latitude:    e.lat,
			Longitude:   e.lon,
			Phone:       phone(r),
			Website:     "https://www." + slug(e.name) + ".com",
			Rating:      math.Round((3.0+r.Float64()*2.0)*10) / 10,
			ReviewCount: reviews,
			Tags:        tags,
			Verified:    reviews > 25,
		}
		b.HasEventSpace = b.Type == model.TypeConferenceCenter || b.Type == model.TypeHotelHospitality
		b.BaseScore = BasePotential(b)
		p.Businesses = append(p.Businesses, b)
	}
	return p
}

func syntheticBureau(req Request) *payload {
	r := seeded(string(model.SourceBureau), req.CacheKey(model.SourceBureau))
	p := &payload{}
	for _, e := range roster(req) {
		if r.Float64() > 0.6 {
			continue
		}
		tags := BureauTaxonomy.tagsFor(e.typ)
		accredited := r.Float64() < 0.5
		b := &model.BusinessRecord{
			ID:               stableID(model.SourceBureau, e.name, e.address),
			Name:             e.name,
			Type:             BureauTaxonomy.Classify(tags, e.name),
			Address:          e.address,
			City:             city(req.Label),
			ZipCode:          e.zip,
			Latitude:         e.lat,
			Longitude:        e.lon,
			Phone:            phone(r),
			Email:            "info@" + slug(e.name) + ".com",
			EmployeeCount:    e.employees,
			BureauRating:     bureauGrades[r.IntN(len(bureauGrades))],
			BureauAccredited: accredited,
			YearsInBusiness:  1 + r.IntN(60),
			Tags:             tags,
			Verified:         accredited,
		}
		b.HasConferenceRoom = e.employees >= 50 && r.Float64() < 0.6
		b.RegularMeetings = e.employees >= 100 && r.Float64() < 0.5
		b.BaseScore = BasePotential(b)
		p.Businesses = append(p.Businesses, b)
	}
	return p
}

func syntheticOpenMap(req Request) *payload {
	r := seeded(string(model.SourceOpenMap), req.CacheKey(model.SourceOpenMap))
	p := &payload{}
	for _, e := range roster(req) {
		if r.Float64() > 0.5 {
			continue
		}
		tags := OpenMapTaxonomy.tagsFor(e.typ)
		b := &model.BusinessRecord{
			ID:        fmt.Sprintf("%s-node-%d", model.SourceOpenMap, 1_000_000+r.IntN(9_000_000)),
			Name:      e.name,
			Type:      OpenMapTaxonomy.Classify(tags, e.name),
			City:      city(req.Label),
			Latitude:  e.lat,
			Longitude: e.lon,
			Tags:      tags,
		}
		if r.Float64() < 0.7 {
			b.Address = e.address
			b.ZipCode = e.zip
		}
		if r.Float64() < 0.4 {
			b.Phone = phone(r)
		}
		if r.Float64() < 0.5 {
			b.Website = "https://" + slug(e.name) + ".org"
		}
		b.HasConferenceRoom = r.Float64() < 0.2
		b.BaseScore = BasePotential(b)
		p.Businesses = append(p.Businesses, b)
	}
	return p
}

func syntheticDemographics(req Request) *payload {
	r := seeded(string(model.SourceDemographics), req.CacheKey(model.SourceDemographics))
	radius := req.RadiusMiles
	if radius <= 0 {
		radius = model.DefaultRadiusMiles
	}
	n := 5 + r.IntN(4)
	baseZip := 10000 + r.IntN(89000)
	p := &payload{}
	for i := 0; i < n; i++ {
		zip := fmt.Sprintf("%05d", baseZip+i*3)
		lat, lon := geo.Offset(req.Latitude, req.Longitude, float64(i)*360/float64(n), radius*(0.2+0.6*r.Float64()))
		pop := 5000 + r.IntN(55000)
		a := &model.AreaRecord{
			ID:            fmt.Sprintf("%s-%s", model.SourceDemographics, zip),
			Name:          fmt.Sprintf("%s %s", nameStems[r.IntN(len(nameStems))], "District"),
			ZipCode:       zip,
			Latitude:      lat,
			Longitude:     lon,
			Population:    pop,
			BusinessCount: pop / (15 + r.IntN(25)),
			Workforce:     int(float64(pop) * (0.45 + 0.25*r.Float64())),
			MedianIncome:  40000 + r.IntN(100000),
		}
		if c := city(req.Label); c != "" {
			a.Name = c + " " + zip
		}
		a.MarketPotential = MarketPotential(a)
		p.Areas = append(p.Areas, a)
	}
	return p
}
