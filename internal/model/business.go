package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// BusinessType is the coarse business classification used for catering fit.
type BusinessType string

const (
	TypeUnknown            BusinessType = "unknown"
	TypeCorporateOffice    BusinessType = "corporate_office"
	TypeTechCompany        BusinessType = "tech_company"
	TypeMedicalFacility    BusinessType = "medical_facility"
	TypeEducational        BusinessType = "educational"
	TypeManufacturing      BusinessType = "manufacturing"
	TypeWarehouseLogistics BusinessType = "warehouse_logistics"
	TypeGovernment         BusinessType = "government"
	TypeNonprofit          BusinessType = "nonprofit"
	TypeFinancialServices  BusinessType = "financial_services"
	TypeLawFirm            BusinessType = "law_firm"
	TypeHotelHospitality   BusinessType = "hotel_hospitality"
	TypeConferenceCenter   BusinessType = "conference_center"
	TypeCoworkingSpace     BusinessType = "coworking_space"
)

var businessTypeLabels = map[BusinessType]string{
	TypeUnknown:            "Unknown",
	TypeCorporateOffice:    "Corporate Office",
	TypeTechCompany:        "Technology Company",
	TypeMedicalFacility:    "Medical Facility",
	TypeEducational:        "Educational Institution",
	TypeManufacturing:      "Manufacturing",
	TypeWarehouseLogistics: "Warehouse & Logistics",
	TypeGovernment:         "Government Office",
	TypeNonprofit:          "Nonprofit",
	TypeFinancialServices:  "Financial Services",
	TypeLawFirm:            "Law Firm",
	TypeHotelHospitality:   "Hotel & Hospitality",
	TypeConferenceCenter:   "Conference Center",
	TypeCoworkingSpace:     "Coworking Space",
}

// BusinessTypes returns all known business types except unknown, in display order.
func BusinessTypes() []BusinessType {
	return []BusinessType{
		TypeCorporateOffice, TypeTechCompany, TypeMedicalFacility, TypeEducational,
		TypeManufacturing, TypeWarehouseLogistics, TypeGovernment, TypeNonprofit,
		TypeFinancialServices, TypeLawFirm, TypeHotelHospitality, TypeConferenceCenter,
		TypeCoworkingSpace,
	}
}

func (t BusinessType) String() string { return string(t) }

// Label returns the display name of the type.
func (t BusinessType) Label() string {
	if l, ok := businessTypeLabels[t]; ok {
		return l
	}
	return businessTypeLabels[TypeUnknown]
}

// ParseBusinessType parses a type key ("law_firm", "law-firm", "Law Firm").
func ParseBusinessType(s string) (BusinessType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_", "&", "").Replace(key)
	key = strings.ReplaceAll(key, "__", "_")
	t := BusinessType(key)
	if _, ok := businessTypeLabels[t]; ok {
		return t, nil
	}
	for bt, label := range businessTypeLabels {
		if strings.EqualFold(label, strings.TrimSpace(s)) {
			return bt, nil
		}
	}
	return TypeUnknown, eris.Errorf("model: unknown business type %q", s)
}

// BusinessRecord is a single prospect business as reported (and later merged) by providers.
type BusinessRecord struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      BusinessType `json:"type"`
	Address   string       `json:"address,omitempty"`
	City      string       `json:"city,omitempty"`
	State     string       `json:"state,omitempty"`
	ZipCode   string       `json:"zip_code,omitempty"`
	Latitude  float64      `json:"latitude,omitempty"`
	Longitude float64      `json:"longitude,omitempty"`
	Phone     string       `json:"phone,omitempty"`
	Email     string       `json:"email,omitempty"`
	Website   string       `json:"website,omitempty"`

	EmployeeCount  int `json:"employee_count,omitempty"`
	OnSiteEstimate int `json:"on_site_estimate,omitempty"`

	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"review_count,omitempty"`

	BureauRating     string `json:"bureau_rating,omitempty"` // letter grade, e.g. "A+"
	BureauAccredited bool   `json:"bureau_accredited,omitempty"`
	YearsInBusiness  int    `json:"years_in_business,omitempty"`

	HasConferenceRoom bool `json:"has_conference_room,omitempty"`
	HasEventSpace     bool `json:"has_event_space,omitempty"`
	RegularMeetings   bool `json:"regular_meetings,omitempty"`

	// BaseScore is the 0-100 catering potential assigned before rule adjustment.
	BaseScore int `json:"base_score"`

	Summary            string   `json:"summary,omitempty"`
	Highlights         []string `json:"highlights,omitempty"`
	RecommendedActions []string `json:"recommended_actions,omitempty"`

	Tags     []string  `json:"tags,omitempty"`
	Sources  []Source  `json:"sources"`
	Verified bool      `json:"verified,omitempty"`
	Created  time.Time `json:"created_at"`
	Updated  time.Time `json:"updated_at"`
}

// HasFullAddress reports whether a street address is present.
func (b *BusinessRecord) HasFullAddress() bool {
	return strings.TrimSpace(b.Address) != ""
}

// HasContact reports whether a phone number or email is present.
func (b *BusinessRecord) HasContact() bool {
	return strings.TrimSpace(b.Phone) != "" || strings.TrimSpace(b.Email) != ""
}

// EffectiveEmployees returns the larger of the reported head count and the on-site estimate.
func (b *BusinessRecord) EffectiveEmployees() int {
	if b.OnSiteEstimate > b.EmployeeCount {
		return b.OnSiteEstimate
	}
	return b.EmployeeCount
}

// HasCoordinates reports whether the record carries a usable position.
func (b *BusinessRecord) HasCoordinates() bool {
	return b.Latitude != 0 || b.Longitude != 0
}

// HasSource reports whether src already contributed to the record.
func (b *BusinessRecord) HasSource(src Source) bool {
	for _, s := range b.Sources {
		if s == src {
			return true
		}
	}
	return false
}

// FullAddress joins street, city, state and zip into one line.
func (b *BusinessRecord) FullAddress() string {
	var parts []string
	for _, p := range []string{b.Address, b.City, strings.TrimSpace(b.State + " " + b.ZipCode)} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Clone returns a deep copy of the record.
func (b *BusinessRecord) Clone() *BusinessRecord {
	c := *b
	c.Highlights = append([]string(nil), b.Highlights...)
	c.RecommendedActions = append([]string(nil), b.RecommendedActions...)
	c.Tags = append([]string(nil), b.Tags...)
	c.Sources = append([]Source(nil), b.Sources...)
	return &c
}
