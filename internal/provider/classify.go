package provider

import (
	"strings"

	"github.com/sells-group/prospect-cli/internal/model"
)

// tagRule maps one provider taxonomy tag to a business type.
type tagRule struct {
	tag string
	typ model.BusinessType
}

// Taxonomy is an ordered tag table. Earlier rules win over later ones regardless of the order
// tags appear on a record.
type Taxonomy []tagRule

// PlacesTaxonomy maps Google Places types.
var PlacesTaxonomy = Taxonomy{
	{"convention_center", model.TypeConferenceCenter},
	{"event_venue", model.TypeConferenceCenter},
	{"banquet_hall", model.TypeConferenceCenter},
	{"coworking_space", model.TypeCoworkingSpace},
	{"hospital", model.TypeMedicalFacility},
	{"medical_lab", model.TypeMedicalFacility},
	{"doctor", model.TypeMedicalFacility},
	{"dentist", model.TypeMedicalFacility},
	{"university", model.TypeEducational},
	{"school", model.TypeEducational},
	{"secondary_school", model.TypeEducational},
	{"city_hall", model.TypeGovernment},
	{"courthouse", model.TypeGovernment},
	{"local_government_office", model.TypeGovernment},
	{"embassy", model.TypeGovernment},
	{"lawyer", model.TypeLawFirm},
	{"bank", model.TypeFinancialServices},
	{"accounting", model.TypeFinancialServices},
	{"insurance_agency", model.TypeFinancialServices},
	{"hotel", model.TypeHotelHospitality},
	{"lodging", model.TypeHotelHospitality},
	{"storage", model.TypeWarehouseLogistics},
	{"moving_company", model.TypeWarehouseLogistics},
	{"corporate_office", model.TypeCorporateOffice},
}

// BureauTaxonomy maps business-bureau directory categories.
var BureauTaxonomy = Taxonomy{
	{"conference centers", model.TypeConferenceCenter},
	{"event venues", model.TypeConferenceCenter},
	{"office space rental", model.TypeCoworkingSpace},
	{"hospitals", model.TypeMedicalFacility},
	{"physicians & surgeons", model.TypeMedicalFacility},
	{"colleges & universities", model.TypeEducational},
	{"schools", model.TypeEducational},
	{"government offices", model.TypeGovernment},
	{"attorneys", model.TypeLawFirm},
	{"banks", model.TypeFinancialServices},
	{"financial services", model.TypeFinancialServices},
	{"insurance", model.TypeFinancialServices},
	{"hotels", model.TypeHotelHospitality},
	{"software development", model.TypeTechCompany},
	{"computer & it services", model.TypeTechCompany},
	{"manufacturers", model.TypeManufacturing},
	{"warehouses", model.TypeWarehouseLogistics},
	{"logistics", model.TypeWarehouseLogistics},
	{"non-profit organizations", model.TypeNonprofit},
	{"corporate offices", model.TypeCorporateOffice},
}

// OpenMapTaxonomy maps OSM key=value tags. A rule without "=" matches any value of that key.
var OpenMapTaxonomy = Taxonomy{
	{"amenity=conference_centre", model.TypeConferenceCenter},
	{"amenity=events_venue", model.TypeConferenceCenter},
	{"amenity=coworking_space", model.TypeCoworkingSpace},
	{"office=coworking", model.TypeCoworkingSpace},
	{"amenity=hospital", model.TypeMedicalFacility},
	{"amenity=clinic", model.TypeMedicalFacility},
	{"healthcare", model.TypeMedicalFacility},
	{"amenity=university", model.TypeEducational},
	{"amenity=college", model.TypeEducational},
	{"amenity=school", model.TypeEducational},
	{"amenity=townhall", model.TypeGovernment},
	{"office=government", model.TypeGovernment},
	{"office=lawyer", model.TypeLawFirm},
	{"amenity=bank", model.TypeFinancialServices},
	{"office=financial", model.TypeFinancialServices},
	{"office=insurance", model.TypeFinancialServices},
	{"tourism=hotel", model.TypeHotelHospitality},
	{"office=it", model.TypeTechCompany},
	{"office=telecommunication", model.TypeTechCompany},
	{"man_made=works", model.TypeManufacturing},
	{"industrial=factory", model.TypeManufacturing},
	{"building=warehouse", model.TypeWarehouseLogistics},
	{"industrial=warehouse", model.TypeWarehouseLogistics},
	{"office=ngo", model.TypeNonprofit},
	{"office=association", model.TypeNonprofit},
	{"office=company", model.TypeCorporateOffice},
}

// nameHints is the fallback when no tag matches. Patterns are matched against the lowercased
// name padded with spaces, so " inn " only matches the whole word.
var nameHints = []tagRule{
	{"conference", model.TypeConferenceCenter},
	{"convention", model.TypeConferenceCenter},
	{"event center", model.TypeConferenceCenter},
	{"cowork", model.TypeCoworkingSpace},
	{"shared office", model.TypeCoworkingSpace},
	{"hospital", model.TypeMedicalFacility},
	{"clinic", model.TypeMedicalFacility},
	{"medical", model.TypeMedicalFacility},
	{"health", model.TypeMedicalFacility},
	{"university", model.TypeEducational},
	{"college", model.TypeEducational},
	{"school", model.TypeEducational},
	{"academy", model.TypeEducational},
	{"county", model.TypeGovernment},
	{"city of ", model.TypeGovernment},
	{"department", model.TypeGovernment},
	{"law group", model.TypeLawFirm},
	{"law firm", model.TypeLawFirm},
	{"attorney", model.TypeLawFirm},
	{" llp ", model.TypeLawFirm},
	{"bank", model.TypeFinancialServices},
	{"credit union", model.TypeFinancialServices},
	{"financial", model.TypeFinancialServices},
	{"insurance", model.TypeFinancialServices},
	{"hotel", model.TypeHotelHospitality},
	{" inn ", model.TypeHotelHospitality},
	{"suites", model.TypeHotelHospitality},
	{"software", model.TypeTechCompany},
	{"technolog", model.TypeTechCompany},
	{" labs ", model.TypeTechCompany},
	{"systems", model.TypeTechCompany},
	{"manufactur", model.TypeManufacturing},
	{"industries", model.TypeManufacturing},
	{"fabrication", model.TypeManufacturing},
	{"logistics", model.TypeWarehouseLogistics},
	{"warehouse", model.TypeWarehouseLogistics},
	{"distribution", model.TypeWarehouseLogistics},
	{"foundation", model.TypeNonprofit},
	{"charit", model.TypeNonprofit},
	{"association", model.TypeNonprofit},
	{"headquarters", model.TypeCorporateOffice},
	{"corporate", model.TypeCorporateOffice},
}

// Classify returns the type of the highest-priority rule matched by tags, else the first name
// hint found in name, else TypeUnknown. Tag matching is case-insensitive.
func (t Taxonomy) Classify(tags []string, name string) model.BusinessType {
	if len(tags) > 0 {
		norm := make([]string, len(tags))
		for i, tag := range tags {
			norm[i] = strings.ToLower(strings.TrimSpace(tag))
		}
		for _, rule := range t {
			for _, tag := range norm {
				if rule.matches(tag) {
					return rule.typ
				}
			}
		}
	}
	return ClassifyName(name)
}

func (r tagRule) matches(tag string) bool {
	if tag == r.tag {
		return true
	}
	if !strings.Contains(r.tag, "=") {
		key, _, found := strings.Cut(tag, "=")
		return found && key == r.tag
	}
	return false
}

// ClassifyName applies only the name-substring fallback.
func ClassifyName(name string) model.BusinessType {
	padded := " " + strings.ToLower(strings.Join(strings.Fields(name), " ")) + " "
	for _, h := range nameHints {
		if strings.Contains(padded, h.tag) {
			return h.typ
		}
	}
	return model.TypeUnknown
}

// tagsFor returns the first tag in t mapped to typ, for generators that need a plausible tag.
func (t Taxonomy) tagsFor(typ model.BusinessType) []string {
	for _, rule := range t {
		if rule.typ == typ {
			return []string{rule.tag}
		}
	}
	return nil
}
