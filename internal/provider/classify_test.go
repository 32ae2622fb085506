package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/prospect-cli/internal/model"
)

func TestTaxonomy_Classify(t *testing.T) {
	tests := []struct {
		name     string
		taxonomy Taxonomy
		tags     []string
		bizName  string
		want     model.BusinessType
	}{
		{"places tag", PlacesTaxonomy, []string{"point_of_interest", "hospital"}, "St. Mary", model.TypeMedicalFacility},
		{"table priority beats tag order", PlacesTaxonomy, []string{"lodging", "convention_center"}, "Grand", model.TypeConferenceCenter},
		{"places case-insensitive", PlacesTaxonomy, []string{"Lawyer"}, "Smith", model.TypeLawFirm},
		{"bureau category", BureauTaxonomy, []string{"Software Development"}, "Acme", model.TypeTechCompany},
		{"osm exact", OpenMapTaxonomy, []string{"office=company"}, "Acme", model.TypeCorporateOffice},
		{"osm key only", OpenMapTaxonomy, []string{"healthcare=dentist"}, "Smile", model.TypeMedicalFacility},
		{"name fallback", PlacesTaxonomy, []string{"point_of_interest"}, "Front Range Credit Union", model.TypeFinancialServices},
		{"name fallback no tags", BureauTaxonomy, nil, "Summit Logistics", model.TypeWarehouseLogistics},
		{"whole word hint", PlacesTaxonomy, nil, "Hampton Inn", model.TypeHotelHospitality},
		{"no partial word hint", PlacesTaxonomy, nil, "Innovate Partners", model.TypeUnknown},
		{"unknown", OpenMapTaxonomy, []string{"shop=bakery"}, "Rise", model.TypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.taxonomy.Classify(tt.tags, tt.bizName))
		})
	}
}

func TestTaxonomy_TagsForRoundTrip(t *testing.T) {
	for _, tax := range []Taxonomy{PlacesTaxonomy, BureauTaxonomy, OpenMapTaxonomy} {
		for _, typ := range model.BusinessTypes() {
			tags := tax.tagsFor(typ)
			if tags == nil {
				continue
			}
			assert.Equal(t, typ, tax.Classify(tags, ""), "tag %v", tags)
		}
	}
}
