package provider

import "github.com/sells-group/prospect-cli/internal/model"

// typeWeight is the starting catering potential for each business type.
var typeWeight = map[model.BusinessType]int{
	model.TypeCorporateOffice:    30,
	model.TypeTechCompany:        28,
	model.TypeConferenceCenter:   30,
	model.TypeFinancialServices:  26,
	model.TypeCoworkingSpace:     25,
	model.TypeLawFirm:            24,
	model.TypeMedicalFacility:    22,
	model.TypeEducational:        20,
	model.TypeGovernment:         20,
	model.TypeManufacturing:      18,
	model.TypeHotelHospitality:   16,
	model.TypeWarehouseLogistics: 14,
	model.TypeNonprofit:          12,
	model.TypeUnknown:            10,
}

// BasePotential estimates catering potential (0-100) before rule adjustments.
func BasePotential(b *model.BusinessRecord) int {
	score := typeWeight[b.Type]
	if score == 0 {
		score = typeWeight[model.TypeUnknown]
	}

	switch emp := b.EffectiveEmployees(); {
	case emp >= 500:
		score += 30
	case emp >= 200:
		score += 24
	case emp >= 100:
		score += 18
	case emp >= 50:
		score += 12
	case emp >= 20:
		score += 6
	case emp > 0:
		score += 2
	}

	switch {
	case b.Rating >= 4.5:
		score += 10
	case b.Rating >= 4.0:
		score += 6
	case b.Rating >= 3.5:
		score += 3
	}

	if b.HasConferenceRoom {
		score += 8
	}
	if b.HasEventSpace {
		score += 8
	}
	if b.RegularMeetings {
		score += 10
	}
	return clamp(score, 0, 100)
}

// MarketPotential scores an area (0-100) from population, business density, income and
// workforce share.
func MarketPotential(a *model.AreaRecord) int {
	score := min(a.Population/2000, 30)

	if a.Population > 0 {
		perThousand := float64(a.BusinessCount) * 1000 / float64(a.Population)
		score += min(int(perThousand*1.5), 30)

		share := float64(a.Workforce) / float64(a.Population)
		score += min(int(share*25), 15)
	}

	score += clamp((a.MedianIncome-30000)/3000, 0, 25)
	return clamp(score, 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
