// Package export writes search results to spreadsheet files.
package export

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Sheet names written by WriteXLSX.
const (
	ProspectsSheet = "Prospects"
	AreasSheet     = "Areas"
)

var (
	prospectHeader = []string{"Rank", "Name", "Type", "Score", "Distance (mi)", "Sources", "Address", "Phone", "Reason"}
	areaHeader     = []string{"Rank", "Area", "Zip", "Population", "Workforce", "Businesses", "Median Income", "Potential", "Distance (mi)"}
)

// WriteXLSX saves rs to path as a workbook with one sheet of ranked businesses
// and one of market areas. Ranks follow the result set's order.
func WriteXLSX(path string, rs *model.ResultSet) error {
	if rs == nil {
		return eris.New("xlsx: nil result set")
	}
	f := xlsx.NewFile()

	prospects, err := f.AddSheet(ProspectsSheet)
	if err != nil {
		return eris.Wrap(err, "xlsx: add prospects sheet")
	}
	addHeader(prospects, prospectHeader)
	for i, it := range rs.Businesses() {
		b := it.Business
		row := prospects.AddRow()
		row.AddCell().SetInt(i + 1)
		row.AddCell().SetString(b.Name)
		row.AddCell().SetString(b.Type.Label())
		row.AddCell().SetInt(it.OverallScore)
		row.AddCell().SetFloatWithFormat(it.DistanceMiles, "0.0")
		row.AddCell().SetString(joinSources(it.Sources))
		row.AddCell().SetString(b.FullAddress())
		row.AddCell().SetString(b.Phone)
		row.AddCell().SetString(it.MatchReason)
	}

	areas, err := f.AddSheet(AreasSheet)
	if err != nil {
		return eris.Wrap(err, "xlsx: add areas sheet")
	}
	addHeader(areas, areaHeader)
	for i, it := range rs.Areas() {
		a := it.Area
		row := areas.AddRow()
		row.AddCell().SetInt(i + 1)
		row.AddCell().SetString(a.Name)
		row.AddCell().SetString(a.ZipCode)
		row.AddCell().SetInt(a.Population)
		row.AddCell().SetInt(a.Workforce)
		row.AddCell().SetInt(a.BusinessCount)
		row.AddCell().SetInt(a.MedianIncome)
		row.AddCell().SetInt(it.OverallScore)
		row.AddCell().SetFloatWithFormat(it.DistanceMiles, "0.0")
	}

	return eris.Wrapf(f.Save(path), "xlsx: save %s", path)
}

func addHeader(sheet *xlsx.Sheet, cols []string) {
	row := sheet.AddRow()
	for _, c := range cols {
		row.AddCell().SetString(c)
	}
}

func joinSources(srcs []model.Source) string {
	labels := make([]string, len(srcs))
	for i, s := range srcs {
		labels[i] = s.Label()
	}
	return strings.Join(labels, ", ")
}
