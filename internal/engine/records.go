package engine

import "pharmadash/internal/models"

var (
	colDrug = Column[models.Record]{Name: models.FieldDrug, Header: "Drug Name", Kind: KindString,
		Text: func(r models.Record) string { return r.DrugName }}
	colCompany = Column[models.Record]{Name: models.FieldCompany, Header: "Company", Kind: KindString,
		Text: func(r models.Record) string { return r.CompanyName }}
	colCategory = Column[models.Record]{Name: models.FieldCategory, Header: "Category", Kind: KindString,
		Text: func(r models.Record) string { return r.CategoryName }}
	colCountry = Column[models.Record]{Name: models.FieldCountry, Header: "Country", Kind: KindString,
		Text: func(r models.Record) string { return r.CountryName }}
	colRank = Column[models.Record]{Name: models.FieldRank, Header: "Rank", Kind: KindNumber,
		Number: func(r models.Record) float64 { return float64(r.Rank) }}
	colMean = Column[models.Record]{Name: models.FieldEstimatedSales, Header: "Mean Sales ($)", Kind: KindNumber,
		Number: func(r models.Record) float64 { return r.EstimatedSales }}
	colMin = Column[models.Record]{Name: models.FieldMinSales, Header: "Min Sales ($)", Kind: KindNumber,
		Number: func(r models.Record) float64 { return r.MinSales }}
	colMax = Column[models.Record]{Name: models.FieldMaxSales, Header: "Max Sales ($)", Kind: KindNumber,
		Number: func(r models.Record) float64 { return r.MaxSales }}
)

// DrugTable is the full drug estimation table.
var DrugTable = MustSchema(
	[]Column[models.Record]{colDrug, colCompany, colCategory, colCountry, colRank, colMean, colMin, colMax},
	[]string{models.FieldCountry, models.FieldCategory, models.FieldCompany},
	models.FieldDrug,
)

// CompanyTable is the per-company drug breakdown. The company is chosen
// through its filter and is not repeated as a column.
var CompanyTable = MustSchema(
	[]Column[models.Record]{colDrug, hidden(colCompany), colCountry, colCategory, colRank, colMean, colMin, colMax},
	[]string{models.FieldCompany, models.FieldCountry, models.FieldCategory},
	models.FieldDrug,
)

func hidden(c Column[models.Record]) Column[models.Record] {
	c.Hidden = true
	return c
}
