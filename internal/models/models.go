package models

// Record is one sales-estimate row as served by the estimation API.
type Record struct {
	DrugName       string  `json:"drugName"`
	CompanyName    string  `json:"companyName"`
	CategoryName   string  `json:"categoryName"`
	CountryName    string  `json:"countryName"`
	Rank           int     `json:"rank"`
	EstimatedSales float64 `json:"estimatedSales"`
	MinSales       float64 `json:"minSales"`
	MaxSales       float64 `json:"maxSales"`
}

// Field keys, shared by JSON, CSV headers and the query engine.
const (
	FieldDrug           = "drugName"
	FieldCompany        = "companyName"
	FieldCategory       = "categoryName"
	FieldCountry        = "countryName"
	FieldRank           = "rank"
	FieldEstimatedSales = "estimatedSales"
	FieldMinSales       = "minSales"
	FieldMaxSales       = "maxSales"
)

type DashboardData struct {
	Summary       Summary     `json:"summary"`
	TopDrugs      []TopItem   `json:"topDrugs"`
	CompanySales  []SalesItem `json:"companySales"`
	CategorySales []SalesItem `json:"categorySales"`
}

type Summary struct {
	TotalSales      float64 `json:"totalSales"`
	TotalCountries  int     `json:"totalCountries"`
	TotalDrugs      int     `json:"totalDrugs"`
	TotalCompanies  int     `json:"totalCompanies"`
	TotalCategories int     `json:"totalCategories"`
}

type TopItem struct {
	Name    string  `json:"drugName"`
	Company string  `json:"companyName,omitempty"`
	Value   float64 `json:"estimatedSales"`
}

type SalesItem struct {
	Name  string  `json:"name"`
	Sales float64 `json:"sales"`
	Count int     `json:"count"`
}

type CountrySummary struct {
	Country       string      `json:"countryName"`
	TotalSales    float64     `json:"totalSales"`
	TotalDrugs    int         `json:"totalDrugs"`
	TotalCompany  int         `json:"totalCompanies"`
	TopDrugs      []TopItem   `json:"topDrugs"`
	CategorySales []SalesItem `json:"categorySales"`
}

type CompanySummary struct {
	Company      string      `json:"companyName"`
	TotalSales   float64     `json:"totalSales"`
	TotalMin     float64     `json:"totalMinSales"`
	TotalMax     float64     `json:"totalMaxSales"`
	TotalDrugs   int         `json:"totalDrugs"`
	Countries    []string    `json:"countries"`
	CountrySales []SalesItem `json:"countrySales"`
}
