package engine

import (
	"runtime"
	"sort"
	"sync"

	"pharmadash/internal/models"
)

const (
	topDrugsLimit = 10

	// below this many rows a single worker is faster than fanning out
	parallelThreshold = 20000
)

type aggStats struct {
	Sales float64
	Count int
}

type partialAgg struct {
	drugs      map[drugKey]float64
	companies  map[string]*aggStats
	categories map[string]*aggStats
	countries  map[string]struct{}
	drugNames  map[string]struct{}
	total      float64
}

type drugKey struct {
	drug    string
	company string
}

func newPartial() *partialAgg {
	return &partialAgg{
		drugs:      make(map[drugKey]float64),
		companies:  make(map[string]*aggStats),
		categories: make(map[string]*aggStats),
		countries:  make(map[string]struct{}),
		drugNames:  make(map[string]struct{}),
	}
}

func addStats(m map[string]*aggStats, key string, sales float64, count int) {
	st, ok := m[key]
	if !ok {
		st = &aggStats{}
		m[key] = st
	}
	st.Sales += sales
	st.Count += count
}

func (p *partialAgg) add(r models.Record) {
	p.total += r.EstimatedSales
	p.drugs[drugKey{r.DrugName, r.CompanyName}] += r.EstimatedSales
	addStats(p.companies, r.CompanyName, r.EstimatedSales, 1)
	addStats(p.categories, r.CategoryName, r.EstimatedSales, 1)
	p.countries[r.CountryName] = struct{}{}
	p.drugNames[r.DrugName] = struct{}{}
}

func (p *partialAgg) merge(o *partialAgg) {
	p.total += o.total
	for k, v := range o.drugs {
		p.drugs[k] += v
	}
	for k, v := range o.companies {
		addStats(p.companies, k, v.Sales, v.Count)
	}
	for k, v := range o.categories {
		addStats(p.categories, k, v.Sales, v.Count)
	}
	for k := range o.countries {
		p.countries[k] = struct{}{}
	}
	for k := range o.drugNames {
		p.drugNames[k] = struct{}{}
	}
}

// aggregate folds rows into one partial, fanning out over CPUs for large sets.
func aggregate(rows []models.Record) *partialAgg {
	numWorkers := runtime.NumCPU()
	if len(rows) < parallelThreshold || numWorkers < 2 {
		p := newPartial()
		for _, r := range rows {
			p.add(r)
		}
		return p
	}

	chunkSize := (len(rows) + numWorkers - 1) / numWorkers
	results := make(chan *partialAgg, numWorkers)
	var wg sync.WaitGroup

	for start := 0; start < len(rows); start += chunkSize {
		end := min(start+chunkSize, len(rows))
		wg.Add(1)
		go func(chunk []models.Record) {
			defer wg.Done()
			p := newPartial()
			for _, r := range chunk {
				p.add(r)
			}
			results <- p
		}(rows[start:end])
	}

	go func() { wg.Wait(); close(results) }()

	final := newPartial()
	for p := range results {
		final.merge(p)
	}
	return final
}

// Aggregate builds the dashboard figures of one period.
func Aggregate(rows []models.Record) *models.DashboardData {
	agg := aggregate(rows)

	return &models.DashboardData{
		Summary: models.Summary{
			TotalSales:      agg.total,
			TotalCountries:  len(agg.countries),
			TotalDrugs:      len(agg.drugNames),
			TotalCompanies:  len(agg.companies),
			TotalCategories: len(agg.categories),
		},
		TopDrugs:      topDrugs(agg.drugs, topDrugsLimit),
		CompanySales:  salesItems(agg.companies),
		CategorySales: salesItems(agg.categories),
	}
}

// CountrySummary aggregates the rows of one country. ok is false when the
// country has no rows in the period.
func CountrySummary(rows []models.Record, country string) (models.CountrySummary, bool) {
	out := models.CountrySummary{Country: country, TopDrugs: []models.TopItem{}, CategorySales: []models.SalesItem{}}

	p := newPartial()
	for _, r := range rows {
		if r.CountryName == country {
			p.add(r)
		}
	}
	if len(p.countries) == 0 {
		return out, false
	}

	out.TotalSales = p.total
	out.TotalDrugs = len(p.drugNames)
	out.TotalCompany = len(p.companies)
	out.TopDrugs = topDrugs(p.drugs, topDrugsLimit)
	out.CategorySales = salesItems(p.categories)
	return out, true
}

// CompanySummary aggregates the rows of one company.
func CompanySummary(rows []models.Record, company string) (models.CompanySummary, bool) {
	out := models.CompanySummary{Company: company, Countries: []string{}, CountrySales: []models.SalesItem{}}

	countries := make(map[string]*aggStats)
	drugs := make(map[string]struct{})
	for _, r := range rows {
		if r.CompanyName != company {
			continue
		}
		out.TotalSales += r.EstimatedSales
		out.TotalMin += r.MinSales
		out.TotalMax += r.MaxSales
		drugs[r.DrugName] = struct{}{}
		if _, seen := countries[r.CountryName]; !seen {
			out.Countries = append(out.Countries, r.CountryName)
		}
		addStats(countries, r.CountryName, r.EstimatedSales, 1)
	}
	if len(drugs) == 0 {
		return out, false
	}
	out.TotalDrugs = len(drugs)
	out.CountrySales = salesItems(countries)
	return out, true
}

func topDrugs(drugs map[drugKey]float64, limit int) []models.TopItem {
	items := make([]models.TopItem, 0, len(drugs))
	for k, v := range drugs {
		items = append(items, models.TopItem{Name: k.drug, Company: k.company, Value: v})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Value != items[j].Value {
			return items[i].Value > items[j].Value
		}
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].Company < items[j].Company
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

func salesItems(m map[string]*aggStats) []models.SalesItem {
	items := make([]models.SalesItem, 0, len(m))
	for k, v := range m {
		items = append(items, models.SalesItem{Name: k, Sales: v.Sales, Count: v.Count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Sales != items[j].Sales {
			return items[i].Sales > items[j].Sales
		}
		return items[i].Name < items[j].Name
	})
	return items
}
