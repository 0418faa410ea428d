package engine

import (
	"fmt"
	"testing"

	"pharmadash/internal/models"
)

func TestAggregate(t *testing.T) {
	// Scenario:
	// Row 0: Germany, Bayer, Cardio,   Aspirin 100
	// Row 1: Germany, Roche, Oncology, Herceptin 200
	// Row 2: France,  Bayer, Cardio,   Aspirin 50
	rows := []models.Record{
		{DrugName: "Aspirin", CompanyName: "Bayer", CategoryName: "Cardio", CountryName: "Germany", EstimatedSales: 100},
		{DrugName: "Herceptin", CompanyName: "Roche", CategoryName: "Oncology", CountryName: "Germany", EstimatedSales: 200},
		{DrugName: "Aspirin", CompanyName: "Bayer", CategoryName: "Cardio", CountryName: "France", EstimatedSales: 50},
	}

	data := Aggregate(rows)

	// A. Summary
	if data.Summary.TotalSales != 350 {
		t.Errorf("Expected total 350, got %f", data.Summary.TotalSales)
	}
	if data.Summary.TotalCountries != 2 || data.Summary.TotalDrugs != 2 || data.Summary.TotalCompanies != 2 {
		t.Errorf("Unexpected summary %+v", data.Summary)
	}

	// B. Top drugs: Herceptin 200, Aspirin 150 (summed across countries)
	if len(data.TopDrugs) != 2 {
		t.Fatalf("Expected 2 top drugs, got %d", len(data.TopDrugs))
	}
	if data.TopDrugs[0].Name != "Herceptin" || data.TopDrugs[1].Value != 150 {
		t.Errorf("Top drugs incorrect: %+v", data.TopDrugs)
	}

	// C. Company sales sorted descending
	if data.CompanySales[0].Name != "Roche" || data.CompanySales[1].Sales != 150 || data.CompanySales[1].Count != 2 {
		t.Errorf("Company sales incorrect: %+v", data.CompanySales)
	}
}

func TestAggregateParallelMatchesSequential(t *testing.T) {
	rows := make([]models.Record, parallelThreshold*2+7)
	for i := range rows {
		rows[i] = models.Record{
			DrugName:       fmt.Sprintf("drug-%d", i%50),
			CompanyName:    fmt.Sprintf("co-%d", i%7),
			CategoryName:   fmt.Sprintf("cat-%d", i%3),
			CountryName:    fmt.Sprintf("ctry-%d", i%11),
			EstimatedSales: 1,
		}
	}

	data := Aggregate(rows)
	if data.Summary.TotalSales != float64(len(rows)) {
		t.Errorf("Expected total %d, got %f", len(rows), data.Summary.TotalSales)
	}
	if data.Summary.TotalDrugs != 50 || data.Summary.TotalCompanies != 7 || data.Summary.TotalCountries != 11 {
		t.Errorf("Unexpected summary %+v", data.Summary)
	}
	if len(data.TopDrugs) != topDrugsLimit {
		t.Errorf("Expected %d top drugs, got %d", topDrugsLimit, len(data.TopDrugs))
	}
	count := 0
	for _, c := range data.CompanySales {
		count += c.Count
	}
	if count != len(rows) {
		t.Errorf("Company counts sum to %d, want %d", count, len(rows))
	}
}

func TestCountryAndCompanySummary(t *testing.T) {
	rows := []models.Record{
		{DrugName: "A", CompanyName: "X", CategoryName: "Onc", CountryName: "DE", EstimatedSales: 10, MinSales: 5, MaxSales: 15},
		{DrugName: "B", CompanyName: "Y", CategoryName: "Car", CountryName: "DE", EstimatedSales: 20, MinSales: 10, MaxSales: 30},
		{DrugName: "A", CompanyName: "X", CategoryName: "Onc", CountryName: "FR", EstimatedSales: 5, MinSales: 1, MaxSales: 9},
	}

	cs, ok := CountrySummary(rows, "DE")
	if !ok {
		t.Fatal("DE should have rows")
	}
	if cs.TotalSales != 30 || cs.TotalDrugs != 2 || cs.TotalCompany != 2 {
		t.Errorf("Unexpected country summary %+v", cs)
	}
	if _, ok := CountrySummary(rows, "US"); ok {
		t.Error("US should have no rows")
	}

	co, ok := CompanySummary(rows, "X")
	if !ok {
		t.Fatal("X should have rows")
	}
	if co.TotalSales != 15 || co.TotalMin != 6 || co.TotalMax != 24 || co.TotalDrugs != 1 {
		t.Errorf("Unexpected company summary %+v", co)
	}
	if len(co.Countries) != 2 || co.Countries[0] != "DE" || co.Countries[1] != "FR" {
		t.Errorf("Countries should be in first-seen order: %v", co.Countries)
	}
	if _, ok := CompanySummary(rows, "Z"); ok {
		t.Error("Z should have no rows")
	}
}
