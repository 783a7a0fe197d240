package analytics

import (
	"bytes"

	"github.com/canre-io/canre/internal/source"
	"github.com/canre-io/canre/pkg/protocol"
)

// CityData is everything fetched for one city in a comparison.
type CityData struct {
	City       string               `json:"city"`
	MarketData *source.BoardReport  `json:"marketData"`
	RentalData *source.RentalMarket `json:"rentalData"`
	CensusData *source.Census       `json:"censusData"`
}

func (d CityData) averagePrice() float64 {
	if d.MarketData == nil {
		return 0
	}
	return d.MarketData.MarketReport.AverageSalePrice
}

// CityMetrics are the compared figures for one city.
type CityMetrics struct {
	AveragePrice   float64 `json:"averagePrice"`
	PriceChange    float64 `json:"priceChange"`
	MarketActivity float64 `json:"marketActivity"`
	RentalYield    float64 `json:"rentalYield"`
}

// Comparison maps city names to metrics and marshals as a JSON object
// whose keys follow input order. A repeated city keeps its first position
// and its last metrics.
type Comparison struct {
	cities  []string
	metrics map[string]CityMetrics
}

func (c *Comparison) set(city string, m CityMetrics) {
	if c.metrics == nil {
		c.metrics = make(map[string]CityMetrics)
	}
	if _, seen := c.metrics[city]; !seen {
		c.cities = append(c.cities, city)
	}
	c.metrics[city] = m
}

// Cities returns the distinct city names in input order.
func (c Comparison) Cities() []string {
	out := make([]string, len(c.cities))
	copy(out, c.cities)
	return out
}

// Get returns the metrics for city.
func (c Comparison) Get(city string) (CityMetrics, bool) {
	m, ok := c.metrics[city]
	return m, ok
}

func (c Comparison) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, city := range c.cities {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := protocol.MarshalCompact(city)
		if err != nil {
			return nil, err
		}
		val, err := protocol.MarshalCompact(c.metrics[city])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CompareCities computes per-city metrics. Missing market data counts as
// zero and missing rent as no rent.
func CompareCities(data []CityData) Comparison {
	var c Comparison
	for _, d := range data {
		var m CityMetrics
		if d.MarketData != nil {
			r := d.MarketData.MarketReport
			m.AveragePrice = r.AverageSalePrice
			m.PriceChange = r.PriceIndex
			m.MarketActivity = r.AverageDaysOnMarket
		}
		var rent float64
		if d.RentalData != nil {
			rent = d.RentalData.AverageRents.TwoBedroom
		}
		m.RentalYield = RentalYield(rent, m.AveragePrice)
		c.set(d.City, m)
	}
	return c
}

// PriceRange is the span of average prices across compared cities.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ComparisonSummary names the extremes of a comparison.
type ComparisonSummary struct {
	MostExpensive  string     `json:"mostExpensive"`
	MostAffordable string     `json:"mostAffordable"`
	PriceRange     PriceRange `json:"priceRange"`
}

// Summarize picks the most expensive and most affordable cities by
// average price. Ties go to the earliest city.
func Summarize(data []CityData) ComparisonSummary {
	var s ComparisonSummary
	if len(data) == 0 {
		return s
	}
	hi, lo := 0, 0
	for i, d := range data {
		p := d.averagePrice()
		if p > data[hi].averagePrice() {
			hi = i
		}
		if p < data[lo].averagePrice() {
			lo = i
		}
	}
	s.MostExpensive = data[hi].City
	s.MostAffordable = data[lo].City
	s.PriceRange = PriceRange{Min: data[lo].averagePrice(), Max: data[hi].averagePrice()}
	return s
}
