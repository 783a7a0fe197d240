package dispatch

import (
	"context"
	"math"

	"github.com/canre-io/canre/internal/analytics"
	"github.com/canre-io/canre/internal/source"
	"github.com/canre-io/canre/internal/tool"
)

// Messages for tools whose source returned no data.
const (
	msgUpstreamUnavailable  = "upstream data source unavailable"
	msgNoFreeAPI            = "no free public API exists"
	msgNoListings           = "No property listings available - no free public API exists"
	msgAffordabilityMissing = "Affordability analysis not available - required data sources unavailable"
)

func notAvailable(what, reason string) string {
	return what + " not available - " + reason
}

// cityMessage is the no-data payload of a city-scoped tool.
type cityMessage struct {
	City    string `json:"city"`
	Message string `json:"message"`
}

// provinceMessage is the no-data payload of a province-scoped tool.
type provinceMessage struct {
	Province string `json:"province"`
	Message  string `json:"message"`
}

// message is the no-data payload of a tool without a locality.
type message struct {
	Message string `json:"message"`
}

func (d *Dispatcher) routingTable() map[string]route {
	return map[string]route{
		tool.HousingPriceIndex:     {"housing price index", d.housingPriceIndex},
		tool.CMHCHousingData:       {"CMHC housing data", d.cmhcHousingData},
		tool.BankOfCanadaRates:     {"Bank of Canada rates", d.bankOfCanadaRates},
		tool.OpenGovHousingData:    {"open government housing data", d.openGovHousingData},
		tool.MarketData:            {"market data", d.marketData},
		tool.PropertyListings:      {"property listings", d.propertyListings},
		tool.RentalMarketData:      {"rental market data", d.rentalMarketData},
		tool.MarketTrends:          {"market trends", d.marketTrends},
		tool.CensusHousingData:     {"census housing data", d.censusHousingData},
		tool.NeighborhoodInsights:  {"neighborhood insights", d.neighborhoodInsights},
		tool.PropertyTaxData:       {"property tax data", d.propertyTaxData},
		tool.RealEstateBoardData:   {"real estate board data", d.realEstateBoardData},
		tool.EconomicIndicators:    {"economic indicators", d.economicIndicators},
		tool.AffordabilityAnalysis: {"affordability analysis", d.affordabilityAnalysis},
		tool.MarketComparison:      {"market comparison", d.marketComparison},
		tool.ComprehensiveAnalysis: {"comprehensive market analysis", d.comprehensiveAnalysis},
	}
}

// orCity returns the report, or the city no-data payload.
func orCity[T any](r source.Result[T], city, msg string) any {
	if v, ok := r.Get(); ok {
		return v
	}
	return cityMessage{City: city, Message: msg}
}

func orProvince[T any](r source.Result[T], province, msg string) any {
	if v, ok := r.Get(); ok {
		return v
	}
	return provinceMessage{Province: province, Message: msg}
}

func orMessage[T any](r source.Result[T], msg string) any {
	if v, ok := r.Get(); ok {
		return v
	}
	return message{Message: msg}
}

// --- Core housing data ---

func (d *Dispatcher) housingPriceIndex(in *Args) executor {
	province := in.Enum("province", tool.Provinces, tool.DefaultProvince)
	return func(ctx context.Context) (any, error) {
		r := d.src.Enhanced.HousingPriceIndex(ctx, province)
		return orProvince(r, province, notAvailable("Housing price index", msgUpstreamUnavailable)), nil
	}
}

func (d *Dispatcher) cmhcHousingData(in *Args) executor {
	city := in.City()
	return func(ctx context.Context) (any, error) {
		r := d.src.Enhanced.HousingStarts(ctx, city)
		return orCity(r, city, notAvailable("CMHC housing data", msgUpstreamUnavailable)), nil
	}
}

func (d *Dispatcher) bankOfCanadaRates(_ *Args) executor {
	return func(ctx context.Context) (any, error) {
		r := d.src.Enhanced.BankOfCanadaRates(ctx)
		return orMessage(r, notAvailable("Bank of Canada rates", msgUpstreamUnavailable)), nil
	}
}

func (d *Dispatcher) openGovHousingData(in *Args) executor {
	province := in.Enum("province", tool.Provinces, tool.DefaultProvince)
	return func(ctx context.Context) (any, error) {
		r := d.src.Enhanced.OpenGovHousingData(ctx, province)
		return orProvince(r, province, notAvailable("Open government housing data", msgUpstreamUnavailable)), nil
	}
}

// --- Market analysis ---

// marketDataPayload carries only the sections selected by dataType. A
// selected section without data is null.
type marketDataPayload struct {
	MarketData *source.Result[source.MarketData]   `json:"marketData,omitempty"`
	RentalData *source.Result[source.RentalMarket] `json:"rentalData,omitempty"`
	TrendsData *source.Result[source.MarketTrends] `json:"trendsData,omitempty"`
}

func (d *Dispatcher) marketData(in *Args) executor {
	city := in.City()
	dataType := in.Enum("dataType", tool.DataTypes, tool.DefaultDataType)
	return func(ctx context.Context) (any, error) {
		var p marketDataPayload
		all := dataType == "all"
		if all || dataType == "sales" {
			r := d.src.Basic.MarketData(ctx, city)
			p.MarketData = &r
		}
		if all || dataType == "rentals" {
			r := d.src.Basic.RentalMarket(ctx, city)
			p.RentalData = &r
		}
		if all || dataType == "trends" {
			r := d.src.Basic.MarketTrends(ctx, city)
			p.TrendsData = &r
		}
		return p, nil
	}
}

type listingsEmpty struct {
	City         string           `json:"city"`
	Message      string           `json:"message"`
	TotalResults int              `json:"totalResults"`
	Properties   []source.Listing `json:"properties"`
}

type listingFilters struct {
	PropertyType string      `json:"propertyType"`
	PriceRange   *PriceRange `json:"priceRange,omitempty"`
}

type listingsPayload struct {
	City         string           `json:"city"`
	TotalResults int              `json:"totalResults"`
	Filters      listingFilters   `json:"filters"`
	Properties   []source.Listing `json:"properties"`
}

func (d *Dispatcher) propertyListings(in *Args) executor {
	city := in.City()
	propertyType := in.Enum("propertyType", tool.PropertyTypes, tool.DefaultPropertyType)
	priceRange := in.PriceRange()
	limit := int(in.Number("limit", tool.DefaultListingLimit, tool.MinListingLimit, tool.MaxListingLimit))
	return func(ctx context.Context) (any, error) {
		listings := d.src.Basic.MunicipalListings(ctx, city, limit)
		if len(listings) == 0 {
			return listingsEmpty{
				City:       city,
				Message:    msgNoListings,
				Properties: []source.Listing{},
			}, nil
		}

		filtered := filterListings(listings, propertyType, priceRange)
		shown := filtered
		if len(shown) > limit {
			shown = shown[:limit]
		}
		return listingsPayload{
			City:         city,
			TotalResults: len(filtered),
			Filters:      listingFilters{PropertyType: propertyType, PriceRange: priceRange},
			Properties:   shown,
		}, nil
	}
}

func filterListings(listings []source.Listing, propertyType string, pr *PriceRange) []source.Listing {
	out := []source.Listing{}
	for _, l := range listings {
		if propertyType != tool.DefaultPropertyType && l.PropertyType != propertyType {
			continue
		}
		if pr != nil {
			if pr.Min != nil && *pr.Min != 0 && l.Price < *pr.Min {
				continue
			}
			if pr.Max != nil && *pr.Max != 0 && l.Price > *pr.Max {
				continue
			}
		}
		out = append(out, l)
	}
	return out
}

func (d *Dispatcher) rentalMarketData(in *Args) executor {
	city := in.City()
	return func(ctx context.Context) (any, error) {
		r := d.src.Basic.RentalMarket(ctx, city)
		return orCity(r, city, notAvailable("Rental market data", msgNoFreeAPI)), nil
	}
}

func (d *Dispatcher) marketTrends(in *Args) executor {
	city := in.City()
	return func(ctx context.Context) (any, error) {
		r := d.src.Basic.MarketTrends(ctx, city)
		return orCity(r, city, notAvailable("Market trends data", msgNoFreeAPI)), nil
	}
}

// --- Demographics ---

func (d *Dispatcher) censusHousingData(in *Args) executor {
	city := in.City()
	return func(ctx context.Context) (any, error) {
		r := d.src.Enhanced.CensusHousing(ctx, city)
		return orCity(r, city, notAvailable("Census housing data", msgNoFreeAPI)), nil
	}
}

type neighborhoodData struct {
	Census     source.Result[source.Census]      `json:"census"`
	Market     source.Result[source.BoardReport] `json:"market"`
	Assessment source.Result[source.PropertyTax] `json:"assessment"`
}

type neighborhoodPayload struct {
	City         string           `json:"city"`
	Neighborhood string           `json:"neighborhood"`
	Insights     []string         `json:"insights"`
	Data         neighborhoodData `json:"data"`
}

func (d *Dispatcher) neighborhoodInsights(in *Args) executor {
	city := in.City()
	neighborhood := in.String("neighborhood")
	return func(ctx context.Context) (any, error) {
		census := d.src.Enhanced.CensusHousing(ctx, city)
		market := d.src.Enhanced.RealEstateBoard(ctx, city)
		assessment := d.src.Enhanced.PropertyTax(ctx, city)

		if neighborhood == "" {
			neighborhood = "City-wide"
		}
		return neighborhoodPayload{
			City:         city,
			Neighborhood: neighborhood,
			Insights:     analytics.NeighborhoodInsights(census.Ptr(), market.Ptr()),
			Data:         neighborhoodData{Census: census, Market: market, Assessment: assessment},
		}, nil
	}
}

// --- Municipal ---

func (d *Dispatcher) propertyTaxData(in *Args) executor {
	city := in.City()
	return func(ctx context.Context) (any, error) {
		r := d.src.Enhanced.PropertyTax(ctx, city)
		return orCity(r, city, notAvailable("Property tax data", msgNoFreeAPI)), nil
	}
}

func (d *Dispatcher) realEstateBoardData(in *Args) executor {
	city := in.City()
	return func(ctx context.Context) (any, error) {
		r := d.src.Enhanced.RealEstateBoard(ctx, city)
		return orCity(r, city, notAvailable("Real estate board data", msgNoFreeAPI)), nil
	}
}

// --- Economic and analysis ---

func (d *Dispatcher) economicIndicators(_ *Args) executor {
	return func(ctx context.Context) (any, error) {
		r := d.src.Enhanced.EconomicIndicators(ctx)
		return orMessage(r, notAvailable("Economic indicators", msgNoFreeAPI)), nil
	}
}

type affordabilityPayload struct {
	City                 string                         `json:"city"`
	AffordabilityMetrics analytics.AffordabilityMetrics `json:"affordabilityMetrics"`
	Recommendations      []string                       `json:"recommendations"`
	CurrentMarketData    source.BoardReport             `json:"currentMarketData"`
	InterestRates        source.BankRates               `json:"interestRates"`
	Demographics         source.Result[source.Census]   `json:"demographics"`
}

func (d *Dispatcher) affordabilityAnalysis(in *Args) executor {
	city := in.City()
	income := in.Number("householdIncome", tool.DefaultHouseholdIncome, tool.MinHouseholdIncome, math.NaN())
	return func(ctx context.Context) (any, error) {
		board := d.src.Enhanced.RealEstateBoard(ctx, city)
		rates := d.src.Enhanced.BankOfCanadaRates(ctx)
		census := d.src.Enhanced.CensusHousing(ctx, city)

		market, hasMarket := board.Get()
		bank, hasRates := rates.Get()
		if !hasMarket || !hasRates {
			return cityMessage{City: city, Message: msgAffordabilityMissing}, nil
		}

		metrics := analytics.Affordability(market.MarketReport.AverageSalePrice, income, analytics.MortgageRate(&bank))
		return affordabilityPayload{
			City:                 city,
			AffordabilityMetrics: metrics,
			Recommendations:      analytics.AffordabilityRecommendations(metrics, city),
			CurrentMarketData:    market,
			InterestRates:        bank,
			Demographics:         census,
		}, nil
	}
}

type comparisonPayload struct {
	Cities       []string                    `json:"cities"`
	Metrics      []string                    `json:"metrics"`
	Comparison   analytics.Comparison        `json:"comparison"`
	Summary      analytics.ComparisonSummary `json:"summary"`
	DetailedData []analytics.CityData        `json:"detailedData"`
}

func (d *Dispatcher) marketComparison(in *Args) executor {
	cities := in.Cities(tool.MinComparedCities, tool.MaxComparedCities)
	metrics := in.EnumList("metrics", tool.Metrics, []string{"all"})
	return func(ctx context.Context) (any, error) {
		data := make([]analytics.CityData, 0, len(cities))
		for _, city := range cities {
			market := d.src.Enhanced.RealEstateBoard(ctx, city)
			rental := d.src.Basic.RentalMarket(ctx, city)
			census := d.src.Enhanced.CensusHousing(ctx, city)
			data = append(data, analytics.CityData{
				City:       city,
				MarketData: market.Ptr(),
				RentalData: rental.Ptr(),
				CensusData: census.Ptr(),
			})
		}
		return comparisonPayload{
			Cities:       cities,
			Metrics:      metrics,
			Comparison:   analytics.CompareCities(data),
			Summary:      analytics.Summarize(data),
			DetailedData: data,
		}, nil
	}
}

type keyMetrics struct {
	AveragePrice float64 `json:"averagePrice"`
	DaysOnMarket float64 `json:"daysOnMarket"`
	SalesVolume  int     `json:"salesVolume"`
	PriceIndex   float64 `json:"priceIndex"`
	VacancyRate  float64 `json:"vacancyRate"`
	MedianIncome float64 `json:"medianIncome"`
}

type comprehensivePayload struct {
	City            string                                   `json:"city"`
	Province        string                                   `json:"province,omitempty"`
	AnalysisDate    string                                   `json:"analysisDate"`
	MarketSummary   []string                                 `json:"marketSummary"`
	KeyMetrics      keyMetrics                               `json:"keyMetrics"`
	Trends          source.Result[source.MarketTrends]       `json:"trends"`
	EconomicFactors source.Result[source.EconomicIndicators] `json:"economicFactors"`
	InterestRates   source.Result[source.BankRates]          `json:"interestRates"`
	Demographics    source.Result[source.Census]             `json:"demographics"`
	Recommendations []string                                 `json:"recommendations"`
}

// analysisDateLayout is an ISO-8601 UTC timestamp with milliseconds.
const analysisDateLayout = "2006-01-02T15:04:05.000Z07:00"

func (d *Dispatcher) comprehensiveAnalysis(in *Args) executor {
	city := in.City()
	province := in.Enum("province", tool.Provinces, "")
	return func(ctx context.Context) (any, error) {
		board := d.src.Enhanced.RealEstateBoard(ctx, city)
		census := d.src.Enhanced.CensusHousing(ctx, city)
		econ := d.src.Enhanced.EconomicIndicators(ctx)
		rates := d.src.Enhanced.BankOfCanadaRates(ctx)
		trends := d.src.Basic.MarketTrends(ctx, city)

		var km keyMetrics
		if b, ok := board.Get(); ok {
			km.AveragePrice = b.MarketReport.AverageSalePrice
			km.DaysOnMarket = b.MarketReport.AverageDaysOnMarket
			km.SalesVolume = b.MarketReport.SalesVolume
			km.PriceIndex = b.MarketReport.PriceIndex
		}
		if c, ok := census.Get(); ok {
			km.MedianIncome = c.MedianHouseholdIncome
		}

		return comprehensivePayload{
			City:            city,
			Province:        province,
			AnalysisDate:    d.now().UTC().Format(analysisDateLayout),
			MarketSummary:   analytics.MarketSummary(board.Ptr()),
			KeyMetrics:      km,
			Trends:          trends,
			EconomicFactors: econ,
			InterestRates:   rates,
			Demographics:    census,
			Recommendations: analytics.MarketRecommendations(board.Ptr(), econ.Ptr()),
		}, nil
	}
}
