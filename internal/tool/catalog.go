package tool

import "github.com/canre-io/canre/pkg/protocol"

// Tool names.
const (
	HousingPriceIndex     = "get_housing_price_index"
	CMHCHousingData       = "get_cmhc_housing_data"
	BankOfCanadaRates     = "get_bank_of_canada_rates"
	OpenGovHousingData    = "get_opengov_housing_data"
	MarketData            = "get_market_data"
	PropertyListings      = "get_property_listings"
	RentalMarketData      = "get_rental_market_data"
	MarketTrends          = "get_market_trends"
	CensusHousingData     = "get_census_housing_data"
	NeighborhoodInsights  = "get_neighborhood_insights"
	PropertyTaxData       = "get_property_tax_data"
	RealEstateBoardData   = "get_realestate_board_data"
	EconomicIndicators    = "get_economic_indicators"
	AffordabilityAnalysis = "get_affordability_analysis"
	MarketComparison      = "get_market_comparison"
	ComprehensiveAnalysis = "get_comprehensive_market_analysis"
)

// Provinces is the closed set of province codes accepted by the schemas.
var Provinces = []string{"ON", "BC", "AB", "QC", "MB", "SK", "NS", "NB", "PE", "NL"}

// Enumerations used by schemas and argument validation.
var (
	DataTypes     = []string{"sales", "rentals", "trends", "all"}
	PropertyTypes = []string{"house", "condo", "townhouse", "all"}
	Metrics       = []string{"price", "affordability", "market_activity", "growth", "all"}
)

// Argument defaults and bounds.
const (
	DefaultProvince        = "ON"
	DefaultDataType        = "all"
	DefaultPropertyType    = "all"
	DefaultListingLimit    = 20
	MinListingLimit        = 1
	MaxListingLimit        = 100
	DefaultHouseholdIncome = 75000
	MinHouseholdIncome     = 20000
	MinComparedCities      = 2
	MaxComparedCities      = 5
)

// NewCatalog builds the registry holding every tool, in group order.
func NewCatalog() *Registry {
	reg := NewRegistry()
	groups := [][]protocol.ToolDescriptor{
		CoreDataTools(),
		MarketAnalysisTools(),
		DemographicsTools(),
		MunicipalTools(),
		AnalysisTools(),
	}
	for _, group := range groups {
		for _, d := range group {
			if err := reg.Register(d); err != nil {
				// The catalog is a fixed table; a duplicate is a programming error.
				panic(err)
			}
		}
	}
	return reg
}

// CoreDataTools returns the core housing data group.
func CoreDataTools() []protocol.ToolDescriptor {
	return []protocol.ToolDescriptor{
		protocol.NewToolDescriptor(HousingPriceIndex,
			"Get official housing price index from Statistics Canada via Open Government Portal (free, no API key)",
			map[string]any{
				"province": provinceProperty("Province code for housing price index data", true),
			}),
		protocol.NewToolDescriptor(CMHCHousingData,
			"Get CMHC housing starts, completions, and market data via Open Government Portal (free, no API key)",
			map[string]any{
				"city": cityProperty("City name for CMHC housing data"),
			}, "city"),
		protocol.NewToolDescriptor(BankOfCanadaRates,
			"Get current interest rates from Bank of Canada Valet API (free, no API key)",
			nil),
		protocol.NewToolDescriptor(OpenGovHousingData,
			"Get housing datasets from Canada Open Government Portal (free, no API key)",
			map[string]any{
				"province": provinceProperty("Province for open government housing datasets", true),
			}),
	}
}

// MarketAnalysisTools returns the market analysis group.
func MarketAnalysisTools() []protocol.ToolDescriptor {
	return []protocol.ToolDescriptor{
		protocol.NewToolDescriptor(MarketData,
			"Get comprehensive market data for Canadian cities from multiple free sources",
			map[string]any{
				"city": cityProperty("City name for market data"),
				"dataType": map[string]any{
					"type":        "string",
					"enum":        DataTypes,
					"default":     DefaultDataType,
					"description": "Type of market data to retrieve",
				},
			}, "city"),
		protocol.NewToolDescriptor(PropertyListings,
			"Search for property listings (currently returns empty results - no free public API available)",
			map[string]any{
				"city": cityProperty("City name for property listings"),
				"propertyType": map[string]any{
					"type":        "string",
					"enum":        PropertyTypes,
					"default":     DefaultPropertyType,
					"description": "Type of property to search for",
				},
				"priceRange": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"min": map[string]any{"type": "number", "minimum": 0},
						"max": map[string]any{"type": "number", "minimum": 0},
					},
					"description": "Price range filter",
				},
				"limit": map[string]any{
					"type":        "number",
					"minimum":     MinListingLimit,
					"maximum":     MaxListingLimit,
					"default":     DefaultListingLimit,
					"description": "Maximum number of listings to return",
				},
			}, "city"),
		protocol.NewToolDescriptor(RentalMarketData,
			"Get rental market data (currently unavailable - no free public API exists)",
			map[string]any{
				"city": cityProperty("City name for rental market data"),
			}, "city"),
		protocol.NewToolDescriptor(MarketTrends,
			"Get historical market trends (currently unavailable - no free public API exists)",
			map[string]any{
				"city": cityProperty("City name for market trends"),
			}, "city"),
	}
}

// DemographicsTools returns the demographics and census group.
func DemographicsTools() []protocol.ToolDescriptor {
	return []protocol.ToolDescriptor{
		protocol.NewToolDescriptor(CensusHousingData,
			"Get housing demographics from census data (currently unavailable - no free public API exists)",
			map[string]any{
				"city": cityProperty("City name for census housing data"),
			}, "city"),
		protocol.NewToolDescriptor(NeighborhoodInsights,
			"Get neighborhood demographics, characteristics, and market insights",
			map[string]any{
				"city": cityProperty("City name for neighborhood insights"),
				"neighborhood": map[string]any{
					"type":        "string",
					"description": "Specific neighborhood name (optional)",
				},
			}, "city"),
	}
}

// MunicipalTools returns the municipal and assessment group.
func MunicipalTools() []protocol.ToolDescriptor {
	return []protocol.ToolDescriptor{
		protocol.NewToolDescriptor(PropertyTaxData,
			"Get property tax data (currently unavailable - no free public API exists)",
			map[string]any{
				"city": cityProperty("City name for property tax assessment data"),
			}, "city"),
		protocol.NewToolDescriptor(RealEstateBoardData,
			"Get real estate board data (currently unavailable - no free public API exists)",
			map[string]any{
				"city": cityProperty("City name for real estate board data"),
			}, "city"),
	}
}

// AnalysisTools returns the economic and analysis group.
func AnalysisTools() []protocol.ToolDescriptor {
	return []protocol.ToolDescriptor{
		protocol.NewToolDescriptor(EconomicIndicators,
			"Get economic indicators (currently unavailable - no free public API exists)",
			nil),
		protocol.NewToolDescriptor(AffordabilityAnalysis,
			"Get housing affordability analysis based on income, prices, and mortgage rates",
			map[string]any{
				"city": cityProperty("City name for affordability analysis"),
				"householdIncome": map[string]any{
					"type":        "number",
					"description": "Annual household income for affordability calculation",
					"minimum":     MinHouseholdIncome,
					"default":     DefaultHouseholdIncome,
				},
			}, "city"),
		protocol.NewToolDescriptor(MarketComparison,
			"Compare housing markets between multiple Canadian cities",
			map[string]any{
				"cities": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"minItems":    MinComparedCities,
					"maxItems":    MaxComparedCities,
					"description": "Array of city names to compare",
				},
				"metrics": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "string",
						"enum": Metrics,
					},
					"default":     []string{"all"},
					"description": "Metrics to compare between cities",
				},
			}, "cities"),
		protocol.NewToolDescriptor(ComprehensiveAnalysis,
			"Get comprehensive housing market analysis combining multiple free data sources",
			map[string]any{
				"city":     cityProperty("City name for comprehensive market analysis"),
				"province": provinceProperty("Province code for the city", false),
			}, "city"),
	}
}

func cityProperty(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
	}
}

func provinceProperty(description string, withDefault bool) map[string]any {
	p := map[string]any{
		"type":        "string",
		"enum":        Provinces,
		"description": description,
	}
	if withDefault {
		p["default"] = DefaultProvince
	}
	return p
}
