package source

// Source names reported alongside upstream data.
const (
	sourceOpenGovCMHC   = "Open Government Portal (CMHC Data)"
	sourceOpenGovCKAN   = "Open Government Portal (CKAN API)"
	sourceCMHCCensus    = "CMHC via Open Government Portal + US Census"
	sourceValet         = "Bank of Canada Valet API"
	noteNotExtracted    = "Real data extraction from datasets not yet implemented"
	maxRecentUpdates    = 5
	priceDatasetKeyword = "price"
)

// PriceIndex summarizes the housing price index dataset search.
type PriceIndex struct {
	Province      string `json:"province"`
	ReferenceDate string `json:"referenceDate"`
	DatasetCount  int    `json:"datasetCount"`
	Source        string `json:"source"`
	APIURL        string `json:"apiUrl"`
	Note          string `json:"note"`
}

// StartsBreakdown splits housing starts by dwelling type.
type StartsBreakdown struct {
	Total          int `json:"total"`
	SingleDetached int `json:"singleDetached"`
	Apartments     int `json:"apartments"`
	RowHouses      int `json:"rowHouses"`
}

// HousingStarts is the CMHC housing starts report. The numeric fields are
// placeholders until dataset resources are parsed; DataAvailable carries the
// number of matching datasets.
type HousingStarts struct {
	City              string          `json:"city"`
	Period            string          `json:"period"`
	HousingStarts     StartsBreakdown `json:"housingStarts"`
	Completions       int             `json:"completions"`
	UnderConstruction int             `json:"underConstruction"`
	Source            string          `json:"source"`
	DataAvailable     int             `json:"dataAvailable"`
	Note              string          `json:"note"`
}

// BankRates holds the latest Bank of Canada observations. A rate is nil
// when the series had no usable observation.
type BankRates struct {
	OvernightRate     *float64 `json:"overnightRate"`
	MortgageRate5Year *float64 `json:"mortgageRate5Year"`
	LastUpdated       string   `json:"lastUpdated"`
	Trend             string   `json:"trend"`
	Source            string   `json:"source"`
	APIEndpoint       string   `json:"apiEndpoint"`
}

// Dataset is one CKAN package in an open government search.
type Dataset struct {
	Title        string `json:"title"`
	Name         string `json:"name"`
	LastModified string `json:"lastModified"`
	Organization string `json:"organization,omitempty"`
	Resources    int    `json:"resources"`
	Summary      string `json:"summary,omitempty"`
}

// Activity is one entry of the portal's recently changed packages feed.
type Activity struct {
	ID           string `json:"id"`
	Timestamp    string `json:"timestamp"`
	ActivityType string `json:"activityType"`
	PackageID    string `json:"packageId,omitempty"`
	Title        string `json:"title,omitempty"`
}

// OpenGovData is the open government housing dataset report.
type OpenGovData struct {
	TotalRecords    int        `json:"totalRecords"`
	HousingDatasets []Dataset  `json:"housingDatasets"`
	RecentUpdates   []Activity `json:"recentUpdates"`
	Source          string     `json:"source"`
	APIEndpoint     string     `json:"apiEndpoint"`
}

// MarketData is the basic CMHC market data report.
type MarketData struct {
	City         string `json:"city"`
	DatasetCount int    `json:"datasetCount"`
	Source       string `json:"source"`
	Note         string `json:"note"`
}

// Rents are average monthly rents by unit size.
type Rents struct {
	Bachelor     float64 `json:"bachelor"`
	OneBedroom   float64 `json:"oneBedroom"`
	TwoBedroom   float64 `json:"twoBedroom"`
	ThreeBedroom float64 `json:"threeBedroom"`
}

// RentalMarket is a city rental market report.
type RentalMarket struct {
	City         string  `json:"city"`
	AverageRents Rents   `json:"averageRents"`
	VacancyRate  float64 `json:"vacancyRate"`
	Source       string  `json:"source"`
}

// MarketTrends is a city price and sales trend report.
type MarketTrends struct {
	City               string  `json:"city"`
	Period             string  `json:"period"`
	PriceChangePercent float64 `json:"priceChangePercent"`
	SalesChangePercent float64 `json:"salesChangePercent"`
	Source             string  `json:"source"`
}

// DwellingTypes are dwelling shares in percent.
type DwellingTypes struct {
	SingleDetached float64 `json:"singleDetached"`
	Apartments     float64 `json:"apartments"`
	RowHouses      float64 `json:"rowHouses"`
	Other          float64 `json:"other"`
}

// Census is a city housing demographics report.
type Census struct {
	City                  string        `json:"city"`
	Population            int           `json:"population"`
	MedianHouseholdIncome float64       `json:"medianHouseholdIncome"`
	DwellingTypes         DwellingTypes `json:"dwellingTypes"`
	Source                string        `json:"source"`
}

// MarketReport is the statistical body of a real estate board report.
type MarketReport struct {
	AverageSalePrice    float64 `json:"averageSalePrice"`
	MedianSalePrice     float64 `json:"medianSalePrice"`
	PriceIndex          float64 `json:"priceIndex"`
	AverageDaysOnMarket float64 `json:"averageDaysOnMarket"`
	SalesVolume         int     `json:"salesVolume"`
	ActiveListings      int     `json:"activeListings"`
}

// BoardReport is a real estate board market report.
type BoardReport struct {
	City         string       `json:"city"`
	MarketReport MarketReport `json:"marketReport"`
	Source       string       `json:"source"`
}

// PropertyTax is a municipal assessment report.
type PropertyTax struct {
	City              string  `json:"city"`
	MillRate          float64 `json:"millRate"`
	AverageAssessment float64 `json:"averageAssessment"`
	Source            string  `json:"source"`
}

// EconomicIndicators are national macro indicators in percent.
type EconomicIndicators struct {
	InflationRate    float64 `json:"inflationRate"`
	UnemploymentRate float64 `json:"unemploymentRate"`
	GDPGrowth        float64 `json:"gdpGrowth"`
	Source           string  `json:"source"`
}

// Listing is a property listing.
type Listing struct {
	ID           string   `json:"id"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	Province     string   `json:"province"`
	PostalCode   string   `json:"postalCode"`
	Price        float64  `json:"price"`
	ListingDate  string   `json:"listingDate"`
	PropertyType string   `json:"propertyType"`
	Bedrooms     *int     `json:"bedrooms"`
	Bathrooms    *float64 `json:"bathrooms"`
	Sqft         *int     `json:"sqft"`
	YearBuilt    *int     `json:"yearBuilt"`
	Status       string   `json:"status"`
	MLSNumber    *string  `json:"mlsNumber"`
	Features     []string `json:"features"`
}
