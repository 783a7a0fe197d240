package source

import "context"

const (
	orgCMHC        = "cmhc-schl"
	datasetPageURL = "https://open.canada.ca/data/en/dataset/"
)

// Enhanced reaches the open government portal, the Bank of Canada Valet
// API and the US Census EITS API. Methods never return errors: a failed
// lookup is logged and reported as Unavailable.
type Enhanced struct {
	upstream
}

// NewEnhanced creates the enhanced client. The default timeout is
// EnhancedTimeout.
func NewEnhanced(opts ...Option) *Enhanced {
	return &Enhanced{upstream{buildOptions("enhanced", EnhancedTimeout, opts)}}
}

// HousingPriceIndex searches the portal for housing price index datasets.
func (c *Enhanced) HousingPriceIndex(ctx context.Context, province string) Result[PriceIndex] {
	search, err := c.search(ctx, searchParams("housing price index CMHC", "", 10, false))
	if err != nil {
		c.logger.Warn("open government search failed", "province", province, "error", err)
		return Unavailable[PriceIndex]()
	}
	starts, err := c.search(ctx, searchParams("housing starts CMHC", orgCMHC, 5, false))
	if err != nil {
		c.logger.Warn("open government search failed", "province", province, "error", err)
		return Unavailable[PriceIndex]()
	}

	count := search.count()
	c.logger.Debug("housing price datasets", "province", province, "count", count,
		"starts_datasets", len(starts.packages()))

	return Found(PriceIndex{
		Province:      province,
		ReferenceDate: search.referenceDate(priceDatasetKeyword, c.today()),
		DatasetCount:  count,
		Source:        sourceOpenGovCMHC,
		APIURL:        c.endpoints.packageSearch(),
		Note:          noteNotExtracted,
	})
}

// HousingStarts searches CMHC housing starts datasets for city. The starts
// figures are placeholders; DataAvailable reports how many datasets matched.
func (c *Enhanced) HousingStarts(ctx context.Context, city string) Result[HousingStarts] {
	search, err := c.search(ctx, searchParams("housing starts completions "+city, orgCMHC, 10, true))
	if err != nil {
		c.logger.Warn("CMHC search failed", "city", city, "error", err)
		return Unavailable[HousingStarts]()
	}
	records, err := c.censusRecords(ctx, "nrc", "cell_value,data_type_code,time_slot_id,category_code,seasonally_adj")
	if err != nil {
		c.logger.Warn("census construction lookup failed", "city", city, "error", err)
		return Unavailable[HousingStarts]()
	}
	c.logger.Debug("housing starts datasets", "city", city,
		"datasets", len(search.packages()), "census_records", records)

	return Found(HousingStarts{
		City:          city,
		Period:        "2024",
		Source:        sourceCMHCCensus,
		DataAvailable: search.count(),
		Note:          noteNotExtracted,
	})
}

// BankOfCanadaRates returns the latest overnight and 5-year mortgage rates.
func (c *Enhanced) BankOfCanadaRates(ctx context.Context) Result[BankRates] {
	overnight, err := c.observations(ctx, SeriesOvernightRate)
	if err != nil {
		c.logger.Warn("valet lookup failed", "series", SeriesOvernightRate, "error", err)
		return Unavailable[BankRates]()
	}
	mortgage, err := c.observations(ctx, SeriesMortgage5Year)
	if err != nil {
		c.logger.Warn("valet lookup failed", "series", SeriesMortgage5Year, "error", err)
		return Unavailable[BankRates]()
	}

	rates := BankRates{
		LastUpdated: c.today(),
		Source:      sourceValet,
		APIEndpoint: c.endpoints.valetBase(),
	}
	var date string
	rates.OvernightRate, date = overnight.latest(SeriesOvernightRate)
	if date != "" {
		rates.LastUpdated = date
	}
	rates.MortgageRate5Year, _ = mortgage.latest(SeriesMortgage5Year)
	rates.Trend = rateTrend(rates.OvernightRate)
	return Found(rates)
}

// OpenGovHousingData lists CMHC housing market datasets and the portal's
// most recent package updates.
func (c *Enhanced) OpenGovHousingData(ctx context.Context, province string) Result[OpenGovData] {
	search, err := c.search(ctx, searchParams("housing market "+province, orgCMHC, 20, true))
	if err != nil {
		c.logger.Warn("open government search failed", "province", province, "error", err)
		return Unavailable[OpenGovData]()
	}
	recent, err := c.recentActivity(ctx, 50)
	if err != nil {
		c.logger.Warn("open government activity lookup failed", "province", province, "error", err)
		return Unavailable[OpenGovData]()
	}

	data := OpenGovData{
		HousingDatasets: []Dataset{},
		RecentUpdates:   []Activity{},
		Source:          sourceOpenGovCKAN,
		APIEndpoint:     c.endpoints.packageSearch(),
	}
	if search.Result != nil {
		data.TotalRecords = search.Result.Count
	}
	for _, p := range search.packages() {
		data.HousingDatasets = append(data.HousingDatasets, p.toDataset(datasetPageURL+p.Name))
	}
	for i, a := range recent.Result {
		if i == maxRecentUpdates {
			break
		}
		data.RecentUpdates = append(data.RecentUpdates, a.toActivity())
	}
	return Found(data)
}

// CensusHousing is permanently unavailable.
func (c *Enhanced) CensusHousing(_ context.Context, city string) Result[Census] {
	c.notAvailable("census housing data", "city", city)
	return Unavailable[Census]()
}

// RealEstateBoard is permanently unavailable.
func (c *Enhanced) RealEstateBoard(_ context.Context, city string) Result[BoardReport] {
	c.notAvailable("real estate board data", "city", city)
	return Unavailable[BoardReport]()
}

// PropertyTax is permanently unavailable.
func (c *Enhanced) PropertyTax(_ context.Context, city string) Result[PropertyTax] {
	c.notAvailable("property tax data", "city", city)
	return Unavailable[PropertyTax]()
}

// EconomicIndicators is permanently unavailable.
func (c *Enhanced) EconomicIndicators(_ context.Context) Result[EconomicIndicators] {
	c.notAvailable("economic indicators")
	return Unavailable[EconomicIndicators]()
}
