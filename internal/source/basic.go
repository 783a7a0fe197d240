package source

import "context"

// Basic covers city market lookups. Only MarketData reaches an upstream;
// the rest have no free provider and report no data.
type Basic struct {
	upstream
}

// NewBasic creates the basic client. The default timeout is BasicTimeout.
func NewBasic(opts ...Option) *Basic {
	return &Basic{upstream{buildOptions("basic", BasicTimeout, opts)}}
}

// MarketData searches CMHC market datasets for city and checks the Census
// housing vacancy series.
func (c *Basic) MarketData(ctx context.Context, city string) Result[MarketData] {
	search, err := c.search(ctx, searchParams("market data "+city, orgCMHC, 10, true))
	if err != nil {
		c.logger.Warn("CMHC search failed", "city", city, "error", err)
		return Unavailable[MarketData]()
	}
	records, err := c.censusRecords(ctx, "hv", "cell_value,data_type_code,time_slot_id,category_code")
	if err != nil {
		c.logger.Warn("census vacancy lookup failed", "city", city, "error", err)
		return Unavailable[MarketData]()
	}

	count := search.count()
	c.logger.Debug("market datasets", "city", city, "count", count, "census_records", records)

	return Found(MarketData{
		City:         city,
		DatasetCount: count,
		Source:       sourceCMHCCensus,
		Note:         noteNotExtracted,
	})
}

// RentalMarket is permanently unavailable.
func (c *Basic) RentalMarket(_ context.Context, city string) Result[RentalMarket] {
	c.notAvailable("rental market data", "city", city)
	return Unavailable[RentalMarket]()
}

// MarketTrends is permanently unavailable.
func (c *Basic) MarketTrends(_ context.Context, city string) Result[MarketTrends] {
	c.notAvailable("market trends data", "city", city)
	return Unavailable[MarketTrends]()
}

// MunicipalListings is permanently unavailable and always returns an
// empty, non-nil slice.
func (c *Basic) MunicipalListings(_ context.Context, city string, limit int) []Listing {
	c.notAvailable("municipal property data", "city", city, "limit", limit)
	return []Listing{}
}
