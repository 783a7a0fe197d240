package dispatch

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/canre-io/canre/internal/source"
	"github.com/canre-io/canre/internal/tool"
	"github.com/canre-io/canre/pkg/protocol"
)

// stubSources implements both source interfaces and counts every call.
// Unset reports are unavailable.
type stubSources struct {
	mu    sync.Mutex
	calls []string

	marketData *source.MarketData
	rental     map[string]source.RentalMarket
	listings   []source.Listing
	board      map[string]source.BoardReport
	census     map[string]source.Census
	rates      *source.BankRates
	econ       *source.EconomicIndicators
	priceIndex *source.PriceIndex
	panicOn    string
}

func (s *stubSources) record(name string) {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.mu.Unlock()
	if s.panicOn == name {
		panic("boom in " + name)
	}
}

func (s *stubSources) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func fromPtr[T any](v *T) source.Result[T] {
	if v == nil {
		return source.Unavailable[T]()
	}
	return source.Found(*v)
}

func fromMap[T any](m map[string]T, key string) source.Result[T] {
	if v, ok := m[key]; ok {
		return source.Found(v)
	}
	return source.Unavailable[T]()
}

func (s *stubSources) MarketData(_ context.Context, city string) source.Result[source.MarketData] {
	s.record("MarketData")
	return fromPtr(s.marketData)
}

func (s *stubSources) RentalMarket(_ context.Context, city string) source.Result[source.RentalMarket] {
	s.record("RentalMarket")
	return fromMap(s.rental, city)
}

func (s *stubSources) MarketTrends(_ context.Context, _ string) source.Result[source.MarketTrends] {
	s.record("MarketTrends")
	return source.Unavailable[source.MarketTrends]()
}

func (s *stubSources) MunicipalListings(_ context.Context, _ string, _ int) []source.Listing {
	s.record("MunicipalListings")
	return s.listings
}

func (s *stubSources) HousingPriceIndex(_ context.Context, _ string) source.Result[source.PriceIndex] {
	s.record("HousingPriceIndex")
	return fromPtr(s.priceIndex)
}

func (s *stubSources) HousingStarts(_ context.Context, _ string) source.Result[source.HousingStarts] {
	s.record("HousingStarts")
	return source.Unavailable[source.HousingStarts]()
}

func (s *stubSources) BankOfCanadaRates(_ context.Context) source.Result[source.BankRates] {
	s.record("BankOfCanadaRates")
	return fromPtr(s.rates)
}

func (s *stubSources) OpenGovHousingData(_ context.Context, _ string) source.Result[source.OpenGovData] {
	s.record("OpenGovHousingData")
	return source.Unavailable[source.OpenGovData]()
}

func (s *stubSources) CensusHousing(_ context.Context, city string) source.Result[source.Census] {
	s.record("CensusHousing")
	return fromMap(s.census, city)
}

func (s *stubSources) RealEstateBoard(_ context.Context, city string) source.Result[source.BoardReport] {
	s.record("RealEstateBoard")
	return fromMap(s.board, city)
}

func (s *stubSources) PropertyTax(_ context.Context, _ string) source.Result[source.PropertyTax] {
	s.record("PropertyTax")
	return source.Unavailable[source.PropertyTax]()
}

func (s *stubSources) EconomicIndicators(_ context.Context) source.Result[source.EconomicIndicators] {
	s.record("EconomicIndicators")
	return fromPtr(s.econ)
}

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestDispatcher(t *testing.T, stub *stubSources, opts ...Option) *Dispatcher {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	d, err := New(tool.NewCatalog(), Sources{Basic: stub, Enhanced: stub}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func call(t *testing.T, d *Dispatcher, name string, args map[string]any) map[string]any {
	t.Helper()
	res, err := d.Call(context.Background(), name, args)
	if err != nil {
		t.Fatalf("Call(%s): %v", name, err)
	}
	if len(res.Content) != 1 || res.Content[0].Type != "text" {
		t.Fatalf("expected one text item, got %+v", res.Content)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(res.Content[0].Text), &out); err != nil {
		t.Fatalf("payload is not a JSON object: %v\n%s", err, res.Content[0].Text)
	}
	return out
}

func callErr(t *testing.T, d *Dispatcher, name string, args map[string]any) *protocol.ToolError {
	t.Helper()
	res, err := d.Call(context.Background(), name, args)
	if err == nil {
		t.Fatalf("Call(%s): expected error, got %+v", name, res)
	}
	te, ok := err.(*protocol.ToolError)
	if !ok {
		t.Fatalf("error type = %T, want *protocol.ToolError", err)
	}
	return te
}

func TestNew_RoutesMatchCatalog(t *testing.T) {
	d := newTestDispatcher(t, &stubSources{})
	want := tool.NewCatalog().Names()
	slices.Sort(want)
	if !slices.Equal(d.Routes(), want) {
		t.Errorf("routes = %v\nwant %v", d.Routes(), want)
	}
}

func TestNew_RejectsUnroutedTool(t *testing.T) {
	reg := tool.NewCatalog()
	if err := reg.Register(protocol.NewToolDescriptor("get_weather", "x", nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	stub := &stubSources{}
	_, err := New(reg, Sources{Basic: stub, Enhanced: stub})
	if err == nil || !strings.Contains(err.Error(), "get_weather") {
		t.Fatalf("expected unrouted tool error, got %v", err)
	}
}

func TestNew_RejectsMissingRoute(t *testing.T) {
	reg := tool.NewRegistry()
	for _, desc := range tool.CoreDataTools() {
		if err := reg.Register(desc); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	stub := &stubSources{}
	if _, err := New(reg, Sources{Basic: stub, Enhanced: stub}); err == nil {
		t.Fatal("expected error for routes without a registered tool")
	}
}

func TestNew_RequiresSources(t *testing.T) {
	if _, err := New(tool.NewCatalog(), Sources{Basic: &stubSources{}}); err == nil {
		t.Fatal("expected error without enhanced source")
	}
}

func TestCall_UnknownTool(t *testing.T) {
	stub := &stubSources{}
	d := newTestDispatcher(t, stub)
	te := callErr(t, d, "get_weather", nil)
	if te.Code != protocol.CodeMethodNotFound || te.Message != "Tool not found: get_weather" {
		t.Errorf("got %d %q", te.Code, te.Message)
	}
}

func TestCall_MissingCityMakesNoSourceCalls(t *testing.T) {
	cityTools := []string{
		tool.CMHCHousingData, tool.MarketData, tool.PropertyListings, tool.RentalMarketData,
		tool.MarketTrends, tool.CensusHousingData, tool.NeighborhoodInsights, tool.PropertyTaxData,
		tool.RealEstateBoardData, tool.AffordabilityAnalysis, tool.ComprehensiveAnalysis,
	}
	for _, name := range cityTools {
		t.Run(name, func(t *testing.T) {
			stub := &stubSources{}
			d := newTestDispatcher(t, stub)
			for _, args := range []map[string]any{nil, {"city": ""}, {"city": 42}, {"city": nil}} {
				te := callErr(t, d, name, args)
				if te.Code != protocol.CodeInvalidParams || te.Message != "City is required" {
					t.Errorf("args %v: got %d %q", args, te.Code, te.Message)
				}
			}
			if n := stub.callCount(); n != 0 {
				t.Errorf("expected no source calls, got %v", stub.calls)
			}
		})
	}
}

func TestCall_InvalidOptionalArguments(t *testing.T) {
	cases := []struct {
		name string
		tool string
		args map[string]any
		msg  string
	}{
		{"bad province", tool.HousingPriceIndex, map[string]any{"province": "XX"}, "province must be one of"},
		{"bad data type", tool.MarketData, map[string]any{"city": "Toronto", "dataType": "weather"}, "dataType must be one of"},
		{"limit too high", tool.PropertyListings, map[string]any{"city": "Toronto", "limit": 101.0}, "limit must be at most 100"},
		{"limit too low", tool.PropertyListings, map[string]any{"city": "Toronto", "limit": 0.0}, "limit must be at least 1"},
		{"negative price", tool.PropertyListings, map[string]any{"city": "Toronto", "priceRange": map[string]any{"min": -1.0}}, "priceRange.min"},
		{"low income", tool.AffordabilityAnalysis, map[string]any{"city": "Toronto", "householdIncome": 1000.0}, "householdIncome must be at least 20000"},
		{"one city", tool.MarketComparison, map[string]any{"cities": []any{"Toronto"}}, "At least 2 cities"},
		{"six cities", tool.MarketComparison, map[string]any{"cities": []any{"a", "b", "c", "d", "e", "f"}}, "At most 5 cities"},
		{"blank city", tool.MarketComparison, map[string]any{"cities": []any{"Toronto", " "}}, "non-empty string"},
		{"bad metric", tool.MarketComparison, map[string]any{"cities": []any{"a", "b"}, "metrics": []any{"crime"}}, "metrics must only contain"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubSources{}
			d := newTestDispatcher(t, stub)
			te := callErr(t, d, tc.tool, tc.args)
			if te.Code != protocol.CodeInvalidParams || !strings.Contains(te.Message, tc.msg) {
				t.Errorf("got %d %q, want message containing %q", te.Code, te.Message, tc.msg)
			}
			if stub.callCount() != 0 {
				t.Errorf("expected no source calls, got %v", stub.calls)
			}
		})
	}
}

func TestCall_UnavailableMessages(t *testing.T) {
	cases := []struct {
		tool string
		args map[string]any
		want map[string]any
	}{
		{tool.HousingPriceIndex, nil, map[string]any{
			"province": "ON", "message": "Housing price index not available - upstream data source unavailable"}},
		{tool.BankOfCanadaRates, nil, map[string]any{
			"message": "Bank of Canada rates not available - upstream data source unavailable"}},
		{tool.RentalMarketData, map[string]any{"city": "Halifax"}, map[string]any{
			"city": "Halifax", "message": "Rental market data not available - no free public API exists"}},
		{tool.PropertyTaxData, map[string]any{"city": "Halifax"}, map[string]any{
			"city": "Halifax", "message": "Property tax data not available - no free public API exists"}},
		{tool.EconomicIndicators, nil, map[string]any{
			"message": "Economic indicators not available - no free public API exists"}},
	}
	for _, tc := range cases {
		t.Run(tc.tool, func(t *testing.T) {
			d := newTestDispatcher(t, &stubSources{})
			got := call(t, d, tc.tool, tc.args)
			if len(got) != len(tc.want) {
				t.Fatalf("payload = %v, want %v", got, tc.want)
			}
			for k, v := range tc.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestCall_HousingPriceIndexFound(t *testing.T) {
	stub := &stubSources{priceIndex: &source.PriceIndex{Province: "BC", DatasetCount: 12}}
	d := newTestDispatcher(t, stub)
	got := call(t, d, tool.HousingPriceIndex, map[string]any{"province": "BC"})
	if got["province"] != "BC" || got["datasetCount"] != 12.0 {
		t.Errorf("payload = %v", got)
	}
}

func TestCall_PanicBecomesInternalError(t *testing.T) {
	stub := &stubSources{panicOn: "BankOfCanadaRates"}
	d := newTestDispatcher(t, stub)
	te := callErr(t, d, tool.BankOfCanadaRates, nil)
	if te.Code != protocol.CodeInternalError {
		t.Errorf("code = %d", te.Code)
	}
	if te.Message != "Failed to get Bank of Canada rates: boom in BankOfCanadaRates" {
		t.Errorf("message = %q", te.Message)
	}
}

func TestCall_IsIdempotent(t *testing.T) {
	stub := &stubSources{
		board:  map[string]source.BoardReport{"Toronto": {City: "Toronto", MarketReport: source.MarketReport{AverageSalePrice: 1e6}}},
		census: map[string]source.Census{"Toronto": {City: "Toronto", MedianHouseholdIncome: 84000}},
	}
	d := newTestDispatcher(t, stub)
	args := map[string]any{"city": "Toronto", "province": "ON"}

	first, err := d.Call(context.Background(), tool.ComprehensiveAnalysis, args)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	second, err := d.Call(context.Background(), tool.ComprehensiveAnalysis, args)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if first.Content[0].Text != second.Content[0].Text {
		t.Errorf("results differ:\n%s\n%s", first.Content[0].Text, second.Content[0].Text)
	}
}

func TestCall_MarketDataSections(t *testing.T) {
	stub := &stubSources{marketData: &source.MarketData{City: "Ottawa", DatasetCount: 3}}
	d := newTestDispatcher(t, stub)

	all := call(t, d, tool.MarketData, map[string]any{"city": "Ottawa"})
	if len(all) != 3 {
		t.Errorf("all sections expected, got %v", all)
	}
	if all["rentalData"] != nil || all["trendsData"] != nil {
		t.Errorf("unavailable sections must be null: %v", all)
	}
	if md, ok := all["marketData"].(map[string]any); !ok || md["datasetCount"] != 3.0 {
		t.Errorf("marketData = %v", all["marketData"])
	}

	sales := call(t, d, tool.MarketData, map[string]any{"city": "Ottawa", "dataType": "sales"})
	if _, ok := sales["rentalData"]; ok {
		t.Errorf("unselected section present: %v", sales)
	}
	if _, ok := sales["marketData"]; !ok {
		t.Errorf("selected section missing: %v", sales)
	}
}

func TestCall_PropertyListingsEmpty(t *testing.T) {
	d := newTestDispatcher(t, &stubSources{})
	got := call(t, d, tool.PropertyListings, map[string]any{"city": "Toronto"})
	if got["message"] != msgNoListings || got["totalResults"] != 0.0 {
		t.Errorf("payload = %v", got)
	}
	if props, ok := got["properties"].([]any); !ok || len(props) != 0 {
		t.Errorf("properties = %#v", got["properties"])
	}
}

func TestCall_PropertyListingsFilters(t *testing.T) {
	stub := &stubSources{listings: []source.Listing{
		{ID: "1", Price: 450000, PropertyType: "condo"},
		{ID: "2", Price: 900000, PropertyType: "house"},
		{ID: "3", Price: 650000, PropertyType: "condo"},
		{ID: "4", Price: 700000, PropertyType: "condo"},
	}}
	d := newTestDispatcher(t, stub)
	got := call(t, d, tool.PropertyListings, map[string]any{
		"city":         "Toronto",
		"propertyType": "condo",
		"priceRange":   map[string]any{"min": 500000.0, "max": 0.0},
		"limit":        1.0,
	})
	if got["totalResults"] != 2.0 {
		t.Errorf("totalResults = %v, want 2", got["totalResults"])
	}
	props := got["properties"].([]any)
	if len(props) != 1 || props[0].(map[string]any)["id"] != "3" {
		t.Errorf("properties = %v", props)
	}
	filters := got["filters"].(map[string]any)
	if filters["propertyType"] != "condo" {
		t.Errorf("filters = %v", filters)
	}
}

func TestCall_AffordabilityAnalysis(t *testing.T) {
	rate := 6.0
	stub := &stubSources{
		board: map[string]source.BoardReport{"Toronto": {City: "Toronto", MarketReport: source.MarketReport{AverageSalePrice: 600000}}},
		rates: &source.BankRates{MortgageRate5Year: &rate},
	}
	d := newTestDispatcher(t, stub)
	got := call(t, d, tool.AffordabilityAnalysis, map[string]any{"city": "Toronto"})

	m := got["affordabilityMetrics"].(map[string]any)
	if m["householdIncome"] != 75000.0 || m["monthlyPayment"] != 2878.0 || m["downPaymentRequired"] != 120000.0 {
		t.Errorf("metrics = %v", m)
	}
	if m["qualifiesForMortgage"] != false {
		t.Errorf("should not qualify: %v", m)
	}
	if recs := got["recommendations"].([]any); len(recs) != 4 {
		t.Errorf("recommendations = %v", recs)
	}
	if got["demographics"] != nil {
		t.Errorf("demographics = %v, want null", got["demographics"])
	}
	if want := []string{"BankOfCanadaRates", "CensusHousing", "RealEstateBoard"}; !sameCalls(stub.calls, want) {
		t.Errorf("calls = %v", stub.calls)
	}
}

func TestCall_AffordabilityMissingData(t *testing.T) {
	d := newTestDispatcher(t, &stubSources{})
	got := call(t, d, tool.AffordabilityAnalysis, map[string]any{"city": "Toronto", "householdIncome": 120000.0})
	if got["message"] != msgAffordabilityMissing || got["city"] != "Toronto" {
		t.Errorf("payload = %v", got)
	}
}

func TestCall_MarketComparison(t *testing.T) {
	stub := &stubSources{
		board: map[string]source.BoardReport{
			"Toronto":   {MarketReport: source.MarketReport{AverageSalePrice: 1100000}},
			"Calgary":   {MarketReport: source.MarketReport{AverageSalePrice: 550000}},
			"Vancouver": {MarketReport: source.MarketReport{AverageSalePrice: 1300000}},
		},
		rental: map[string]source.RentalMarket{"Calgary": {AverageRents: source.Rents{TwoBedroom: 2200}}},
	}
	d := newTestDispatcher(t, stub)
	res, err := d.Call(context.Background(), tool.MarketComparison, map[string]any{
		"cities": []any{"Toronto", "Calgary", "Vancouver"},
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	text := res.Content[0].Text

	var got struct {
		Cities     []string                   `json:"cities"`
		Metrics    []string                   `json:"metrics"`
		Comparison map[string]json.RawMessage `json:"comparison"`
		Summary    struct {
			MostExpensive  string             `json:"mostExpensive"`
			MostAffordable string             `json:"mostAffordable"`
			PriceRange     map[string]float64 `json:"priceRange"`
		} `json:"summary"`
		DetailedData []map[string]any `json:"detailedData"`
	}
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Summary.MostExpensive != "Vancouver" || got.Summary.MostAffordable != "Calgary" {
		t.Errorf("summary = %+v", got.Summary)
	}
	if got.Summary.PriceRange["min"] != 550000 || got.Summary.PriceRange["max"] != 1300000 {
		t.Errorf("price range = %v", got.Summary.PriceRange)
	}
	if !slices.Equal(got.Metrics, []string{"all"}) {
		t.Errorf("metrics = %v", got.Metrics)
	}
	if len(got.DetailedData) != 3 || got.DetailedData[1]["city"] != "Calgary" {
		t.Errorf("detailed = %v", got.DetailedData)
	}
	// Comparison keys follow input order.
	if strings.Index(text, `"Toronto": {`) > strings.Index(text, `"Calgary": {`) {
		t.Errorf("comparison keys out of order:\n%s", text)
	}
	if !strings.Contains(string(got.Comparison["Calgary"]), `"rentalYield":4.8`) {
		t.Errorf("calgary = %s", got.Comparison["Calgary"])
	}
}

func TestCall_ComprehensiveAnalysis(t *testing.T) {
	stub := &stubSources{
		board: map[string]source.BoardReport{"Ottawa": {MarketReport: source.MarketReport{
			AverageSalePrice: 650000, AverageDaysOnMarket: 12, SalesVolume: 900, PriceIndex: 108,
		}}},
		census: map[string]source.Census{"Ottawa": {MedianHouseholdIncome: 102000}},
		econ:   &source.EconomicIndicators{InflationRate: 4.2},
	}
	d := newTestDispatcher(t, stub)
	got := call(t, d, tool.ComprehensiveAnalysis, map[string]any{"city": "Ottawa"})

	if _, ok := got["province"]; ok {
		t.Errorf("province should be omitted: %v", got["province"])
	}
	if got["analysisDate"] != "2025-03-14T09:30:00.000Z" {
		t.Errorf("analysisDate = %v", got["analysisDate"])
	}
	km := got["keyMetrics"].(map[string]any)
	if km["averagePrice"] != 650000.0 || km["salesVolume"] != 900.0 || km["medianIncome"] != 102000.0 || km["vacancyRate"] != 0.0 {
		t.Errorf("keyMetrics = %v", km)
	}
	summary := got["marketSummary"].([]any)
	if len(summary) != 2 || summary[0] != "Strong price growth indicates a seller's market" {
		t.Errorf("marketSummary = %v", summary)
	}
	recs := got["recommendations"].([]any)
	if len(recs) != 2 {
		t.Errorf("recommendations = %v", recs)
	}
	if got["trends"] != nil || got["interestRates"] != nil {
		t.Errorf("unavailable sections must be null")
	}
}

func TestCall_NeighborhoodInsightsDefaults(t *testing.T) {
	d := newTestDispatcher(t, &stubSources{})
	got := call(t, d, tool.NeighborhoodInsights, map[string]any{"city": "Regina"})
	if got["neighborhood"] != "City-wide" {
		t.Errorf("neighborhood = %v", got["neighborhood"])
	}
	if insights, ok := got["insights"].([]any); !ok || len(insights) != 0 {
		t.Errorf("insights = %#v", got["insights"])
	}
	data := got["data"].(map[string]any)
	for _, k := range []string{"census", "market", "assessment"} {
		if v, ok := data[k]; !ok || v != nil {
			t.Errorf("data.%s = %v, want null", k, v)
		}
	}
}

func TestCall_Observer(t *testing.T) {
	var records []CallRecord
	d := newTestDispatcher(t, &stubSources{}, WithObserver(func(_ context.Context, rec CallRecord) {
		records = append(records, rec)
	}))

	call(t, d, tool.BankOfCanadaRates, nil)
	callErr(t, d, tool.CMHCHousingData, nil)

	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if !records[0].OK() || records[0].Tool != tool.BankOfCanadaRates {
		t.Errorf("first record = %+v", records[0])
	}
	r := records[1]
	if r.OK() || r.Code != protocol.CodeInvalidParams || r.FailedIn != StateValidating {
		t.Errorf("second record = %+v", r)
	}
	if !r.StartedAt.Equal(fixedNow) {
		t.Errorf("started = %v", r.StartedAt)
	}
}

func sameCalls(got, want []string) bool {
	g := slices.Clone(got)
	slices.Sort(g)
	return slices.Equal(g, want)
}
