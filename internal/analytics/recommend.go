package analytics

import "github.com/canre-io/canre/internal/source"

// Rule thresholds.
const (
	budgetStrainRatio     = 35.0
	largeDownPayment      = 100000.0
	sellersMarketDays     = 15.0
	competitiveMarketDays = 20.0
	highInflation         = 4.0
	strongPriceIndex      = 105.0
	weakPriceIndex        = 95.0
	highMedianIncome      = 80000.0
	singleFamilyShare     = 60.0
	highDensityShare      = 50.0
)

const competitiveMarket = "Very competitive market, properties sell quickly"

// AffordabilityRecommendations returns advice for the metrics, in rule
// order.
func AffordabilityRecommendations(m AffordabilityMetrics, city string) []string {
	recs := []string{}
	if !m.QualifiesForMortgage {
		recs = append(recs,
			"Consider increasing income or looking at more affordable areas",
			"Explore alternative markets near "+city)
	}
	if m.DownPaymentRequired > largeDownPayment {
		recs = append(recs, "Consider saving for a larger down payment to reduce monthly costs")
	}
	if m.AffordabilityRatio != nil && *m.AffordabilityRatio > budgetStrainRatio {
		recs = append(recs, "Housing costs may strain budget - consider smaller properties")
	}
	return recs
}

// MarketSummary describes pricing conditions from a board report.
func MarketSummary(board *source.BoardReport) []string {
	summary := []string{}
	if board == nil {
		return summary
	}
	r := board.MarketReport
	switch {
	case r.PriceIndex > strongPriceIndex:
		summary = append(summary, "Strong price growth indicates a seller's market")
	case r.PriceIndex < weakPriceIndex:
		summary = append(summary, "Price decline suggests buyer opportunities")
	default:
		summary = append(summary, "Market shows stable pricing conditions")
	}
	if r.AverageDaysOnMarket < competitiveMarketDays {
		summary = append(summary, competitiveMarket)
	}
	return summary
}

// MarketRecommendations returns buyer advice. Rules whose input is missing
// are skipped.
func MarketRecommendations(board *source.BoardReport, econ *source.EconomicIndicators) []string {
	recs := []string{}
	if board != nil && board.MarketReport.AverageDaysOnMarket < sellersMarketDays {
		recs = append(recs, "Sellers market - act quickly on good properties")
	}
	if econ != nil && econ.InflationRate > highInflation {
		recs = append(recs, "High inflation may impact mortgage rates")
	}
	return recs
}

// NeighborhoodInsights describes a neighborhood from census and board
// data. Rules whose input is missing are skipped.
func NeighborhoodInsights(census *source.Census, board *source.BoardReport) []string {
	insights := []string{}
	if census != nil {
		if census.MedianHouseholdIncome > highMedianIncome {
			insights = append(insights, "High-income neighborhood with strong buying power")
		}
		switch {
		case census.DwellingTypes.SingleDetached > singleFamilyShare:
			insights = append(insights, "Primarily single-family homes, family-oriented area")
		case census.DwellingTypes.Apartments > highDensityShare:
			insights = append(insights, "High-density area with many condominiums and apartments")
		}
	}
	if board != nil && board.MarketReport.AverageDaysOnMarket < competitiveMarketDays {
		insights = append(insights, competitiveMarket)
	}
	return insights
}
