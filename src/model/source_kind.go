package model

// SourceKind identifies one of the signal feeds the collectors produce.
type SourceKind string

const (
	SourcePriceMomentum SourceKind = "price_momentum"
	SourceMarketOdds    SourceKind = "market_odds"
	SourceMacroIndex    SourceKind = "macro_index"
	SourceNewsSentiment SourceKind = "news_sentiment"
)

// AllSources lists every feed in stable order. Iteration over signal maps goes
// through this slice so derived values do not depend on map ordering.
var AllSources = []SourceKind{
	SourcePriceMomentum,
	SourceMarketOdds,
	SourceMacroIndex,
	SourceNewsSentiment,
}
