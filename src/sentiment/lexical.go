package sentiment

import (
	"context"
	"fmt"
	"strings"
)

// LexicalScorer is the deterministic word-list fallback. It tallies bullish
// and bearish vocabulary across the texts and normalizes the imbalance to
// [-1, 1]. No network, no state, same input always gives the same output.
type LexicalScorer struct{}

func NewLexicalScorer() *LexicalScorer {
	return &LexicalScorer{}
}

var bullishWords = map[string]struct{}{
	"surge": {}, "rally": {}, "soar": {}, "soars": {}, "gain": {}, "gains": {},
	"bullish": {}, "breakout": {}, "record": {}, "high": {}, "highs": {},
	"rise": {}, "rises": {}, "rising": {}, "jump": {}, "jumps": {}, "climb": {},
	"climbs": {}, "adoption": {}, "approval": {}, "upgrade": {}, "inflow": {},
	"inflows": {}, "buy": {}, "buying": {}, "accumulate": {}, "optimism": {},
	"recover": {}, "recovers": {}, "recovery": {}, "rebound": {}, "moon": {},
}

var bearishWords = map[string]struct{}{
	"crash": {}, "plunge": {}, "plunges": {}, "drop": {}, "drops": {},
	"bearish": {}, "selloff": {}, "sell-off": {}, "dump": {}, "dumps": {},
	"fall": {}, "falls": {}, "falling": {}, "low": {}, "lows": {}, "fear": {},
	"ban": {}, "hack": {}, "hacked": {}, "fraud": {}, "lawsuit": {}, "sec": {},
	"outflow": {}, "outflows": {}, "liquidation": {}, "liquidations": {},
	"decline": {}, "declines": {}, "tumble": {}, "tumbles": {}, "panic": {},
	"collapse": {}, "warning": {}, "crackdown": {},
}

func (s *LexicalScorer) Score(_ context.Context, texts []string) (Result, error) {
	var bullish, bearish int

	for _, text := range texts {
		for _, token := range tokenize(text) {
			if _, ok := bullishWords[token]; ok {
				bullish++
				continue
			}
			if _, ok := bearishWords[token]; ok {
				bearish++
			}
		}
	}

	total := bullish + bearish
	aggregate := 0.0
	if total > 0 {
		aggregate = float64(bullish-bearish) / float64(total)
	}

	return Result{
		Aggregate: aggregate,
		Summary:   fmt.Sprintf("lexical: %d bullish / %d bearish terms across %d headlines", bullish, bearish, len(texts)),
		ScoredBy:  ScoredByLexical,
	}, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= '0' && r <= '9' {
			return false
		}
		return r != '-'
	})
}
