package oracles

import (
	"context"
	"fmt"
	"net/http"
)

const coinGeckoURL = "https://api.coingecko.com/api/v3/simple/price?ids=mimblewimble-coin&vs_currencies=usd"

// CoinGecko polls CoinGecko's simple-price endpoint for MWC/USD.
type CoinGecko struct{}

func (CoinGecko) Name() string { return "CoinGecko" }

func (CoinGecko) Fetch(ctx context.Context, client *http.Client) (int64, string, error) {
	var body struct {
		MimblewimbleCoin struct {
			USD float64 `json:"usd"`
		} `json:"mimblewimble-coin"`
	}
	if err := fetchJSON(ctx, client, coinGeckoURL, &body); err != nil {
		return 0, "", err
	}
	if body.MimblewimbleCoin.USD == 0 {
		return 0, "", fmt.Errorf("coingecko: no usd quote in response")
	}
	return now(), fmt.Sprintf("%v", body.MimblewimbleCoin.USD), nil
}
