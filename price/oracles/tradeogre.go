package oracles

import (
	"context"
	"fmt"
	"net/http"
)

const tradeOgreURL = "https://tradeogre.com/api/v1/ticker/USDT-MWC"

// TradeOgre polls TradeOgre's ticker endpoint for MWC/USDT.
type TradeOgre struct{}

func (TradeOgre) Name() string { return "TradeOgre" }

func (TradeOgre) Fetch(ctx context.Context, client *http.Client) (int64, string, error) {
	var body struct {
		Price string `json:"price"`
	}
	if err := fetchJSON(ctx, client, tradeOgreURL, &body); err != nil {
		return 0, "", err
	}
	if body.Price == "" {
		return 0, "", fmt.Errorf("tradeogre: missing price")
	}
	return now(), body.Price, nil
}
