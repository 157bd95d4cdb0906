package oracles

import (
	"context"
	"fmt"
	"net/http"
)

const coinstoreURL = "https://api.coinstore.com/api/v1/market/tickers?symbol=MWCUSDT"

// Coinstore polls Coinstore's ticker endpoint for MWC/USDT.
type Coinstore struct{}

func (Coinstore) Name() string { return "Coinstore" }

func (Coinstore) Fetch(ctx context.Context, client *http.Client) (int64, string, error) {
	var body struct {
		Data []struct {
			Close string `json:"close"`
		} `json:"data"`
	}
	if err := fetchJSON(ctx, client, coinstoreURL, &body); err != nil {
		return 0, "", err
	}
	if len(body.Data) == 0 || body.Data[0].Close == "" {
		return 0, "", fmt.Errorf("coinstore: empty data")
	}
	return now(), body.Data[0].Close, nil
}
