package oracles

import (
	"context"
	"fmt"
	"net/http"
)

const bitForexURL = "https://api.bitforex.com/api/v1/market/ticker?symbol=coin-usdt-mwc"

// BitForex polls BitForex's market ticker for MWC/USDT.
type BitForex struct{}

func (BitForex) Name() string { return "BitForex" }

func (BitForex) Fetch(ctx context.Context, client *http.Client) (int64, string, error) {
	var body struct {
		Data struct {
			Last float64 `json:"last"`
		} `json:"data"`
	}
	if err := fetchJSON(ctx, client, bitForexURL, &body); err != nil {
		return 0, "", err
	}
	if body.Data.Last == 0 {
		return 0, "", fmt.Errorf("bitforex: no last price in response")
	}
	return now(), fmt.Sprintf("%v", body.Data.Last), nil
}
