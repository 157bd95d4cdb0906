package oracles

import (
	"context"
	"fmt"
	"net/http"
)

const whiteBitURL = "https://whitebit.com/api/v4/public/ticker?market=MWC_USDT"

// WhiteBit polls WhiteBit's public ticker for MWC/USDT.
type WhiteBit struct{}

func (WhiteBit) Name() string { return "WhiteBit" }

func (WhiteBit) Fetch(ctx context.Context, client *http.Client) (int64, string, error) {
	var body struct {
		LastPrice string `json:"last_price"`
	}
	if err := fetchJSON(ctx, client, whiteBitURL, &body); err != nil {
		return 0, "", err
	}
	if body.LastPrice == "" {
		return 0, "", fmt.Errorf("whitebit: missing last_price")
	}
	return now(), body.LastPrice, nil
}
