package oracles

import (
	"context"
	"fmt"
	"net/http"
)

const nonKYCURL = "https://api.nonkyc.io/api/v2/ticker/MWC_USDT"

// NonKYC polls NonKYC's ticker endpoint for MWC/USDT.
type NonKYC struct{}

func (NonKYC) Name() string { return "NonKYC" }

func (NonKYC) Fetch(ctx context.Context, client *http.Client) (int64, string, error) {
	var body struct {
		LastPrice string `json:"lastPrice"`
	}
	if err := fetchJSON(ctx, client, nonKYCURL, &body); err != nil {
		return 0, "", err
	}
	if body.LastPrice == "" {
		return 0, "", fmt.Errorf("nonkyc: missing lastPrice")
	}
	return now(), body.LastPrice, nil
}
