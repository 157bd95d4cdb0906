package oracles

import (
	"context"
	"fmt"
	"net/http"
)

const xtURL = "https://sapi.xt.com/v4/public/ticker/price?symbol=mwc_usdt"

// XT polls XT.com's ticker/price endpoint for MWC/USDT.
type XT struct{}

func (XT) Name() string { return "XT" }

func (XT) Fetch(ctx context.Context, client *http.Client) (int64, string, error) {
	var body struct {
		Result []struct {
			P string `json:"p"`
		} `json:"result"`
	}
	if err := fetchJSON(ctx, client, xtURL, &body); err != nil {
		return 0, "", err
	}
	if len(body.Result) == 0 || body.Result[0].P == "" {
		return 0, "", fmt.Errorf("xt: empty result")
	}
	return now(), body.Result[0].P, nil
}
