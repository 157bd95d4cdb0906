package oracles

import (
	"context"
	"fmt"
	"net/http"
)

const ascendExURL = "https://ascendex.com/api/pro/v1/ticker?symbol=MWC/USDT"

// AscendEx polls AscendEx's ticker endpoint for MWC/USDT.
type AscendEx struct{}

func (AscendEx) Name() string { return "AscendEx" }

func (AscendEx) Fetch(ctx context.Context, client *http.Client) (int64, string, error) {
	var body struct {
		Data struct {
			Close string `json:"close"`
		} `json:"data"`
	}
	if err := fetchJSON(ctx, client, ascendExURL, &body); err != nil {
		return 0, "", err
	}
	if body.Data.Close == "" {
		return 0, "", fmt.Errorf("ascendex: missing close price")
	}
	return now(), body.Data.Close, nil
}
