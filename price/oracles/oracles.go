// Package oracles holds one thin adapter per external price source the
// aggregator polls (spec.md section 4.M's supplement, grounded on
// original_source/price_oracles/: CoinGecko, WhiteBit, XT, TradeOgre,
// BitForex, AscendEx, Coinstore, NonKYC). Each adapter is a JSON-over-
// HTTPS GET against a fixed endpoint, parsed down to a single decimal
// price string; the timestamp reported back is the time the response
// was received, since none of these endpoints carry the quote's own
// server time.
package oracles

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// fetchJSON performs the GET and decodes the JSON body into out.
func fetchJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func now() int64 { return time.Now().Unix() }
