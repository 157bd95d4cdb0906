package nodeseed

import (
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

func mustRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	require.NoError(t, err)
	return rr
}

func TestAddressesFromAnswersExtractsAAndAAAA(t *testing.T) {
	answers := []dns.RR{
		mustRR(t, "seed1.mwc.mw. 300 IN A 203.0.113.7"),
		mustRR(t, "seed1.mwc.mw. 300 IN AAAA 2001:db8::1"),
		mustRR(t, "seed1.mwc.mw. 300 IN TXT \"ignored\""),
	}

	addrs := addressesFromAnswers(answers, 3414)
	require.ElementsMatch(t, []string{
		net.JoinHostPort("203.0.113.7", "3414"),
		net.JoinHostPort("2001:db8::1", "3414"),
	}, addrs)
}

func TestAddressesFromAnswersEmpty(t *testing.T) {
	require.Empty(t, addressesFromAnswers(nil, 3414))
}

func TestResolveFailsForUnroutableSeed(t *testing.T) {
	_, err := Resolve("this-domain-should-not-resolve.invalid", 3414)
	require.Error(t, err)
}
