// Package nodeseed resolves the chain client's bootstrap peer list from
// a DNS seed domain (spec.md section 6's `--node_dns_seed_address /
// _port`: the address names a seed domain like "mainnet.seed1.mwc.mw",
// the port is the P2P port to pair with each resolved IP) — the way
// lnd's chainregistry.go bootstraps neutrino/btcd peer candidates from a
// list of seed hostnames. Uses miekg/dns directly against the system
// resolver so A and AAAA lookups can be issued as one explicit query
// each, rather than relying on net.LookupHost's combined/ordered result.
package nodeseed

import (
	"net"
	"strconv"

	"github.com/miekg/dns"

	"github.com/mwc-pay/mwcpayd/errkind"
)

const defaultDNSPort = "53"

// Resolve looks up A and AAAA records for seedDomain and returns one
// "ip:p2pPort" candidate per resolved address. The chain client
// (out of scope per spec.md section 1's non-goals) uses these as its
// initial peer candidates.
func Resolve(seedDomain string, p2pPort int) ([]string, error) {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(conf.Servers) == 0 {
		conf = &dns.ClientConfig{Servers: []string{"127.0.0.1"}, Port: defaultDNSPort}
	}
	server := net.JoinHostPort(conf.Servers[0], conf.Port)

	client := new(dns.Client)
	var addrs []string
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(seedDomain), qtype)
		msg.RecursionDesired = true

		reply, _, err := client.Exchange(msg, server)
		if err != nil {
			continue // try the other record type before failing outright
		}
		if reply.Rcode != dns.RcodeSuccess {
			continue
		}

		addrs = append(addrs, addressesFromAnswers(reply.Answer, p2pPort)...)
	}

	if len(addrs) == 0 {
		return nil, errkind.New(errkind.Transient, "nodeseed: no addresses found for %s", seedDomain)
	}
	return addrs, nil
}

// addressesFromAnswers extracts "ip:p2pPort" candidates from a set of
// DNS answer records, ignoring any record that isn't an A or AAAA.
func addressesFromAnswers(answers []dns.RR, p2pPort int) []string {
	var addrs []string
	for _, rr := range answers {
		var ip net.IP
		switch rec := rr.(type) {
		case *dns.A:
			ip = rec.A
		case *dns.AAAA:
			ip = rec.AAAA
		default:
			continue
		}
		addrs = append(addrs, net.JoinHostPort(ip.String(), strconv.Itoa(p2pPort)))
	}
	return addrs
}
