package main

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename    = "mwcpayd.conf"
	defaultNetwork           = "mainnet"
	defaultPrivatePort       = 3420
	defaultPublicPort        = 3421
	defaultTorSocksPort      = 9050
	defaultNodeDNSSeedPort   = 3414
	defaultPriceUpdateSecs   = 30
	defaultPriceAverageLen   = 10
	defaultRequiredConfs     = 1
	appName                  = "mwcpayd"
)

// config mirrors the CLI/INI surface of spec.md section 6, populated by
// jessevdk/go-flags exactly like the teacher's lnd config struct.
type config struct {
	ShowVersion bool `short:"V" long:"version" description:"Display version and exit"`

	Directory string `long:"directory" description:"Data directory, default $HOME/.mwc_pay/<network>"`
	Network   string `long:"network" description:"mainnet or testnet" default:"mainnet"`
	Password  string `long:"password" description:"Wallet password, bypassing the interactive prompt"`

	DatabaseDSN string `long:"database_dsn" description:"Postgres DSN; if unset, payments are stored in a local bbolt file"`

	RecoveryPassphrase  bool   `long:"recovery_passphrase" description:"Print the wallet seed as recovery words (one per byte from a 256-word list, not BIP-39) and exit"`
	RootPublicKey       bool   `long:"root_public_key" description:"Print the wallet's root public key and exit"`
	ShowCompletedPayments bool `long:"show_completed_payments" description:"Print completed payment history and exit"`
	ShowPayment         string `long:"show_payment" description:"Print one payment by id and exit"`

	PrivateAddress     string `long:"private_address" description:"Private control API bind address" default:"127.0.0.1"`
	PrivatePort        int    `long:"private_port" description:"Private control API bind port" default:"3420"`
	PrivateCertificate string `long:"private_certificate" description:"Private API TLS certificate path"`
	PrivateKey         string `long:"private_key" description:"Private API TLS key path"`

	PublicAddress     string `long:"public_address" description:"Public foreign API bind address" default:"0.0.0.0"`
	PublicPort        int    `long:"public_port" description:"Public foreign API bind port" default:"3421"`
	PublicCertificate string `long:"public_certificate" description:"Public API TLS certificate path"`
	PublicKey         string `long:"public_key" description:"Public API TLS key path"`

	TorSocksProxyAddress string `long:"tor_socks_proxy_address" description:"SOCKS5 proxy address for outbound Tor traffic"`
	TorSocksProxyPort    int    `long:"tor_socks_proxy_port" description:"SOCKS5 proxy port" default:"9050"`
	TorBridge            string `long:"tor_bridge" description:"Tor bridge line"`
	TorTransportPlugin   string `long:"tor_transport_plugin" description:"Tor pluggable transport binary"`

	NodeDNSSeedAddress string `long:"node_dns_seed_address" description:"Chain bootstrap DNS seed domain"`
	NodeDNSSeedPort    int    `long:"node_dns_seed_port" description:"Chain bootstrap P2P port" default:"3414"`

	PriceUpdateInterval int  `long:"price_update_interval" description:"Oracle poll interval in seconds" default:"30"`
	PriceAverageLength  int  `long:"price_average_length" description:"Rolling average window length" default:"10"`
	PriceDisable        bool `long:"price_disable" description:"Disable the price aggregator and /get_price"`

	DebugLevel string `long:"debuglevel" description:"Logging level, e.g. info or info,FRGN=debug" default:"info"`
}

// defaultConfig returns a config with every flag at its documented
// default, mirroring lnd's defaultConfig().
func defaultConfig() config {
	return config{
		Network:             defaultNetwork,
		PrivateAddress:      "127.0.0.1",
		PrivatePort:         defaultPrivatePort,
		PublicAddress:       "0.0.0.0",
		PublicPort:          defaultPublicPort,
		TorSocksProxyPort:   defaultTorSocksPort,
		NodeDNSSeedPort:     defaultNodeDNSSeedPort,
		PriceUpdateInterval: defaultPriceUpdateSecs,
		PriceAverageLength:  defaultPriceAverageLen,
		DebugLevel:          "info",
	}
}

// defaultDataDir returns $HOME/.mwc_pay/<network>, spec.md section 6's
// default data directory.
func defaultDataDir(network string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".mwc_pay", network)
}

// loadConfig parses CLI flags (and, if present, an mwcpayd.conf INI file
// in the resolved data directory) into a config, the way lnd's
// loadConfig merges lnd.conf before CLI overrides — here CLI flags take
// precedence since go-flags' IniParse only fills unset fields.
func loadConfig() (*config, error) {
	cfg := defaultConfig()

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if cfg.ShowVersion {
		fmt.Println(appName, version())
		os.Exit(0)
	}

	if cfg.Directory == "" {
		cfg.Directory = defaultDataDir(cfg.Network)
	}

	confFile := filepath.Join(cfg.Directory, defaultConfigFilename)
	if _, err := os.Stat(confFile); err == nil {
		iniParser := flags.NewIniParser(parser)
		if err := iniParser.ParseFile(confFile); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", confFile, err)
		}
	}

	if cfg.Network != "mainnet" && cfg.Network != "testnet" {
		return nil, fmt.Errorf("--network must be mainnet or testnet, got %q", cfg.Network)
	}

	return &cfg, nil
}

func version() string {
	return "0.1.0"
}
