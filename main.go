// mwcpayd is a non-custodial Mimblewimble payment-processor daemon: it
// derives per-invoice keys from one wallet seed, drives the Slatepack
// exchange with a paying wallet, watches the chain for confirming
// kernels, and fires merchant callbacks as payments move through their
// lifecycle. See SPEC_FULL.md for the full module breakdown.
package main

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mwc-pay/mwcpayd/callback"
	"github.com/mwc-pay/mwcpayd/clock"
	"github.com/mwc-pay/mwcpayd/controlapi"
	"github.com/mwc-pay/mwcpayd/ecc"
	"github.com/mwc-pay/mwcpayd/expiry"
	"github.com/mwc-pay/mwcpayd/foreignapi"
	"github.com/mwc-pay/mwcpayd/healthcheck"
	"github.com/mwc-pay/mwcpayd/kvstore"
	"github.com/mwc-pay/mwcpayd/observer"
	"github.com/mwc-pay/mwcpayd/paystore"
	"github.com/mwc-pay/mwcpayd/paystore/postgres"
	"github.com/mwc-pay/mwcpayd/price"
	"github.com/mwc-pay/mwcpayd/price/oracles"
	"github.com/mwc-pay/mwcpayd/ticker"
	"github.com/mwc-pay/mwcpayd/tlsutil"
	"github.com/mwc-pay/mwcpayd/torproxy"
	"github.com/mwc-pay/mwcpayd/wallet"
	"github.com/mwc-pay/mwcpayd/walletfile"
)

const (
	paymentsDBFile     = "payments.db"
	nodeStateFile      = "node_state.bin"
	callbackRetryEvery = 30 * time.Second
	expiryPollEvery    = expiry.Period
	healthcheckEvery   = time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mwcpayd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Directory, 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	releaseLock, err := kvstore.AcquireDirectoryLock(cfg.Directory)
	if err != nil {
		return fmt.Errorf("acquiring directory lock: %w (is another mwcpayd already running?)", err)
	}
	defer releaseLock()

	if err := initLogRotator(filepath.Join(cfg.Directory, "mwcpayd.log")); err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	useLoggers()
	if err := setLogLevels(cfg.DebugLevel); err != nil {
		return err
	}
	mainLog.Infof("%s version %s starting, network=%s", appName, version(), cfg.Network)

	seed, err := openWalletSeed(cfg)
	if err != nil {
		return err
	}

	if cfg.RecoveryPassphrase {
		fmt.Println(wallet.RecoveryPassphrase(seed))
		wallet.Zeroize(seed)
		return nil
	}

	root, err := ecc.RootExtendedKey(seed)
	wallet.Zeroize(seed)
	if err != nil {
		return fmt.Errorf("deriving root key: %w", err)
	}
	w := wallet.Open(root)
	defer w.Close()

	if cfg.RootPublicKey {
		pub := w.RootPublicKey()
		fmt.Println(hex.EncodeToString(pub[:]))
		return nil
	}

	store, err := openPaymentStore(cfg)
	if err != nil {
		return err
	}

	if cfg.ShowCompletedPayments {
		return printCompletedPayments(store)
	}
	if cfg.ShowPayment != "" {
		id, parseErr := strconv.ParseUint(cfg.ShowPayment, 10, 64)
		if parseErr != nil {
			return fmt.Errorf("--show_payment: %w", parseErr)
		}
		return printPayment(store, id)
	}

	httpClient, err := torproxy.NewHTTPClient(torproxy.Config{
		SocksAddress: cfg.TorSocksProxyAddress,
		SocksPort:    cfg.TorSocksProxyPort,
	})
	if err != nil {
		return fmt.Errorf("building outbound http client: %w", err)
	}

	clk := clock.NewDefaultClock()

	cbDriver := callback.New(store, httpClient, clk, callbackRetryEvery)
	cbDriver.Start()
	defer cbDriver.Stop()

	expiryMon := expiry.New(cbDriver, ticker.New(expiryPollEvery))
	expiryMon.Start()
	defer expiryMon.Stop()

	var priceAgg *price.Aggregator
	if !cfg.PriceDisable {
		priceAgg = price.New(
			allOracles(),
			httpClient,
			clk,
			ticker.New(time.Duration(cfg.PriceUpdateInterval)*time.Second),
			time.Duration(cfg.PriceUpdateInterval)*time.Second,
			cfg.PriceAverageLength,
			cfg.Network == "mainnet",
		)
		priceAgg.Start()
		defer priceAgg.Stop()
	}

	nodeObserver := observer.New(store, cfg.Directory, func(err error) {
		requestShutdown(fmt.Sprintf("observer: %v", err))
	})
	if _, err := nodeObserver.LoadState(); err != nil {
		mainLog.Warnf("no prior node state at %s: %v", filepath.Join(cfg.Directory, nodeStateFile), err)
	}

	hcMonitor := healthcheck.NewMonitor([]*healthcheck.Observation{
		{
			Name:     "node-state-file",
			Check:    func() error { _, statErr := os.Stat(filepath.Join(cfg.Directory, nodeStateFile)); return statErr },
			Interval: healthcheckEvery,
			Timeout:  5 * time.Second,
			Backoff:  5 * time.Second,
			Attempts: 3,
		},
	}, func(name string) {
		mainLog.Errorf("healthcheck %q failed repeatedly", name)
	})
	hcMonitor.Start()
	defer hcMonitor.Stop()

	frgnServer := foreignapi.New(store, w, cfg.Network == "mainnet", cbDriver)
	ctrlServer := controlapi.New(store, w, priceSource(priceAgg))

	publicSrv, err := listenTLS(cfg.PublicAddress, cfg.PublicPort, cfg.PublicCertificate, cfg.PublicKey, cfg.Directory, "public", frgnServer)
	if err != nil {
		return err
	}
	privateSrv, err := listenTLS(cfg.PrivateAddress, cfg.PrivatePort, cfg.PrivateCertificate, cfg.PrivateKey, cfg.Directory, "private", ctrlServer)
	if err != nil {
		return err
	}

	go serveOrShutdown(publicSrv, "public foreign API")
	go serveOrShutdown(privateSrv, "private control API")

	catchSignals()
	<-shutdownContext().Done()

	mainLog.Infof("shutdown requested, draining servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = publicSrv.Shutdown(shutdownCtx)
	_ = privateSrv.Shutdown(shutdownCtx)

	return nil
}

// priceSource adapts a possibly-nil *price.Aggregator to
// controlapi.PriceSource, since price is disabled with --price_disable.
func priceSource(agg *price.Aggregator) controlapi.PriceSource {
	if agg == nil {
		return nil
	}
	return agg
}

// allOracles returns one adapter per source named in
// original_source/price_oracles/.
func allOracles() []price.Oracle {
	return []price.Oracle{
		&oracles.CoinGecko{},
		&oracles.WhiteBit{},
		&oracles.XT{},
		&oracles.TradeOgre{},
		&oracles.BitForex{},
		&oracles.AscendEx{},
		&oracles.Coinstore{},
		&oracles.NonKYC{},
	}
}

// openWalletSeed implements spec.md section 4.D's "Open": load and
// decrypt an existing wallet.seed, or generate and encrypt a fresh one
// on first run.
func openWalletSeed(cfg *config) ([]byte, error) {
	if walletfile.Exists(cfg.Directory) {
		es, err := walletfile.Load(cfg.Directory)
		if err != nil {
			return nil, fmt.Errorf("loading wallet file: %w", err)
		}
		password := cfg.Password
		if password == "" {
			var err error
			password, err = readPassword("Wallet password: ")
			if err != nil {
				return nil, err
			}
		}
		seed, err := wallet.DecryptSeed(es, password)
		if err != nil {
			return nil, fmt.Errorf("decrypting wallet seed: %w", err)
		}
		return seed, nil
	}

	mainLog.Infof("no wallet found in %s, creating a new one", cfg.Directory)
	seed, err := wallet.GenerateSeed()
	if err != nil {
		return nil, err
	}

	password := cfg.Password
	if password == "" {
		password, err = newWalletPassword()
		if err != nil {
			return nil, err
		}
	}

	es, err := wallet.EncryptSeed(seed, password)
	if err != nil {
		return nil, fmt.Errorf("encrypting wallet seed: %w", err)
	}
	if err := walletfile.Save(cfg.Directory, es); err != nil {
		return nil, fmt.Errorf("saving wallet file: %w", err)
	}

	fmt.Println("wallet created. Write down your recovery passphrase:")
	fmt.Println(wallet.RecoveryPassphrase(seed))
	return seed, nil
}

// openPaymentStore opens the Postgres-backed store when --database_dsn
// is set, or the local bbolt store otherwise.
func openPaymentStore(cfg *config) (paystore.Store, error) {
	if cfg.DatabaseDSN != "" {
		store, err := postgres.Open(cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return store, nil
	}
	store, err := paystore.Open(cfg.Directory, paymentsDBFile)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt store: %w", err)
	}
	return store, nil
}

func printCompletedPayments(store paystore.Store) error {
	payments, err := store.GetCompletedPayments()
	if err != nil {
		return err
	}
	now := time.Now()
	for _, p := range payments {
		fmt.Printf("%d\t%s\t%s\n", p.ID, p.ComputeStatus(now), p.URL)
	}
	return nil
}

func printPayment(store paystore.Store, id uint64) error {
	p, err := store.GetPaymentInfo(id)
	if err != nil {
		return err
	}
	fmt.Printf("%+v\n", p)
	return nil
}

// listenTLS builds an *http.Server bound to address:port, behind a
// self-signed certificate when none of certPath/keyPath are configured.
func listenTLS(address string, port int, certPath, keyPath, dataDir, label string, handler http.Handler) (*http.Server, error) {
	if certPath == "" {
		certPath = filepath.Join(dataDir, label+".cert")
	}
	if keyPath == "" {
		keyPath = filepath.Join(dataDir, label+".key")
	}

	tlsCert, err := tlsutil.EnsureCert(certPath, keyPath, address)
	if err != nil {
		return nil, fmt.Errorf("%s API TLS setup: %w", label, err)
	}

	return &http.Server{
		Addr:      fmt.Sprintf("%s:%d", address, port),
		Handler:   handler,
		TLSConfig: &tls.Config{Certificates: []tls.Certificate{tlsCert}},
	}, nil
}

func serveOrShutdown(srv *http.Server, label string) {
	mainLog.Infof("%s listening on %s", label, srv.Addr)
	if err := srv.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
		requestShutdown(fmt.Sprintf("%s: %v", label, err))
	}
}
