package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate"

	"github.com/mwc-pay/mwcpayd/callback"
	"github.com/mwc-pay/mwcpayd/chainclient"
	"github.com/mwc-pay/mwcpayd/controlapi"
	"github.com/mwc-pay/mwcpayd/expiry"
	"github.com/mwc-pay/mwcpayd/foreignapi"
	"github.com/mwc-pay/mwcpayd/observer"
	"github.com/mwc-pay/mwcpayd/paystore"
	"github.com/mwc-pay/mwcpayd/price"
)

// backendLog is the rotating multi-writer every subsystem logger's
// handler is built from, matching the teacher's lnd.go backendLog.
var backendLog = btclog.NewBackend(logWriter{})

// subsystem loggers, one per package, mirroring the teacher's scattered
// ltndLog/htlcLog/peerLog convention.
var (
	mainLog     = backendLog.Logger("MAIN")
	pstoreLog   = backendLog.Logger("PSTR")
	observerLog = backendLog.Logger("OBSV")
	cbLog       = backendLog.Logger("CLBK")
	frgnLog     = backendLog.Logger("FRGN")
	ctrlLog     = backendLog.Logger("CTRL")
	expiryLog   = backendLog.Logger("EXPY")
	priceLog    = backendLog.Logger("PRIC")
	chainLog    = backendLog.Logger("CHNC")
)

// subsystemLoggers maps each subsystem's log tag to its SetLevel-capable
// logger, used by --debuglevel parsing.
var subsystemLoggers = map[string]btclog.Logger{
	"MAIN": mainLog,
	"PSTR": pstoreLog,
	"OBSV": observerLog,
	"CLBK": cbLog,
	"FRGN": frgnLog,
	"CTRL": ctrlLog,
	"EXPY": expiryLog,
	"PRIC": priceLog,
	"CHNC": chainLog,
}

// useLoggers wires the per-package UseLogger setters so each internal
// package logs through its own tagged subsystem logger instead of
// btclog.Disabled.
func useLoggers() {
	callback.UseLogger(cbLog)
	foreignapi.UseLogger(frgnLog)
	controlapi.UseLogger(ctrlLog)
	expiry.UseLogger(expiryLog)
	price.UseLogger(priceLog)
	chainclient.UseLogger(chainLog)
	observer.UseLogger(observerLog)
	paystore.UseLogger(pstoreLog)
}

// setLogLevels parses a --debuglevel value of the form
// "info" (applies to all subsystems) or "info,FRGN=debug,CTRL=trace"
// (per-subsystem overrides after a global default).
func setLogLevels(debugLevel string) error {
	if debugLevel == "" {
		return nil
	}

	levels := splitDebugLevel(debugLevel)
	if global, ok := levels[""]; ok {
		for _, logger := range subsystemLoggers {
			level, ok := btclog.LevelFromString(global)
			if !ok {
				return errBadLogLevel(global)
			}
			logger.SetLevel(level)
		}
	}

	for tag, levelStr := range levels {
		if tag == "" {
			continue
		}
		logger, ok := subsystemLoggers[tag]
		if !ok {
			return errUnknownSubsystem(tag)
		}
		level, ok := btclog.LevelFromString(levelStr)
		if !ok {
			return errBadLogLevel(levelStr)
		}
		logger.SetLevel(level)
	}
	return nil
}

// splitDebugLevel parses "info,FRGN=debug,CTRL=trace" into a map keyed
// by subsystem tag, with the bare global level (if any) under the
// empty-string key — mirroring lnd's parseAndSetDebugLevels.
func splitDebugLevel(debugLevel string) map[string]string {
	levels := make(map[string]string)
	for _, part := range strings.Split(debugLevel, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if tag, level, ok := strings.Cut(part, "="); ok {
			levels[tag] = level
		} else {
			levels[""] = part
		}
	}
	return levels
}

func errUnknownSubsystem(tag string) error {
	return fmt.Errorf("unknown subsystem %q in --debuglevel", tag)
}

func errBadLogLevel(level string) error {
	return fmt.Errorf("unrecognized log level %q in --debuglevel", level)
}

// logWriter hands rotated log lines to stdout and the rotating file
// writer set up by initLogRotator, matching lnd.go's logWriter shape.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

var logRotator *logrotate.Rotator

// initLogRotator opens (creating parent directories as needed) a log
// file at logFile, rotating once it exceeds 10*1024 KB.
func initLogRotator(logFile string) error {
	r, err := logrotate.NewRotator(logFile, 10*1024)
	if err != nil {
		return err
	}
	logRotator = r
	return nil
}
