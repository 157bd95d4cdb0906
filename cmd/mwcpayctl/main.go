// mwcpayctl is the operator-facing CLI companion to mwcpayd, calling the
// private control API (spec.md section 4.K) over HTTPS the way
// lncli calls lnd's RPC surface, minus the transport: the control API is
// bare GET/JSON, not gRPC, so there is no macaroon or client cert here —
// network placement is the access control.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "mwcpayctl: %v\n", err)
	os.Exit(1)
}

func main() {
	app := cli.NewApp()
	app.Name = "mwcpayctl"
	app.Usage = "control a running mwcpayd instance"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rpcserver",
			Usage: "host:port the private control API listens on",
			Value: "127.0.0.1:3420",
		},
		cli.BoolFlag{
			Name:  "insecure",
			Usage: "skip TLS certificate verification (self-signed dev certs)",
		},
	}
	app.Commands = []cli.Command{
		createPaymentCommand,
		getPaymentInfoCommand,
		getPriceCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
