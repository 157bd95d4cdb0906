package main

import (
	"net/url"

	"github.com/urfave/cli"
)

var getPaymentInfoCommand = cli.Command{
	Name:      "getpaymentinfo",
	Category:  "Payments",
	Usage:     "Look up a payment's current status.",
	ArgsUsage: "payment_id",
	Action:    actionDecorator(getPaymentInfo),
}

func getPaymentInfo(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "getpaymentinfo")
	}
	client := newControlClient(ctx)

	q := url.Values{"payment_id": {ctx.Args().First()}}
	var result map[string]interface{}
	if err := client.get("/get_payment_info", q, &result); err != nil {
		return err
	}
	return printJSON(result)
}
