package main

import "github.com/urfave/cli"

var getPriceCommand = cli.Command{
	Name:     "getprice",
	Category: "Price",
	Usage:    "Print the aggregator's current MWC/USD price.",
	Action:   actionDecorator(getPrice),
}

func getPrice(ctx *cli.Context) error {
	client := newControlClient(ctx)

	var result map[string]interface{}
	if err := client.get("/get_price", nil, &result); err != nil {
		return err
	}
	return printJSON(result)
}
