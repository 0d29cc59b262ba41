package main

import (
	"fmt"

	"dex_trader/internal/config"
	"dex_trader/internal/core"
	"dex_trader/internal/risk/margin"
	"dex_trader/internal/trading/order"
	"dex_trader/pkg/cli"
	apperrors "dex_trader/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type liquidationOptions struct {
	orderType string
	price     string
	quantity  string
	margin    string
	leverage  string
	mmr       string
}

type liquidationResult struct {
	OrderType         order.OrderType         `json:"orderType"`
	ProtocolOrderType order.ProtocolOrderType `json:"protocolOrderType"`
	Side              core.OrderSide          `json:"side"`
	Margin            decimal.Decimal         `json:"margin"`
	LiquidationPrice  decimal.Decimal         `json:"liquidationPrice"`
}

func newLiquidationCmd() *cobra.Command {
	opts := &liquidationOptions{}
	defaultMMR := decimal.NewFromFloat(config.DefaultConfig().Trading.DefaultMaintenanceMMR)

	cmd := &cobra.Command{
		Use:   "liquidation",
		Short: "Compute the liquidation price of a prospective order",
		Long: `Either --margin or --leverage must be given.
With --leverage the margin is quantity * price / leverage.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := order.ParseOrderType(opts.orderType)
			if err != nil {
				return err
			}
			protocolType, err := order.ToProtocolOrderTypeStrict(t)
			if err != nil {
				return err
			}

			price, err := cli.ParseDecimal("price", opts.price)
			if err != nil {
				return err
			}
			quantity, err := cli.ParseDecimal("quantity", opts.quantity)
			if err != nil {
				return err
			}
			mmr, err := cli.ParseDecimal("mmr", opts.mmr)
			if err != nil {
				return err
			}

			var orderMargin decimal.Decimal
			switch {
			case opts.margin != "":
				orderMargin, err = cli.ParseDecimal("margin", opts.margin)
			case opts.leverage != "":
				var leverage decimal.Decimal
				if leverage, err = cli.ParseDecimal("leverage", opts.leverage); err == nil {
					orderMargin, err = margin.CalculateMargin(quantity, price, leverage)
				}
			default:
				err = fmt.Errorf("one of --margin or --leverage is required: %w", apperrors.ErrInvalidInput)
			}
			if err != nil {
				return err
			}

			side := order.Side(t)
			liq, err := margin.CalculateLiquidationPrice(margin.LiquidationInput{
				Price:                  price,
				Quantity:               quantity,
				Margin:                 orderMargin,
				Side:                   side,
				MaintenanceMarginRatio: mmr,
			})
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), liquidationResult{
				OrderType:         t,
				ProtocolOrderType: protocolType,
				Side:              side,
				Margin:            orderMargin,
				LiquidationPrice:  liq,
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.orderType, "order-type", string(order.TypeBuy), "order type, e.g. buy, sell_po, STOP_SELL")
	f.StringVar(&opts.price, "price", "", "entry price")
	f.StringVar(&opts.quantity, "quantity", "", "order quantity")
	f.StringVar(&opts.margin, "margin", "", "order margin")
	f.StringVar(&opts.leverage, "leverage", "", "leverage, used when --margin is not set")
	f.StringVar(&opts.mmr, "mmr", defaultMMR.String(), "maintenance margin ratio")
	_ = cmd.MarkFlagRequired("price")
	_ = cmd.MarkFlagRequired("quantity")
	return cmd
}
