package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"dex_trader/internal/core"
	"dex_trader/internal/trading/orderbook"
	"dex_trader/pkg/cli"
	apperrors "dex_trader/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type estimateOptions struct {
	bookPath         string
	side             string
	amount           string
	quoteDecimals    int32
	quantityDecimals int32
	takerFee         string
	margin           string
	slippage         string
	leverage         string
	percent          string
}

type estimateResult struct {
	Side        core.OrderSide          `json:"side"`
	Estimate    *core.ExecutionEstimate `json:"estimate,omitempty"`
	MaxFillable *decimal.Decimal        `json:"maxFillable,omitempty"`
}

func newEstimateCmd() *cobra.Command {
	opts := &estimateOptions{}

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate a market order against an orderbook snapshot file",
		Long: `Walks the book side an order of --side executes against.
--amount yields worst and average execution prices, --margin the largest fillable quantity.
Book prices are in chain units and are scaled by --quote-decimals.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.amount == "" && opts.margin == "" {
				return fmt.Errorf("one of --amount or --margin is required: %w", apperrors.ErrInvalidInput)
			}
			side, err := parseSide(opts.side)
			if err != nil {
				return err
			}
			book, err := readOrderbook(opts.bookPath)
			if err != nil {
				return err
			}
			fee, err := cli.ParseDecimal("taker-fee", opts.takerFee)
			if err != nil {
				return err
			}
			decimals := core.MarketDecimals{
				QuoteDecimals:    opts.quoteDecimals,
				QuantityDecimals: opts.quantityDecimals,
				TakerFeeRate:     fee,
			}
			levels := book.Levels(side)

			result := estimateResult{Side: side}
			if opts.amount != "" {
				amount, err := cli.ParseDecimal("amount", opts.amount)
				if err != nil {
					return err
				}
				est, err := orderbook.EstimateExecution(levels, decimals, amount)
				if err != nil {
					return err
				}
				result.Estimate = &est
			}
			if opts.margin != "" {
				budget, err := opts.budget()
				if err != nil {
					return err
				}
				size, err := orderbook.MaxFillableSize(levels, decimals, budget)
				if err != nil {
					return err
				}
				result.MaxFillable = &size
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.bookPath, "book", "", "orderbook snapshot JSON file")
	f.StringVar(&opts.side, "side", "buy", "order side (buy|sell)")
	f.StringVar(&opts.amount, "amount", "", "order quantity")
	f.Int32Var(&opts.quoteDecimals, "quote-decimals", 6, "quote token decimals")
	f.Int32Var(&opts.quantityDecimals, "quantity-decimals", 3, "quantity display decimals")
	f.StringVar(&opts.takerFee, "taker-fee", "0", "taker fee rate")
	f.StringVar(&opts.margin, "margin", "", "available margin for the max fillable size")
	f.StringVar(&opts.slippage, "slippage", "1", "price multiplier, e.g. 1.005")
	f.StringVar(&opts.leverage, "leverage", "1", "leverage")
	f.StringVar(&opts.percent, "percent", "1", "fraction of the margin to use")
	_ = cmd.MarkFlagRequired("book")
	return cmd
}

func (o *estimateOptions) budget() (orderbook.FillBudget, error) {
	values := map[string]string{
		"margin":   o.margin,
		"slippage": o.slippage,
		"leverage": o.leverage,
		"percent":  o.percent,
	}
	parsed := make(map[string]decimal.Decimal, len(values))
	for name, value := range values {
		d, err := cli.ParseDecimal(name, value)
		if err != nil {
			return orderbook.FillBudget{}, err
		}
		parsed[name] = d
	}

	budget := orderbook.NewFillBudget(parsed["margin"], parsed["slippage"])
	budget.Leverage = parsed["leverage"]
	budget.Percent = parsed["percent"]
	return budget, nil
}

func parseSide(s string) (core.OrderSide, error) {
	switch core.OrderSide(strings.ToLower(s)) {
	case core.SideBuy:
		return core.SideBuy, nil
	case core.SideSell:
		return core.SideSell, nil
	}
	return "", fmt.Errorf("side %q: %w", s, apperrors.ErrInvalidInput)
}

func readOrderbook(path string) (core.Orderbook, error) {
	if err := cli.ValidateInput(path); err != nil {
		return core.Orderbook{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Orderbook{}, fmt.Errorf("failed to read orderbook: %w", err)
	}
	var book core.Orderbook
	if err := json.Unmarshal(data, &book); err != nil {
		return core.Orderbook{}, fmt.Errorf("failed to parse orderbook %s: %w", path, err)
	}
	return book, nil
}
