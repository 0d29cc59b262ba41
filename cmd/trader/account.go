package main

import (
	"context"

	"dex_trader/internal/account"
	"dex_trader/internal/bootstrap"
	"dex_trader/internal/consumer"
	"dex_trader/pkg/logging"

	"github.com/spf13/cobra"
)

type accountOptions struct {
	address string
	nonce   uint32
}

type accountResult struct {
	Address      string                  `json:"address"`
	SubaccountID string                  `json:"subaccountId"`
	Withdrawable []account.Withdrawal    `json:"withdrawable"`
	GrantsGiven  []account.AddressGrants `json:"grantsGiven"`
	GrantsHeld   []account.AddressGrants `json:"grantsHeld"`
}

func newAccountCmd(root *rootOptions) *cobra.Command {
	opts := &accountOptions{}

	cmd := &cobra.Command{
		Use:   "account",
		Short: "Show the subaccount, withdrawable balances and authz grants of an address",
		RunE: func(cmd *cobra.Command, _ []string) error {
			address, err := account.ParseAddress(opts.address)
			if err != nil {
				return err
			}

			cfg, err := bootstrap.LoadConfig(root.configPath)
			if err != nil {
				return err
			}
			logger, err := logging.NewNamedZapLogger("account", "WARN")
			if err != nil {
				return err
			}
			indexer := consumer.NewIndexerClient(cfg.Indexer, logger)

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Indexer.Timeout()*3)
			defer cancel()

			subaccountID := account.SubaccountID(address, opts.nonce)
			withdrawable, err := account.FetchWithdrawable(ctx, indexer, subaccountID)
			if err != nil {
				return err
			}
			grants, err := account.FetchGrants(ctx, indexer, address.Hex())
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), accountResult{
				Address:      address.Hex(),
				SubaccountID: subaccountID,
				Withdrawable: withdrawable,
				GrantsGiven:  grants.GranterGrantsByAddress(),
				GrantsHeld:   grants.GranteeGrantsByAddress(),
			})
		},
	}

	cmd.Flags().StringVar(&opts.address, "address", "", "0x account address")
	cmd.Flags().Uint32Var(&opts.nonce, "nonce", 0, "subaccount nonce")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}
