// Package account holds the wallet-side view of grants, balances and subaccounts
package account

import (
	"context"
	"fmt"

	"dex_trader/internal/core"
)

// Grants are the authz grants of one address in both directions
type Grants struct {
	// Granter lists grants where the address is the granter
	Granter []core.Grant
	// Grantee lists grants where the address is the grantee
	Grantee []core.Grant
}

// FetchGrants loads both grant directions of address
func FetchGrants(ctx context.Context, consumer core.IAccountConsumer, address string) (Grants, error) {
	grantee, err := consumer.FetchGranteeGrants(ctx, address)
	if err != nil {
		return Grants{}, fmt.Errorf("failed to fetch grantee grants: %w", err)
	}
	granter, err := consumer.FetchGranterGrants(ctx, address)
	if err != nil {
		return Grants{}, fmt.Errorf("failed to fetch granter grants: %w", err)
	}
	return Grants{Granter: granter, Grantee: grantee}, nil
}

func (g Grants) HasGranteeGrants() bool {
	return len(g.Grantee) > 0
}

func (g Grants) HasGranterGrants() bool {
	return len(g.Granter) > 0
}

func (g Grants) HasAnyGrants() bool {
	return g.HasGranteeGrants() || g.HasGranterGrants()
}

// Counterparties returns the addresses on the other side of every grant,
// granters first, without duplicates
func (g Grants) Counterparties() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(addr string) {
		if !seen[addr] {
			seen[addr] = true
			out = append(out, addr)
		}
	}
	for _, grant := range g.Grantee {
		add(grant.Granter)
	}
	for _, grant := range g.Granter {
		add(grant.Grantee)
	}
	return out
}

// AddressGrants groups grants by counterparty address
type AddressGrants struct {
	Address string       `json:"address"`
	Grants  []core.Grant `json:"grants"`
}

// GranterGrantsByAddress groups the grants given by the address per grantee
func (g Grants) GranterGrantsByAddress() []AddressGrants {
	return groupBy(g.Granter, func(grant core.Grant) string { return grant.Grantee })
}

// GranteeGrantsByAddress groups the grants received by the address per granter
func (g Grants) GranteeGrantsByAddress() []AddressGrants {
	return groupBy(g.Grantee, func(grant core.Grant) string { return grant.Granter })
}

// groupBy keeps first-seen key order
func groupBy(grants []core.Grant, key func(core.Grant) string) []AddressGrants {
	index := make(map[string]int)
	var out []AddressGrants
	for _, grant := range grants {
		k := key(grant)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, AddressGrants{Address: k})
		}
		out[i].Grants = append(out[i].Grants, grant)
	}
	return out
}
