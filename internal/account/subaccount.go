package account

import (
	"encoding/binary"
	"fmt"
	"strings"

	apperrors "dex_trader/pkg/errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const subaccountNonceLen = 12

// ParseAddress validates a 0x-prefixed hex address
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("address %q: %w", s, apperrors.ErrInvalidInput)
	}
	return common.HexToAddress(s), nil
}

// SubaccountID derives the subaccount of address at nonce:
// the 20 address bytes followed by the nonce as 12 big-endian bytes
func SubaccountID(address common.Address, nonce uint32) string {
	id := make([]byte, common.AddressLength+subaccountNonceLen)
	copy(id, address.Bytes())
	binary.BigEndian.PutUint32(id[len(id)-4:], nonce)
	return hexutil.Encode(id)
}

// DefaultSubaccountID is the subaccount at nonce zero
func DefaultSubaccountID(address common.Address) string {
	return SubaccountID(address, 0)
}

// SubaccountAddress extracts the owner address of a subaccount ID
func SubaccountAddress(subaccountID string) (common.Address, error) {
	raw, err := hexutil.Decode(subaccountID)
	if err != nil || len(raw) != common.AddressLength+subaccountNonceLen {
		return common.Address{}, fmt.Errorf("subaccount %q: %w", subaccountID, apperrors.ErrInvalidInput)
	}
	return common.BytesToAddress(raw[:common.AddressLength]), nil
}

// IsDefaultSubaccount reports whether the subaccount has nonce zero
func IsDefaultSubaccount(subaccountID string) bool {
	return strings.HasSuffix(strings.ToLower(subaccountID), strings.Repeat("0", subaccountNonceLen*2))
}
