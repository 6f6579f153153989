package wallet

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

// EthereumExtension reaches a wallet through its JSON-RPC endpoint and asks
// for authorized accounts with eth_requestAccounts.
type EthereumExtension struct {
	endpoint string
}

// NewEthereumExtension creates an extension bound to a wallet RPC endpoint.
func NewEthereumExtension(endpoint string) *EthereumExtension {
	return &EthereumExtension{endpoint: endpoint}
}

// RequestAccounts returns the wallet's accounts as checksummed hex addresses.
func (e *EthereumExtension) RequestAccounts(ctx context.Context) ([]string, error) {
	client, err := rpc.DialContext(ctx, e.endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial wallet: %w", err)
	}
	defer client.Close()

	var accounts []string
	if err := client.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if !common.IsHexAddress(a) {
			return nil, fmt.Errorf("wallet returned malformed address %q", a)
		}
		out = append(out, common.HexToAddress(a).Hex())
	}
	return out, nil
}
