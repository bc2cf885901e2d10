package ton

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/ton/jetton"
	"github.com/xssnick/tonutils-go/ton/nft"
	"github.com/xssnick/tonutils-go/ton/wallet"
)

const defaultDecimals = 9

// Client moves jetton amounts from the custodial payout wallet to user
// addresses. One Transfer call is one atomic on-chain message.
type Client struct {
	api    ton.APIClientWrapped
	wallet *wallet.Wallet
	master *jetton.Client
}

func Connect(ctx context.Context, configURL, walletSeed, jettonMaster string) (*Client, error) {
	pool := liteclient.NewConnectionPool()
	if err := pool.AddConnectionsFromConfigUrl(ctx, configURL); err != nil {
		return nil, fmt.Errorf("lite client config: %w", err)
	}

	api := ton.NewAPIClient(pool).WithRetry()

	w, err := wallet.FromSeed(api, strings.Fields(walletSeed), wallet.V4R2)
	if err != nil {
		return nil, fmt.Errorf("payout wallet from seed: %w", err)
	}

	masterAddr, err := address.ParseAddr(jettonMaster)
	if err != nil {
		return nil, fmt.Errorf("parse jetton master address: %w", err)
	}

	return &Client{
		api:    api,
		wallet: w,
		master: jetton.NewJettonMasterClient(api, masterAddr),
	}, nil
}

// Decimals reads the token's decimals from the jetton metadata,
// falling back to 9 when the content does not carry them.
func (c *Client) Decimals(ctx context.Context) (int, error) {
	data, err := c.master.GetJettonData(ctx)
	if err != nil {
		return 0, fmt.Errorf("jetton data: %w", err)
	}
	if onchain, ok := data.Content.(*nft.ContentOnchain); ok {
		if v := onchain.GetAttribute("decimals"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n, nil
			}
		}
	}
	return defaultDecimals, nil
}

// Transfer sends amount (smallest units) of the jetton to the given
// address and returns the transaction hash.
func (c *Client) Transfer(ctx context.Context, toAddress string, amount int64) (string, error) {
	to, err := address.ParseAddr(toAddress)
	if err != nil {
		return "", fmt.Errorf("parse destination address: %w", err)
	}

	tokenWallet, err := c.master.GetJettonWallet(ctx, c.wallet.WalletAddress())
	if err != nil {
		return "", fmt.Errorf("resolve payout token wallet: %w", err)
	}

	payload, err := tokenWallet.BuildTransferPayloadV2(
		to,
		c.wallet.WalletAddress(),
		tlb.FromNanoTON(big.NewInt(amount)),
		tlb.ZeroCoins,
		nil,
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("build transfer payload: %w", err)
	}

	msg := wallet.SimpleMessage(tokenWallet.Address(), tlb.MustFromTON("0.05"), payload)
	tx, _, err := c.wallet.SendWaitTransaction(ctx, msg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", tx.Hash), nil
}

// ValidAddress reports whether s parses as a TON address. Used by the
// bot when registering a payout address.
func ValidAddress(s string) bool {
	_, err := address.ParseAddr(s)
	return err == nil
}
