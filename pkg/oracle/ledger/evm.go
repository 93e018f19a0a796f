package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"tc.com/consensus-oracle/pkg/logging"
)

// updatePriceABI is the minimal ABI fragment for the price feed contract.
const updatePriceABI = `[{"inputs":[{"internalType":"uint256","name":"price","type":"uint256"}],"name":"updatePrice","outputs":[],"stateMutability":"nonpayable","type":"function"}]`

const fallbackGasLimit = 100000

// EVMConfig configures the EVM committer.
type EVMConfig struct {
	RPCURL        string
	Contract      string
	ChainID       int64
	PrivateKeyHex string
	Decimals      int32 // Fixed-point scale applied to the committed price
	Timeout       time.Duration
}

// EVMCommitter submits price updates to an EVM price feed contract.
type EVMCommitter struct {
	client   *ethclient.Client
	contract common.Address
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
	decimals int32
	timeout  time.Duration
	abi      abi.ABI
	logger   *logging.Logger
}

// NewEVMCommitter dials the RPC endpoint and prepares the signing identity.
func NewEVMCommitter(cfg EVMConfig, logger *logging.Logger) (*EVMCommitter, error) {
	if !common.IsHexAddress(cfg.Contract) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidContract, cfg.Contract)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ledger RPC: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(updatePriceABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &EVMCommitter{
		client:   client,
		contract: common.HexToAddress(cfg.Contract),
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  big.NewInt(cfg.ChainID),
		decimals: cfg.Decimals,
		timeout:  timeout,
		abi:      parsedABI,
		logger:   logger,
	}, nil
}

// Commit scales the reference price to the contract's fixed-point decimals,
// signs an updatePrice transaction and submits it.
func (c *EVMCommitter) Commit(ctx context.Context, price decimal.Decimal) (*CommitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	scaled := price.Shift(c.decimals).Truncate(0).BigInt()

	data, err := c.abi.Pack("updatePrice", scaled)
	if err != nil {
		return nil, fmt.Errorf("failed to pack calldata: %w", err)
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce query: %v", ErrCommitFailed, err)
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: gas price query: %v", ErrCommitFailed, err)
	}

	gasLimit, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From: c.from,
		To:   &c.contract,
		Data: data,
	})
	if err != nil {
		c.logger.Warn("Gas estimation failed, using fallback limit", "error", err.Error())
		gasLimit = fallbackGasLimit
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("%w: signing: %v", ErrCommitFailed, err)
	}

	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("%w: broadcast: %v", ErrCommitFailed, err)
	}

	hash := signed.Hash().Hex()
	c.logger.Info("Ledger commit submitted",
		"tx_hash", hash,
		"scaled_price", scaled.String(),
		"nonce", nonce)

	return &CommitResult{TxHash: hash}, nil
}

// Close releases the underlying RPC connection.
func (c *EVMCommitter) Close() {
	c.client.Close()
}

var _ Committer = (*EVMCommitter)(nil)
