package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"yieldSpace/internal/pool"
)

// ErrReadOnly is returned by every state-changing call on chain collaborators.
var ErrReadOnly = errors.New("chain: read-only collaborator")

// ERC20Asset is a pool.Asset backed by a deployed ERC20. Only reads are supported,
// which is enough to run previews against live reserves.
type ERC20Asset struct {
	*Contract
}

var _ pool.Asset = ERC20Asset{}

func (ERC20Asset) TransferIn(context.Context, common.Address, *big.Int) error {
	return ErrReadOnly
}

func (ERC20Asset) TransferOut(context.Context, common.Address, *big.Int) error {
	return ErrReadOnly
}

// ERC20Token is a read-only pool.LiquidityToken backed by the pool's own ERC20.
type ERC20Token struct {
	*Contract
}

var _ pool.LiquidityToken = ERC20Token{}

func (ERC20Token) Mint(context.Context, common.Address, *big.Int) error {
	return ErrReadOnly
}

func (ERC20Token) Burn(context.Context, common.Address, *big.Int) error {
	return ErrReadOnly
}
