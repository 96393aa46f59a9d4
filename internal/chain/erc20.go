package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const readABIJSON = `[
  {"inputs": [{"name": "owner", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "maturity", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

var (
	readABI     abi.ABI
	readABIOnce sync.Once
	readABIErr  error
)

func readABIInstance() (abi.ABI, error) {
	readABIOnce.Do(func() {
		readABI, readABIErr = abi.JSON(strings.NewReader(readABIJSON))
	})
	return readABI, readABIErr
}

// Contract reads view methods of a deployed token or pool.
// A nil block reads the latest state.
type Contract struct {
	caller  ContractCaller
	address common.Address
	block   *big.Int
}

func NewContract(caller ContractCaller, address common.Address, block *big.Int) *Contract {
	return &Contract{caller: caller, address: address, block: block}
}

func (c *Contract) Address() common.Address {
	return c.address
}

// BalanceOf calls balanceOf(owner).
func (c *Contract) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	values, err := c.call(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// TotalSupply calls totalSupply().
func (c *Contract) TotalSupply(ctx context.Context) (*big.Int, error) {
	values, err := c.call(ctx, "totalSupply")
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// Decimals calls decimals().
func (c *Contract) Decimals(ctx context.Context) (uint8, error) {
	values, err := c.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	return asUint8(values[0])
}

// Maturity calls maturity() on a pool contract.
func (c *Contract) Maturity(ctx context.Context) (uint64, error) {
	values, err := c.call(ctx, "maturity")
	if err != nil {
		return 0, err
	}
	v, err := asBigInt(values[0])
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("maturity %s overflows uint64", v)
	}
	return v.Uint64(), nil
}

func (c *Contract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	parsed, err := readABIInstance()
	if err != nil {
		return nil, fmt.Errorf("parse read abi: %w", err)
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	to := c.address
	resp, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, c.block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("decimals %s out of range", v)
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
