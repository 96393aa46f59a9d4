package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// WithRetry runs fn until it succeeds, doubling the delay after each failure.
func WithRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}

// RetryingClient retries contract calls and header reads of an RPC backend.
type RetryingClient struct {
	Backend interface {
		ContractCaller
		HeaderSource
	}
	MaxRetries int
	BaseDelay  time.Duration
	Logger     *zap.Logger
}

func (r RetryingClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := WithRetry(ctx, r.MaxRetries, r.BaseDelay, func(ctx context.Context) error {
		resp, err := r.Backend.CallContract(ctx, msg, blockNumber)
		if err != nil {
			r.logFailure("eth_call", err)
			return err
		}
		out = resp
		return nil
	})
	return out, err
}

func (r RetryingClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	var out *types.Header
	err := WithRetry(ctx, r.MaxRetries, r.BaseDelay, func(ctx context.Context) error {
		header, err := r.Backend.HeaderByNumber(ctx, number)
		if err != nil {
			r.logFailure("header", err)
			return err
		}
		out = header
		return nil
	})
	return out, err
}

func (r RetryingClient) logFailure(call string, err error) {
	if r.Logger == nil {
		return
	}
	r.Logger.Warn("rpc call failed", zap.String("call", call), zap.Error(err))
}
