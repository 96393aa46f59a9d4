package chain

import (
	"context"
	"fmt"
	"math/big"
)

// HeadClock reports the timestamp of a block header. A nil Block follows the chain head.
type HeadClock struct {
	Headers HeaderSource
	Block   *big.Int
}

func (c HeadClock) Now(ctx context.Context) (uint64, error) {
	header, err := c.Headers.HeaderByNumber(ctx, c.Block)
	if err != nil {
		return 0, fmt.Errorf("header: %w", err)
	}
	return header.Time, nil
}
