package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"yieldSpace/internal/config"
	"yieldSpace/internal/curve"
	"yieldSpace/internal/fixedpoint"
	"yieldSpace/internal/pricing"
	"yieldSpace/internal/units"
)

const reportPlaces = 18

var secondsPerYear = decimal.NewFromInt(365 * 24 * 60 * 60)

type curveReport struct {
	TimeTillMaturity uint64  `json:"time_till_maturity"`
	K                string  `json:"k"`
	Fee              string  `json:"fee"`
	ExponentSell     *string `json:"exponent_sell,omitempty"`
	ExponentBuy      *string `json:"exponent_buy,omitempty"`
	SpotPrice        *string `json:"spot_price,omitempty"`
	ImpliedRate      *string `json:"implied_rate,omitempty"`
	Error            string  `json:"error,omitempty"`
}

func runCurve(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	if cfg.Maturity == "" {
		return fmt.Errorf("maturity is required")
	}
	maturity, err := config.ParseTimestamp(cfg.Maturity)
	if err != nil {
		return fmt.Errorf("parse maturity: %w", err)
	}
	now := uint64(time.Now().Unix())
	if cfg.Now != "" {
		if now, err = config.ParseTimestamp(cfg.Now); err != nil {
			return fmt.Errorf("parse now: %w", err)
		}
	}
	var ttm uint64
	if now < maturity {
		ttm = maturity - now
	}

	var base, maturing *big.Int
	if cfg.BaseReserves != "" && cfg.MaturingReserves != "" {
		if base, err = units.ParseAmount(cfg.BaseReserves, cfg.Decimals); err != nil {
			return fmt.Errorf("parse base-reserves: %w", err)
		}
		if maturing, err = units.ParseAmount(cfg.MaturingReserves, cfg.Decimals); err != nil {
			return fmt.Errorf("parse maturing-reserves: %w", err)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(buildCurveReport(base, maturing, ttm))
}

// buildCurveReport describes the curve at ttm. Price fields are only set when
// both reserves are given.
func buildCurveReport(base, maturing *big.Int, ttm uint64) curveReport {
	report := curveReport{
		TimeTillMaturity: ttm,
		K:                units.FormatQ64(curve.K(), 30),
		Fee:              curve.Fee().String(),
	}

	sell, err := curve.ExponentFor(ttm, curve.SellBase)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	buy, err := curve.ExponentFor(ttm, curve.BuyBase)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.ExponentSell = q64String(sell)
	report.ExponentBuy = q64String(buy)

	if base == nil || maturing == nil {
		return report
	}
	spot, err := pricing.SpotPrice(base, maturing, ttm)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.SpotPrice = q64String(spot)

	if ttm == 0 {
		return report
	}
	inverse, ok := units.Ratio(fixedpoint.One, spot, reportPlaces)
	if !ok {
		return report
	}
	rate := inverse.Sub(decimal.NewFromInt(1)).
		Mul(secondsPerYear).
		DivRound(decimal.NewFromBigInt(new(big.Int).SetUint64(ttm), 0), reportPlaces)
	s := rate.StringFixed(reportPlaces)
	report.ImpliedRate = &s
	return report
}

func q64String(v *big.Int) *string {
	s := units.FormatQ64(v, reportPlaces)
	return &s
}
