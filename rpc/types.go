package rpc

import (
	"fmt"
	"math/big"
	"strings"

	"stakevault/native/staking"
)

// StakeInfoResult is the aggregate position view served to RPC consumers.
type StakeInfoResult struct {
	Amount       string `json:"amount"`
	StartedAt    uint64 `json:"startedAt"`
	Period       uint64 `json:"period"`
	ActiveUntil  uint64 `json:"activeUntil"`
	Rewards      string `json:"rewards"`
	NextRewardAt uint64 `json:"nextRewardAt"`
}

// StakePoolResult mirrors the pool counters and parameters.
type StakePoolResult struct {
	TotalStaked      string   `json:"totalStaked"`
	RewardsBalance   string   `json:"rewardsBalance"`
	RewardRate       string   `json:"rewardRate"`
	EarlyWithdrawFee string   `json:"earlyWithdrawFee"`
	ConversionRate   string   `json:"conversionRate"`
	AvailablePeriods []uint64 `json:"availablePeriods"`
}

func stakeInfoResult(info *staking.Info) StakeInfoResult {
	return StakeInfoResult{
		Amount:       formatBig(info.Amount),
		StartedAt:    info.StartedAt,
		Period:       info.Period,
		ActiveUntil:  info.ActiveUntil,
		Rewards:      formatBig(info.Rewards),
		NextRewardAt: info.NextRewardAt,
	}
}

func stakePoolResult(pool *staking.Pool) StakePoolResult {
	return StakePoolResult{
		TotalStaked:      formatBig(pool.TotalStaked),
		RewardsBalance:   formatBig(pool.RewardsBalance),
		RewardRate:       formatBig(pool.RewardRate),
		EarlyWithdrawFee: formatBig(pool.EarlyWithdrawFee),
		ConversionRate:   formatBig(pool.ConversionRate),
		AvailablePeriods: append([]uint64(nil), pool.AvailablePeriods...),
	}
}

func formatBig(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseAmount(amount string) (*big.Int, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return nil, fmt.Errorf("amount is required")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount")
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return value, nil
}
