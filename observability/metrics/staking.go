package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// StakingMetrics groups the prometheus instruments published by the staking
// node. Mutating operations are counted by kind and outcome; the two gauges
// mirror the pool counters after each successful call.
type StakingMetrics struct {
	operations     *prometheus.CounterVec
	rewardsPaid    prometheus.Counter
	totalStaked    prometheus.Gauge
	rewardsBalance prometheus.Gauge
}

var (
	stakingOnce     sync.Once
	stakingRegistry *StakingMetrics
)

func Staking() *StakingMetrics {
	stakingOnce.Do(func() {
		stakingRegistry = &StakingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_operations_total",
				Help: "Count of staking lifecycle operations by kind and outcome.",
			}, []string{"op", "outcome"}),
			rewardsPaid: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "staking_reward_claims_total",
				Help: "Count of settled reward claims.",
			}),
			totalStaked: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "staking_total_staked",
				Help: "Aggregate principal recorded by the pool.",
			}),
			rewardsBalance: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "staking_rewards_balance",
				Help: "Native value remaining in the shared rewards pool.",
			}),
		}
		prometheus.MustRegister(
			stakingRegistry.operations,
			stakingRegistry.rewardsPaid,
			stakingRegistry.totalStaked,
			stakingRegistry.rewardsBalance,
		)
	})
	return stakingRegistry
}

// ObserveOperation records one lifecycle call and its outcome label.
func (m *StakingMetrics) ObserveOperation(op, outcome string) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

// ObserveRewardClaim counts a settled claim.
func (m *StakingMetrics) ObserveRewardClaim() {
	if m == nil {
		return
	}
	m.rewardsPaid.Inc()
}

// SetPoolGauges publishes the pool counters.
func (m *StakingMetrics) SetPoolGauges(totalStaked, rewardsBalance float64) {
	if m == nil {
		return
	}
	m.totalStaked.Set(totalStaked)
	m.rewardsBalance.Set(rewardsBalance)
}
