package components

import (
	"log/slog"
	"testing"

	"github.com/farm-credit-ledger/internal/config"
	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/platform/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreditConfig() config.CreditConfig {
	return config.CreditConfig{
		NewPercentage:         "30",
		NewMaxAmount:          50000,
		EstablishedPercentage: "60",
		EstablishedMaxAmount:  100000,
		PremiumPercentage:     "70.5",
		PremiumMaxAmount:      200000,
		SettlementRule:        "FREQ=MONTHLY;INTERVAL=1",
	}
}

func TestNewPolicy(t *testing.T) {
	policy, err := NewPolicy(validCreditConfig())
	require.NoError(t, err)

	terms, err := policy.Terms(credit.TierPremium)
	require.NoError(t, err)
	assert.Equal(t, "70.5", terms.Percentage.String())
	assert.Equal(t, int64(200000), terms.MaxCreditAmount)

	cfg := validCreditConfig()
	cfg.NewPercentage = "thirty"
	_, err = NewPolicy(cfg)
	assert.ErrorContains(t, err, `tier "new"`)

	cfg = validCreditConfig()
	cfg.EstablishedPercentage = "120"
	_, err = NewPolicy(cfg)
	assert.Error(t, err)
}

func TestCreateEngine(t *testing.T) {
	repos := Repositories{
		Profiles:     &MockProfileRepo{},
		Transactions: &MockTransactionRepo{},
		Outbox:       &MockOutboxRepo{},
		Farmers:      &MockFarmerDirectory{},
	}

	t.Run("wires engine and pool", func(t *testing.T) {
		cfg := &config.Config{
			Credit:     validCreditConfig(),
			WorkerPool: config.WorkerPoolConfig{Size: 4},
			Scheduler:  config.SchedulerConfig{BatchSize: 100},
		}

		engine, runner, err := CreateEngine(&persistence.PostgresDB{}, repos, nil, cfg, slog.Default())
		require.NoError(t, err)
		defer runner.Shutdown()

		assert.NotNil(t, engine)
		assert.Equal(t, 4, runner.Capacity())
	})

	t.Run("rejects a bad settlement rule", func(t *testing.T) {
		cfg := &config.Config{
			Credit:     validCreditConfig(),
			WorkerPool: config.WorkerPoolConfig{Size: 4},
		}
		cfg.Credit.SettlementRule = "FREQ=SOMETIMES"

		_, _, err := CreateEngine(&persistence.PostgresDB{}, repos, nil, cfg, slog.Default())
		assert.Error(t, err)
	})
}
