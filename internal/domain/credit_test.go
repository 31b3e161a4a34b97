package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/gbese/gbese-backend/internal/domain"
)

func TestInterestAmount(t *testing.T) {
	tests := []struct {
		name         string
		amount       int64
		rate         decimal.Decimal
		tenureMonths int
		want         int64
	}{
		{"one year at 5%", 100_000, decimal.NewFromInt(5), 12, 5_000},
		{"six months at 5%", 100_000, decimal.NewFromInt(5), 6, 2_500},
		{"fractional rate rounds", 10_000, decimal.NewFromFloat(12.5), 7, 729},
		{"zero rate", 100_000, decimal.Zero, 12, 0},
		{"small principal", 1_000, decimal.NewFromInt(5), 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.InterestAmount(tt.amount, tt.rate, tt.tenureMonths)
			assert.Equal(t, tt.want, got)
		})
	}
}
