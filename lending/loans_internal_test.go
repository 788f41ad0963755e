package lending

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/loanbook/ledger"
)

func TestSplitEvenly(t *testing.T) {
	tests := []struct {
		name  string
		total string
		n     int
		want  []string
	}{
		{"even", "1000", 4, []string{"250", "250", "250", "250"}},
		{"remainder on last", "1000", 3, []string{"333.33", "333.33", "333.34"}},
		{"single", "99.99", 1, []string{"99.99"}},
		{"smaller than parts", "0.05", 3, []string{"0.01", "0.01", "0.03"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := ledger.MustParseMoney(tt.total)
			parts := splitEvenly(total, tt.n)
			require.Len(t, parts, tt.n)

			sum := ledger.NewMoney(0)
			for i, p := range parts {
				assert.True(t, ledger.MustParseMoney(tt.want[i]).Equal(p), "part %d: got %s", i, p.String())
				sum = sum.Add(p)
			}
			assert.True(t, total.Equal(sum))
		})
	}
}
