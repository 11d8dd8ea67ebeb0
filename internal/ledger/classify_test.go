package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyByRatio(t *testing.T) {
	cases := []struct {
		name string
		base string
		vat  string
		want RateBucket
	}{
		{"standard 15 percent", "100", "15", BucketTaxed},
		{"standard 8 percent", "100", "8", BucketTaxed},
		{"zero vat", "100", "0", BucketZeroRate},
		{"rounding residue below threshold", "1000", "0.5", BucketZeroRate},
		{"just above threshold", "1000", "1.5", BucketTaxed},
		{"zero base zero vat", "0", "0", BucketZeroRate},
		{"zero base with vat", "0", "3", BucketTaxed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ClassifyByRatio(d(tc.base), d(tc.vat)))
		})
	}
}
