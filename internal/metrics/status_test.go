package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenErrors(t *testing.T) {
	tests := []struct {
		name string
		errs map[string]int
		want []ErrorBucket
	}{
		{name: "nil map", errs: nil, want: nil},
		{name: "empty map", errs: map[string]int{}, want: nil},
		{
			name: "sorted by count desc",
			errs: map[string]int{"Timeout": 2, "DNS error": 5, "TLS error": 1},
			want: []ErrorBucket{
				{Name: "DNS error", Count: 5},
				{Name: "Timeout", Count: 2},
				{Name: "TLS error", Count: 1},
			},
		},
		{
			name: "ties broken by name",
			errs: map[string]int{"Timeout": 3, "Connection error": 3},
			want: []ErrorBucket{
				{Name: "Connection error", Count: 3},
				{Name: "Timeout", Count: 3},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlattenErrors(tt.errs))
		})
	}
}
