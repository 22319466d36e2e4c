package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{in: "3s", want: 3 * time.Second},
		{in: "1m30s", want: 90 * time.Second},
		{in: "", want: time.Minute},
		{in: "soon", want: time.Minute},
		{in: "0s", want: time.Minute},
		{in: "-5s", want: time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDuration(tt.in, time.Minute))
		})
	}
}
