package drip_test

import (
	"testing"

	"github.com/fwojciec/drip"
	"github.com/stretchr/testify/assert"
)

func TestRequest_Validate(t *testing.T) {
	t.Parallel()

	temp := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		req     drip.Request
		wantErr bool
	}{
		{name: "minimal", req: drip.Request{Prompt: "hi"}},
		{name: "empty prompt", req: drip.Request{}, wantErr: true},
		{name: "temperature in range", req: drip.Request{Prompt: "hi", Temperature: temp(2)}},
		{name: "negative temperature", req: drip.Request{Prompt: "hi", Temperature: temp(-0.1)}, wantErr: true},
		{name: "temperature too high", req: drip.Request{Prompt: "hi", Temperature: temp(2.5)}, wantErr: true},
		{name: "negative max tokens", req: drip.Request{Prompt: "hi", MaxTokens: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, drip.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}
