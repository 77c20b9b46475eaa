package bubbletea_test

import (
	"testing"

	"github.com/fwojciec/drip"
	bt "github.com/fwojciec/drip/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestNoticeBlock_View(t *testing.T) {
	t.Parallel()

	styles := bt.NewStyles(drip.DefaultTheme())
	tests := []struct {
		name  string
		block *bt.NoticeBlock
		want  string
	}{
		{"error", bt.NewErrorBlock("something broke", styles), "Error: something broke"},
		{"quota", bt.NewQuotaBlock(styles), "exceeded your current quota"},
		{"cancelled", bt.NewCancelledBlock(styles), "Cancelled."},
		{"confirm", bt.NewConfirmBlock(styles), "(y/n)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Contains(t, tt.block.View(120), tt.want)
		})
	}
}
