package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-sms/internal/model"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestFormatAmount(t *testing.T) {
	amount := decimal.RequireFromString("2500")

	tests := []struct {
		direction model.Direction
		want      string
	}{
		{direction: model.DirectionExpense, want: "-₹2500.00"},
		{direction: model.DirectionTransferOut, want: "-₹2500.00"},
		{direction: model.DirectionIncome, want: "+₹2500.00"},
		{direction: model.DirectionTransferIn, want: "+₹2500.00"},
		{direction: "", want: "₹2500.00"},
	}

	for _, tt := range tests {
		t.Run(string(tt.direction), func(t *testing.T) {
			assert.Contains(t, FormatAmount(amount, tt.direction), tt.want)
		})
	}
}

func TestFormatConfidence(t *testing.T) {
	assert.Contains(t, FormatConfidence(0.9), "90%")
	assert.Contains(t, FormatConfidence(0.56), "56%")
	assert.Contains(t, FormatConfidence(0.1), "10%")
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(
		[]string{"MERCHANT", "CATEGORY"},
		[][]string{
			{"swiggy", "Food & Dining"},
			{"uber eats india", "Transportation"},
		},
	)

	assert.Contains(t, out, "MERCHANT")
	assert.Contains(t, out, "uber eats india")
	assert.Contains(t, out, "Food & Dining")

	lines := strings.Split(out, "\n")
	var swiggy, uber string
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "swiggy"):
			swiggy = line
		case strings.HasPrefix(line, "uber"):
			uber = line
		}
	}
	require.NotEmpty(t, swiggy)
	require.NotEmpty(t, uber)
	assert.Equal(t, strings.Index(uber, "Transportation"), strings.Index(swiggy, "Food"), "columns align")
}

func TestInterruptHandler(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output, "Ingest")

	ctx := handler.HandleInterrupts(context.Background())
	assert.False(t, handler.WasInterrupted())

	handler.interrupt()
	handler.interrupt()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled")
	}
	assert.True(t, handler.WasInterrupted())
	assert.Equal(t, 1, strings.Count(output.String(), "Ingest interrupted!"))
	assert.Contains(t, output.String(), "duplicates")
}

func TestInterruptHandler_ParentCancelIsNotInterrupt(t *testing.T) {
	handler := NewInterruptHandler(&syncBuffer{}, "Import")

	parent, cancel := context.WithCancel(context.Background())
	ctx := handler.HandleInterrupts(parent)
	cancel()

	<-ctx.Done()
	assert.False(t, handler.WasInterrupted())
}

func TestInterruptHandler_Stop(t *testing.T) {
	handler := NewInterruptHandler(&syncBuffer{}, "Import")

	ctx := handler.HandleInterrupts(context.Background())
	handler.Stop()

	<-ctx.Done()
	assert.False(t, handler.WasInterrupted())
}

func TestProgressBar(t *testing.T) {
	var out syncBuffer
	bar := NewProgressBar(&out, 2, "Ingesting messages")

	Advance(bar)
	Advance(bar)
	Advance(nil)

	assert.Contains(t, out.String(), "Ingesting messages")
}
