package events

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_EmitAndRecent(t *testing.T) {
	m := NewManager(10, zerolog.Nop())

	m.Emit(OrderCreated, "trading", map[string]interface{}{"order_id": int64(1)})
	m.Emit(OrderFilled, "paper", map[string]interface{}{"order_id": int64(1)})

	recent := m.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, OrderCreated, recent[0].Type)
	assert.Equal(t, "trading", recent[0].Module)
	assert.Equal(t, OrderFilled, recent[1].Type)
	assert.False(t, recent[0].Timestamp.IsZero())
}

func TestManager_RingBufferDropsOldest(t *testing.T) {
	m := NewManager(3, zerolog.Nop())

	for i := 0; i < 5; i++ {
		m.Emit(OrderCreated, "trading", map[string]interface{}{"n": i})
	}

	recent := m.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, 2, recent[0].Data["n"])
	assert.Equal(t, 4, recent[2].Data["n"])
}

func TestManager_RecentReturnsCopy(t *testing.T) {
	m := NewManager(10, zerolog.Nop())
	m.Emit(OrderCreated, "trading", nil)

	recent := m.Recent()
	recent[0].Module = "mutated"

	assert.Equal(t, "trading", m.Recent()[0].Module)
}

func TestManager_DefaultSize(t *testing.T) {
	m := NewManager(0, zerolog.Nop())

	for i := 0; i < 150; i++ {
		m.Emit(PriceRefreshFailed, "paper", map[string]interface{}{"error": fmt.Sprintf("e%d", i)})
	}

	assert.Len(t, m.Recent(), 100)
}
