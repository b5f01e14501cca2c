package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestBusDeliversByKind(t *testing.T) {
	bus := NewBus(nil)
	var sales, medicines []Event
	require.NoError(t, bus.Subscribe(SaleRecorded, func(ev Event) { sales = append(sales, ev) }))
	require.NoError(t, bus.Subscribe(MedicineChanged, func(ev Event) { medicines = append(medicines, ev) }))

	bus.Publish(NewEvent(SaleRecorded, 7, time.Now()))
	bus.Publish(NewEvent(MedicineChanged, 3, time.Now()))
	bus.Publish(NewEvent(OrderChanged, 1, time.Now()))

	require.Len(t, sales, 1)
	assert.Equal(t, int64(7), sales[0].EntityID)
	require.Len(t, medicines, 1)
	assert.Equal(t, MedicineChanged, medicines[0].Kind)
	assert.NotEqual(t, sales[0].ID, medicines[0].ID)
}

func TestBusSurvivesPanickingHandler(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewBus(zap.New(core))

	delivered := 0
	require.NoError(t, bus.Subscribe(OrderChanged, func(Event) { panic("refresh failed") }))
	require.NoError(t, bus.Subscribe(OrderChanged, func(Event) { delivered++ }))

	assert.NotPanics(t, func() { bus.Publish(NewEvent(OrderChanged, 5, time.Now())) })
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, logs.FilterMessage("event handler panicked").Len())
}

func TestSubscribeRejectsNilHandler(t *testing.T) {
	assert.Error(t, NewBus(nil).Subscribe(SaleRecorded, nil))
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard.Publish(NewEvent(SaleRecorded, 1, time.Now())) })
}
