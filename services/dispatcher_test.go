package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qianlnk/mafiachain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDispatchUpsertsBeforeAppend(t *testing.T) {
	store := &fakeStore{beforeUpsert: func() { time.Sleep(20 * time.Millisecond) }}
	metrics := NewMetrics()
	dispatcher := NewDispatcher(store, metrics, zaptest.NewLogger(t))

	err := dispatcher.Dispatch(context.Background(), "game_1", []models.NotificationMessage{
		models.NewSystemMessage("one"),
		models.NewSystemMessage("two"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"upsert:game_1", "append:game_1"}, store.calls())
	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0], 2)
	assert.Equal(t, float64(2), counterValue(t, metrics.delivered))
}

func TestDispatchEmptyBatchOnlyUpserts(t *testing.T) {
	store := &fakeStore{}
	dispatcher := NewDispatcher(store, nil, zaptest.NewLogger(t))

	require.NoError(t, dispatcher.Dispatch(context.Background(), "game_1", nil))
	assert.Equal(t, []string{"upsert:game_1"}, store.calls())
}

func TestDispatchErrors(t *testing.T) {
	dispatcher := NewDispatcher(&fakeStore{}, nil, zaptest.NewLogger(t))
	assert.ErrorIs(t, dispatcher.Dispatch(context.Background(), "", nil), ErrGameIDRequired)

	boom := errors.New("boom")
	metrics := NewMetrics()

	store := &fakeStore{upsertErr: boom}
	err := NewDispatcher(store, metrics, zaptest.NewLogger(t)).Dispatch(context.Background(), "g", []models.NotificationMessage{models.NewSystemMessage("x")})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"upsert:g"}, store.calls())
	assert.Equal(t, float64(1), counterValue(t, metrics.dispatchFailures.WithLabelValues("upsert")))

	store = &fakeStore{appendErr: boom}
	err = NewDispatcher(store, metrics, zaptest.NewLogger(t)).Dispatch(context.Background(), "g", []models.NotificationMessage{models.NewSystemMessage("x")})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "append messages")
	assert.Equal(t, float64(1), counterValue(t, metrics.dispatchFailures.WithLabelValues("append")))
}
