package services

import (
	"sync"
	"testing"

	"github.com/qianlnk/mafiachain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotBusPerGameTopics(t *testing.T) {
	bus := NewSnapshotBus()

	var mutex sync.Mutex
	var versions []uint64
	handler := SnapshotHandler(func(snap models.Snapshot) {
		mutex.Lock()
		defer mutex.Unlock()
		versions = append(versions, snap.Version)
	})
	require.NoError(t, bus.Subscribe("game_1", handler))

	for v := uint64(1); v <= 5; v++ {
		bus.Publish(models.Snapshot{GameID: "game_1", Version: v})
	}
	bus.Publish(models.Snapshot{GameID: "game_2", Version: 99})
	bus.Wait()

	mutex.Lock()
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, versions)
	mutex.Unlock()

	require.NoError(t, bus.Unsubscribe("game_1", handler))
	bus.Publish(models.Snapshot{GameID: "game_1", Version: 6})
	bus.Wait()

	mutex.Lock()
	assert.Len(t, versions, 5)
	mutex.Unlock()

	assert.Error(t, bus.Unsubscribe("game_1", handler))
}
