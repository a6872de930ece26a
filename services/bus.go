package services

import (
	evbus "github.com/asaskevich/EventBus"
	"github.com/qianlnk/mafiachain/models"
)

// TopicSnapshot 快照主题前缀，每个游戏一个主题
const TopicSnapshot = "game:snapshot:"

// SnapshotHandler 快照订阅回调
type SnapshotHandler func(snap models.Snapshot)

// SnapshotBus 进程内快照总线。同一主题的回调按发布顺序串行执行
type SnapshotBus struct {
	bus evbus.Bus
}

// NewSnapshotBus 创建总线
func NewSnapshotBus() *SnapshotBus {
	return &SnapshotBus{bus: evbus.New()}
}

func snapshotTopic(gameID string) string {
	return TopicSnapshot + gameID
}

// Publish 发布快照
func (b *SnapshotBus) Publish(snap models.Snapshot) {
	b.bus.Publish(snapshotTopic(snap.GameID), snap)
}

// Subscribe 订阅某个游戏的快照。回调在独立协程中执行
func (b *SnapshotBus) Subscribe(gameID string, handler SnapshotHandler) error {
	return b.bus.SubscribeAsync(snapshotTopic(gameID), handler, true)
}

// Unsubscribe 取消订阅，handler 必须是订阅时传入的同一个函数
func (b *SnapshotBus) Unsubscribe(gameID string, handler SnapshotHandler) error {
	return b.bus.Unsubscribe(snapshotTopic(gameID), handler)
}

// Wait 等待所有异步回调执行完
func (b *SnapshotBus) Wait() {
	b.bus.WaitAsync()
}
