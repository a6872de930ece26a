package ledger

import (
	"testing"

	"github.com/qianlnk/mafiachain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func eventKey(name string) string {
	return FeltHex(Selector(name))
}

func feltOf(t *testing.T, s string) string {
	t.Helper()
	x, err := EncodeShortString(s)
	require.NoError(t, err)
	return FeltHex(x)
}

func TestDecodeReceipt(t *testing.T) {
	schema := mustSchema(t)
	receipt := &Receipt{
		TransactionHash: "0xfeed",
		Events: []EmittedEvent{
			{FromAddress: testContract, Keys: []string{eventKey("GameCreated"), "0x7"}},
			{FromAddress: "0x0000123ABC", Keys: []string{eventKey("DayChanged"), "0x7"}, Data: []string{"0x2"}},
		},
	}

	events, err := NewDecoder(schema, testContract, zaptest.NewLogger(t)).Decode(receipt)
	require.NoError(t, err)
	require.Len(t, events, 2)

	created, ok := events[0].(models.GameCreated)
	require.True(t, ok)
	assert.Equal(t, int64(7), created.GameID.Int64())

	day, ok := events[1].(models.DayChanged)
	require.True(t, ok)
	assert.Equal(t, uint64(2), day.NewDay)
}

func TestDecodeIsDeterministic(t *testing.T) {
	schema := mustSchema(t)
	receipt := &Receipt{Events: []EmittedEvent{
		{FromAddress: testContract, Keys: []string{eventKey("PlayerRegistered"), "0x7"}, Data: []string{"0xa11ce", feltOf(t, "alice")}},
		{FromAddress: testContract, Keys: []string{eventKey("DayChanged"), "0x7"}, Data: []string{"0x3"}},
	}}
	decoder := NewDecoder(schema, testContract, zaptest.NewLogger(t))

	first, err := decoder.Decode(receipt)
	require.NoError(t, err)
	second, err := decoder.Decode(receipt)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	registered := first[0].(models.PlayerRegistered)
	assert.Equal(t, "0xa11ce", FeltHex(registered.PlayerAddress))
	name, err := DecodeShortString(registered.PlayerName)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)
}

func TestDecodeDropsWithoutReordering(t *testing.T) {
	schema := mustSchema(t)
	receipt := &Receipt{Events: []EmittedEvent{
		{FromAddress: testContract, Keys: []string{eventKey("DayChanged"), "0x7"}, Data: []string{"0x1"}},
		{FromAddress: "0xdead", Keys: []string{eventKey("DayChanged"), "0x7"}, Data: []string{"0x9"}},
		{FromAddress: testContract, Keys: []string{eventKey("Transfer")}},
		{FromAddress: testContract, Keys: []string{eventKey("Audit")}, Data: []string{"0x1"}},
		{FromAddress: testContract, Keys: []string{eventKey("DayChanged"), "0x7"}},
		{FromAddress: testContract, Keys: []string{}},
		{FromAddress: testContract, Keys: []string{eventKey("DayChanged"), "0x7"}, Data: []string{"0x2"}},
	}}

	dropped := map[int]string{}
	decoder := NewDecoder(schema, testContract, zaptest.NewLogger(t), WithDropHook(func(index int, err error) {
		dropped[index] = DropReason(err)
	}))

	events, err := decoder.Decode(receipt)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(1), events[0].(models.DayChanged).NewDay)
	assert.Equal(t, uint64(2), events[1].(models.DayChanged).NewDay)

	assert.Equal(t, map[int]string{
		1: "foreign_emitter",
		2: "unknown_selector",
		3: "unsupported_event",
		4: "truncated",
		5: "unknown_selector",
	}, dropped)
}

func TestDecodeWithoutEmitterFilter(t *testing.T) {
	receipt := &Receipt{Events: []EmittedEvent{
		{FromAddress: "0xdead", Keys: []string{eventKey("GameCreated"), "0x1"}},
	}}
	events, err := NewDecoder(mustSchema(t), "", zaptest.NewLogger(t)).Decode(receipt)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestDecodeU256(t *testing.T) {
	schema := mustSchema(t)
	decoder := NewDecoder(schema, testContract, zaptest.NewLogger(t))

	events, err := decoder.Decode(&Receipt{Events: []EmittedEvent{
		{FromAddress: testContract, Keys: []string{eventKey("GameStarted"), "0x7"}, Data: []string{"0x5", "0x0"}},
	}})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(5), events[0].(models.GameStarted).PlayerCount)

	var reason string
	decoder = NewDecoder(schema, testContract, zaptest.NewLogger(t), WithDropHook(func(_ int, err error) {
		reason = DropReason(err)
	}))
	events, err = decoder.Decode(&Receipt{Events: []EmittedEvent{
		{FromAddress: testContract, Keys: []string{eventKey("GameStarted"), "0x7"}, Data: []string{"0x5", "0x1"}},
	}})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, "overflow", reason)
}

func TestDecodeWithoutSchema(t *testing.T) {
	_, err := NewDecoder(nil, testContract, zaptest.NewLogger(t)).Decode(&Receipt{})
	assert.ErrorIs(t, err, ErrSchemaUnavailable)

	events, err := NewDecoder(mustSchema(t), testContract, zaptest.NewLogger(t)).Decode(nil)
	assert.NoError(t, err)
	assert.Nil(t, events)
}

func TestDropReason(t *testing.T) {
	assert.Equal(t, "invalid_felt", DropReason(ErrInvalidFelt))
	assert.Equal(t, "unsupported_type", DropReason(ErrUnsupportedType))
	assert.Equal(t, "other", DropReason(ErrMissingFelt))
}
