package cache

import (
	"testing"

	"dirscout/internal/tool/probe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestKV(t *testing.T) *KV {
	t.Helper()
	kv, err := OpenKV(KVConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func TestKV_GetSetDelete(t *testing.T) {
	kv := openTestKV(t)

	_, ok, err := kv.get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.set("key", []byte("value")))
	got, ok, err := kv.get("key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("value"), got)

	require.NoError(t, kv.delete("key"))
	_, ok, err = kv.get("key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKV_ScanHonorsPrefix(t *testing.T) {
	kv := openTestKV(t)
	require.NoError(t, kv.set(kvCachePrefix+"a", []byte("1")))
	require.NoError(t, kv.set(kvCachePrefix+"b", []byte("2")))
	require.NoError(t, kv.set(kvToolPrefix+"walker:fd", []byte("3")))

	var keys []string
	err := kv.scan(kvCachePrefix, func(key string, value []byte) error {
		keys = append(keys, key)
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{kvCachePrefix + "a", kvCachePrefix + "b"}, keys)
}

func TestKV_RecordStoreRoundTrip(t *testing.T) {
	kv := openTestKV(t)

	rec := probe.Record{Identity: "walker:/usr/bin/fd", ToolPath: "/usr/bin/fd", Available: true}
	require.NoError(t, kv.PutRecord(rec))

	got, ok, err := kv.GetRecord(rec.Identity)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)

	require.NoError(t, kv.DeleteRecord(rec.Identity))
	_, ok, err = kv.GetRecord(rec.Identity)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKV_CorruptRecordTreatedAsAbsent(t *testing.T) {
	kv := openTestKV(t)
	require.NoError(t, kv.set(kvToolPrefix+"broken", []byte("{not json")))

	_, ok, err := kv.GetRecord("broken")
	require.NoError(t, err)
	assert.False(t, ok)

	// The corrupt value was removed on first read.
	_, ok, err = kv.get(kvToolPrefix + "broken")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKV_DropAllClearsBothNamespaces(t *testing.T) {
	kv := openTestKV(t)
	require.NoError(t, kv.set(kvCachePrefix+"entry", []byte("1")))
	require.NoError(t, kv.PutRecord(probe.Record{Identity: "ranker:fzf", Available: false}))

	require.NoError(t, kv.DropAll())

	_, ok, err := kv.get(kvCachePrefix + "entry")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = kv.GetRecord("ranker:fzf")
	require.NoError(t, err)
	assert.False(t, ok)
}
