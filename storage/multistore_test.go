package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMultiStore(secondaries ...string) *MultiStore {
	multi := NewMultiStore(NewStore(NewMemoryDriver()), discardLogger())
	stores := make(map[string]*Store, len(secondaries))
	for _, name := range secondaries {
		stores[name] = NewStore(NewMemoryDriver())
	}
	return multi.AddStores(stores)
}

func TestMultiStoreGetStore(t *testing.T) {
	multi := newTestMultiStore("store-1", "store-2")

	store, ok := multi.GetStore("store-1")
	assert.True(t, ok)
	assert.NotNil(t, store)

	_, ok = multi.GetStore("store-3")
	assert.False(t, ok)
}

func TestMultiStoreAddStoresOverwritesOnCollision(t *testing.T) {
	multi := newTestMultiStore("store-1")
	replacement := NewStore(NewMemoryDriver())

	multi.AddStores(map[string]*Store{"store-1": replacement})

	store, ok := multi.GetStore("store-1")
	require.True(t, ok)
	assert.Same(t, replacement, store)
}

func TestMultiStoreAddMirrors(t *testing.T) {
	multi := newTestMultiStore("store-1", "store-2")

	require.NoError(t, multi.AddMirrors("group", []string{"store-1", "store-2"}))

	mirror, ok := multi.Mirror("group")
	require.True(t, ok)
	assert.Equal(t, []string{"store-1", "store-2"}, mirror.StoreNames())
}

func TestMultiStoreAddMirrorsUnknownStores(t *testing.T) {
	multi := newTestMultiStore("store-1")

	err := multi.AddMirrors("group", []string{"un-existing 1", "store-1", "un-existing 2"})
	require.Error(t, err)
	assert.EqualError(t, err, "the stores: un-existing 1,un-existing 2 not defined")

	// The group must not be created when validation fails.
	_, ok := multi.Mirror("group")
	assert.False(t, ok)
}

func TestMultiStoreAddMirrorsRedefinesGroup(t *testing.T) {
	multi := newTestMultiStore("store-1", "store-2")

	require.NoError(t, multi.AddMirrors("group", []string{"store-1", "store-2"}))
	require.NoError(t, multi.AddMirrors("group", []string{"store-2"}))

	mirror, ok := multi.Mirror("group")
	require.True(t, ok)
	assert.Equal(t, []string{"store-2"}, mirror.StoreNames())
}

func TestMultiStoreMirrorDuplicateMembersCollapse(t *testing.T) {
	ctx := context.Background()
	multi := newTestMultiStore("store-1")

	require.NoError(t, multi.AddMirrors("group", []string{"store-1", "store-1"}))

	mirror, ok := multi.Mirror("group")
	require.True(t, ok)
	assert.Equal(t, []string{"store-1"}, mirror.StoreNames())

	// A duplicated member must not turn a successful delete into a spurious
	// not-found failure on the repeated target.
	require.NoError(t, mirror.Write(ctx, "file.txt", []byte("content")))
	require.NoError(t, mirror.Delete(ctx, "file.txt"))
}

func TestMirrorStoresFromPrimaryShadowedByPrimaryName(t *testing.T) {
	ctx := context.Background()
	multi := newTestMultiStore()
	shadow := NewStore(NewMemoryDriver())
	multi.AddStores(map[string]*Store{"primary": shadow})

	mirror := multi.MirrorStoresFromPrimary()
	require.Equal(t, []string{"primary"}, mirror.StoreNames())

	require.NoError(t, mirror.Write(ctx, "file.txt", []byte("content")))

	exists, err := shadow.FileExists(ctx, "file.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = multi.Primary().FileExists(ctx, "file.txt")
	require.NoError(t, err)
	assert.False(t, exists, "a secondary named primary replaces the primary target")
}

func TestMultiStoreMirrorUnknownGroup(t *testing.T) {
	multi := newTestMultiStore("store-1")

	mirror, ok := multi.Mirror("un-existing")
	assert.False(t, ok)
	assert.Nil(t, mirror)
}

func TestMirrorStoresFromPrimaryOrdering(t *testing.T) {
	multi := newTestMultiStore("zeta", "alpha")

	mirror := multi.MirrorStoresFromPrimary()
	assert.Equal(t, []string{"alpha", "primary", "zeta"}, mirror.StoreNames())
}

func TestMirrorStoresFromPrimaryWithoutSecondaries(t *testing.T) {
	multi := newTestMultiStore()

	mirror := multi.MirrorStoresFromPrimary()
	assert.Equal(t, []string{"primary"}, mirror.StoreNames())
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Policy
		wantErr bool
	}{
		{name: "continue", input: "continue-on-failure", want: ContinueOnFailure},
		{name: "stop", input: "stop-on-failure", want: StopOnFailure},
		{name: "unknown", input: "fail-fast", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePolicy(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}
