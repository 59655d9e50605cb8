package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/greenfinch/internal/domain"
)

func TestQueueFileRepository_LoadMissing(t *testing.T) {
	r := NewQueueFileRepository(t.TempDir())

	q, err := r.Load(context.Background(), domain.CategoryEvents)

	require.NoError(t, err)
	assert.NotNil(t, q)
	assert.Empty(t, q)
}

func TestQueueFileRepository_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	r := NewQueueFileRepository(dir)
	queue := domain.Queue{
		{"event": "signup", "properties": map[string]any{"plan": "pro"}},
		{"event": "$ae_first_open"},
	}

	require.NoError(t, r.Save(context.Background(), domain.CategoryEvents, queue))

	got, err := r.Load(context.Background(), domain.CategoryEvents)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "signup", got[0].Name())
	assert.Equal(t, "pro", got[0]["properties"].(map[string]any)["plan"])
	assert.True(t, got[1].IsAutomatic())

	_, err = os.Stat(r.Path(domain.CategoryEvents) + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file left behind")

	other, err := r.Load(context.Background(), domain.CategoryPeople)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestQueueFileRepository_SaveEmpty(t *testing.T) {
	r := NewQueueFileRepository(t.TempDir())

	require.NoError(t, r.Save(context.Background(), domain.CategoryGroups, nil))

	data, err := os.ReadFile(r.Path(domain.CategoryGroups))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestQueueFileRepository_Corrupt(t *testing.T) {
	dir := t.TempDir()
	r := NewQueueFileRepository(dir)
	require.NoError(t, os.WriteFile(r.Path(domain.CategoryPeople), []byte("{not json"), 0o600))

	_, err := r.Load(context.Background(), domain.CategoryPeople)

	assert.Error(t, err)
}

func TestQueueFileRepository_CanceledContext(t *testing.T) {
	r := NewQueueFileRepository(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, r.Save(ctx, domain.CategoryEvents, domain.Queue{}), context.Canceled)
	_, err := r.Load(ctx, domain.CategoryEvents)
	assert.ErrorIs(t, err, context.Canceled)
}
