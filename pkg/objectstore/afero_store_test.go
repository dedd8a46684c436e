package objectstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func newTestStore() *AferoStore {
	return NewAferoStore(afero.NewMemMapFs(), "/run-123")
}

func TestWriteReadBytesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.WriteBytes(ctx, "a/b.txt", []byte("hello")))
	got, err := s.ReadBytes(ctx, "a/b.txt")
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestReadMissingKeyIsNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.ReadBytes(ctx, "missing.json")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestWriteJSONReadJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, s.WriteJSON(ctx, "thing.json", payload{Name: "x"}))

	var got payload
	require.NoError(t, s.ReadJSON(ctx, "thing.json", &got))
	require.Equal(t, "x", got.Name)
}

func TestListReturnsSortedKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.WriteBytes(ctx, "docs/b.pdf", []byte("b")))
	require.NoError(t, s.WriteBytes(ctx, "docs/a.pdf", []byte("a")))
	require.NoError(t, s.WriteBytes(ctx, "other/c.pdf", []byte("c")))

	keys, err := s.List(ctx, "docs")
	require.NoError(t, err)
	require.Equal(t, []string{"docs/a.pdf", "docs/b.pdf"}, keys)
}

func TestUploadIfAbsentFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	const n = 10
	var wg sync.WaitGroup
	wrote := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := s.UploadIfAbsent(ctx, "document_map.json", []byte(`{"v":1}`))
			require.NoError(t, err)
			wrote[i] = ok
		}(i)
	}
	wg.Wait()

	count := 0
	for _, w := range wrote {
		if w {
			count++
		}
	}
	require.Equal(t, 1, count, "exactly one writer should win the race")

	exists, err := s.Exists(ctx, "document_map.json")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestMoveRelocatesObject(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.WriteBytes(ctx, "src.json", []byte("x")))
	require.NoError(t, s.Move(ctx, "src.json", "archive/src.json"))

	exists, _ := s.Exists(ctx, "src.json")
	require.False(t, exists)
	exists, _ = s.Exists(ctx, "archive/src.json")
	require.True(t, exists)
}

func TestHealthCheck(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	status, err := s.HealthCheck(ctx)
	require.NoError(t, err)
	require.Equal(t, "healthy", status.Status)
}
