package cache

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"testing"

	"github.com/civicmatch/civic-match/internal/config"
	"github.com/civicmatch/civic-match/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okResponse(body string) *models.Response {
	return &models.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"text/plain"}},
		Body:       []byte(body),
	}
}

// storages runs fn against every Storage implementation.
func storages(t *testing.T, fn func(t *testing.T, s Storage)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStorage())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "cache.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		fn(t, s)
	})
}

func TestStorage_OpenHasNamesDelete(t *testing.T) {
	storages(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		ok, err := s.Has(ctx, "cm-cache-v1")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.Open(ctx, "cm-cache-v1")
		require.NoError(t, err)
		_, err = s.Open(ctx, "cm-cache-v2")
		require.NoError(t, err)
		_, err = s.Open(ctx, "cm-cache-v1")
		require.NoError(t, err)

		names, err := s.Names(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"cm-cache-v1", "cm-cache-v2"}, names)

		deleted, err := s.Delete(ctx, "cm-cache-v1")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = s.Delete(ctx, "cm-cache-v1")
		require.NoError(t, err)
		assert.False(t, deleted)

		names, err = s.Names(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"cm-cache-v2"}, names)
	})
}

func TestCache_MatchMissReturnsNil(t *testing.T) {
	storages(t, func(t *testing.T, s Storage) {
		c, err := s.Open(context.Background(), "v1")
		require.NoError(t, err)

		resp, err := c.Match(context.Background(), "http://localhost/missing.css")
		require.NoError(t, err)
		assert.Nil(t, resp)
	})
}

func TestCache_PutOverwritesAndMatches(t *testing.T) {
	storages(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		c, err := s.Open(ctx, "v1")
		require.NoError(t, err)

		key := "http://localhost/app.css"
		require.NoError(t, c.Put(ctx, key, okResponse("old")))
		require.NoError(t, c.Put(ctx, key, okResponse("new")))

		got, err := c.Match(ctx, key)
		require.NoError(t, err)
		if diff := cmp.Diff(okResponse("new"), got); diff != "" {
			t.Errorf("Match() mismatch (-want +got):\n%s", diff)
		}

		keys, err := c.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{key}, keys)
	})
}

func TestCache_MatchReturnsCopy(t *testing.T) {
	storages(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		c, _ := s.Open(ctx, "v1")
		require.NoError(t, c.Put(ctx, "k", okResponse("abc")))

		first, err := c.Match(ctx, "k")
		require.NoError(t, err)
		first.Body[0] = 'X'

		second, err := c.Match(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(second.Body))
	})
}

func TestCache_PutAllIsAtomic(t *testing.T) {
	storages(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		c, _ := s.Open(ctx, "v1")

		err := c.PutAll(ctx, map[string]*models.Response{
			"a": okResponse("a"),
			"b": {StatusCode: http.StatusPartialContent, Header: http.Header{}},
		})
		require.ErrorIs(t, err, ErrUncacheable)

		keys, err := c.Keys(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)

		require.NoError(t, c.PutAll(ctx, map[string]*models.Response{
			"a": okResponse("a"),
			"b": okResponse("b"),
		}))
		keys, err = c.Keys(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b"}, keys)
	})
}

func TestCache_RejectsUncacheable(t *testing.T) {
	storages(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		c, _ := s.Open(ctx, "v1")

		vary := okResponse("x")
		vary.Header.Set("Vary", "*")
		assert.ErrorIs(t, c.Put(ctx, "vary", vary), ErrUncacheable)
		assert.ErrorIs(t, c.Put(ctx, "nil", nil), ErrUncacheable)

		notModified := &models.Response{StatusCode: http.StatusNotModified, Header: http.Header{"Etag": {`"v1"`}}}
		assert.ErrorIs(t, c.Put(ctx, "304", notModified), ErrUncacheable)

		for _, cc := range []string{"no-store", "private", "max-age=0, Private", `private="Set-Cookie"`} {
			resp := okResponse("user data")
			resp.Header.Set("Cache-Control", cc)
			assert.ErrorIs(t, c.Put(ctx, cc, resp), ErrUncacheable, cc)
		}
		assert.ErrorIs(t, c.PutAll(ctx, map[string]*models.Response{"ok": okResponse("x"), "304": notModified}), ErrUncacheable)

		public := okResponse("shared")
		public.Header.Set("Cache-Control", "public, max-age=86400")
		assert.NoError(t, c.Put(ctx, "public", public))
		noCache := okResponse("manifest")
		noCache.Header.Set("Cache-Control", "no-cache")
		assert.NoError(t, c.Put(ctx, "no-cache", noCache))

		keys, err := c.Keys(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"public", "no-cache"}, keys)
	})
}

func TestMemoryStorage_DeletedHandleDoesNotDuplicateKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	c, err := s.Open(ctx, "v1")
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "k", okResponse("old")))

	_, err = s.Delete(ctx, "v1")
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "k", okResponse("new")))

	keys, err := c.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)
}

func TestCache_DeleteEntry(t *testing.T) {
	storages(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		c, _ := s.Open(ctx, "v1")
		require.NoError(t, c.Put(ctx, "k", okResponse("v")))

		deleted, err := c.Delete(ctx, "k")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = c.Delete(ctx, "k")
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestStorage_DeleteDropsEntries(t *testing.T) {
	storages(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		c, _ := s.Open(ctx, "v1")
		require.NoError(t, c.Put(ctx, "k", okResponse("v")))

		_, err := s.Delete(ctx, "v1")
		require.NoError(t, err)

		reopened, err := s.Open(ctx, "v1")
		require.NoError(t, err)
		resp, err := reopened.Match(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, resp)
	})
}

func TestCache_ConcurrentPuts(t *testing.T) {
	storages(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		c, _ := s.Open(ctx, "v1")

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, c.Put(ctx, "same", okResponse(fmt.Sprintf("body-%d", i))))
			}(i)
		}
		wg.Wait()

		keys, err := c.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"same"}, keys)
	})
}

func TestSQLiteStorage_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	ctx := context.Background()

	s, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	c, _ := s.Open(ctx, "cm-cache-v1")
	require.NoError(t, c.Put(ctx, "http://localhost/offline", okResponse("offline")))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStorage(path)
	require.NoError(t, err)
	defer s.Close()

	c, _ = s.Open(ctx, "cm-cache-v1")
	resp, err := c.Match(ctx, "http://localhost/offline")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "offline", string(resp.Body))
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
}

func TestNewStorage(t *testing.T) {
	s, err := NewStorage(&config.CacheConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, s)

	_, err = NewStorage(&config.CacheConfig{Driver: "redis"})
	assert.Error(t, err)
}
