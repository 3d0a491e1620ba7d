package bufferpool

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relbuf/pagecache/internal/disk"
)

func TestManager_ConcurrentReadsOfSamePage(t *testing.T) {
	d, err := disk.Open(filepath.Join(t.TempDir(), "pages.db"))
	require.NoError(t, err)
	defer func() { _ = d.Shutdown() }()

	m := NewManager(8, 2, d, nil)
	_, pageID, err := m.NewPageGuarded()
	require.NoError(t, err)
	require.NoError(t, m.UnpinPage(pageID, false))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rg, err := m.FetchPageRead(pageID)
			require.NoError(t, err)
			_ = rg.Data()
			rg.Drop()
		}()
	}
	wg.Wait()
}

func TestManager_MixedWorkloadUnderContention(t *testing.T) {
	d, err := disk.Open(filepath.Join(t.TempDir(), "pages.db"))
	require.NoError(t, err)
	defer func() { _ = d.Shutdown() }()

	m := NewManager(4, 2, d, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			guard, pageID, err := m.NewPageGuarded()
			if err != nil {
				// pool may legitimately be exhausted under high contention
				// with a small capacity; that is not a correctness bug.
				return
			}
			copy(guard.Data(), []byte{byte(i)})
			guard.MarkDirty()
			guard.Drop()

			rg, err := m.FetchPageRead(pageID)
			require.NoError(t, err)
			_ = rg.Data()
			rg.Drop()
		}(i)
	}
	wg.Wait()
}

func TestManager_EvictionUnderContentionNeverCorruptsPageTable(t *testing.T) {
	d, err := disk.Open(filepath.Join(t.TempDir(), "pages.db"))
	require.NoError(t, err)
	defer func() { _ = d.Shutdown() }()

	m := NewManager(2, 2, d, nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, pageID, err := m.NewPageGuarded()
			if err != nil {
				return
			}
			_ = m.UnpinPage(pageID, false)
		}()
	}
	wg.Wait()

	m.mu.Lock()
	require.LessOrEqual(t, len(m.pageTable), m.Capacity())
	for pageID, frameID := range m.pageTable {
		require.Equal(t, pageID, m.frames[frameID].pageID)
	}
	m.mu.Unlock()
}
