package disk

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pages.db")
	m, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown() })
	return m
}

func TestFileManager_AllocatePageMonotonic(t *testing.T) {
	m := newTestManager(t)
	require.Equal(t, uint32(0), m.AllocatePage())
	require.Equal(t, uint32(1), m.AllocatePage())
	require.Equal(t, uint32(2), m.AllocatePage())
}

func TestFileManager_ReadUnwrittenPageIsZeroed(t *testing.T) {
	m := newTestManager(t)
	id := m.AllocatePage()

	buf := make([]byte, PageSize)
	require.NoError(t, m.ReadPage(id, buf))
	for _, b := range buf {
		require.Zero(t, b)
	}
}

func TestFileManager_WriteThenReadRoundTrips(t *testing.T) {
	m := newTestManager(t)
	id := m.AllocatePage()

	out := make([]byte, PageSize)
	out[0], out[PageSize-1] = 0xAB, 0xCD
	require.NoError(t, m.WritePage(id, out))

	in := make([]byte, PageSize)
	require.NoError(t, m.ReadPage(id, in))
	require.Equal(t, out, in)
}

func TestFileManager_DeallocatePageIsNoop(t *testing.T) {
	m := newTestManager(t)
	id := m.AllocatePage()
	require.NoError(t, m.WritePage(id, make([]byte, PageSize)))
	require.NoError(t, m.DeallocatePage(id))

	// page content is untouched and id is not reused.
	require.Equal(t, id+1, m.AllocatePage())
}

func TestFileManager_ReadRejectsWrongBufferSize(t *testing.T) {
	m := newTestManager(t)
	require.Error(t, m.ReadPage(0, make([]byte, 10)))
}

func TestFileManager_ReopenRecomputesNextPageFromFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.db")
	m1, err := Open(path)
	require.NoError(t, err)
	id := m1.AllocatePage()
	require.NoError(t, m1.WritePage(id, make([]byte, PageSize)))
	require.NoError(t, m1.Shutdown())

	m2, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = m2.Shutdown() }()
	require.Equal(t, id+1, m2.AllocatePage())
}
