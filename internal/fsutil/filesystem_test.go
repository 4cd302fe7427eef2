package fsutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fs := OSFileSystem{}

	if !fs.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}
	if fs.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_ReadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	infos, err := OSFileSystem{}.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	names := map[string]bool{}
	for _, info := range infos {
		names[info.Name()] = info.IsDir()
	}
	assert.Equal(t, map[string]bool{"a.txt": false, "sub": true}, names)
}

func TestOSFileSystem_CreateAndRead(t *testing.T) {
	fs := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "nested", "out")
	require.NoError(t, fs.MkdirAll(dir, 0755))

	path := filepath.Join(dir, "plot.png")
	w, err := fs.Create(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("png bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := fs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))

	info, err := fs.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(9), info.Size())
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()
	stamp := time.Date(2020, 11, 5, 10, 0, 0, 0, time.UTC)

	mfs.WriteFile("/data/Responses.1.txt", []byte("hello"), stamp)

	data, err := mfs.ReadFile("/data/Responses.1.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	info, err := mfs.Stat("/data/Responses.1.txt")
	require.NoError(t, err)
	assert.Equal(t, stamp, info.ModTime())
	assert.Equal(t, int64(5), info.Size())
	assert.False(t, info.IsDir())

	assert.True(t, mfs.Exists("/data"), "parent directory should be implied")
}

func TestMemoryFileSystem_ReadNonExistent(t *testing.T) {
	mfs := NewMemoryFileSystem()

	_, err := mfs.ReadFile("/missing.txt")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = mfs.Stat("/missing.txt")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemoryFileSystem_DataIsolation(t *testing.T) {
	mfs := NewMemoryFileSystem()
	original := []byte("original")
	mfs.WriteFile("/iso.txt", original, time.Time{})

	original[0] = 'X'
	data, err := mfs.ReadFile("/iso.txt")
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	data[0] = 'Y'
	again, err := mfs.ReadFile("/iso.txt")
	require.NoError(t, err)
	assert.Equal(t, "original", string(again))
}

func TestMemoryFileSystem_ReadDir(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/data/b.txt", []byte("b"), time.Time{})
	mfs.WriteFile("/data/a.txt", []byte("a"), time.Time{})
	mfs.WriteFile("/data/nested/c.txt", []byte("c"), time.Time{})
	mfs.WriteFile("/other/d.txt", []byte("d"), time.Time{})

	infos, err := mfs.ReadDir("/data")
	require.NoError(t, err)

	var names []string
	for _, info := range infos {
		names = append(names, info.Name())
	}
	assert.Equal(t, []string{"a.txt", "b.txt", "nested"}, names)

	_, err = mfs.ReadDir("/nowhere")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemoryFileSystem_CreateVisibleOnClose(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll("/out/plots", 0755))

	w, err := mfs.Create("/out/plots/std.png")
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)

	data, err := mfs.ReadFile("/out/plots/std.png")
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, w.Close())
	data, err = mfs.ReadFile("/out/plots/std.png")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	assert.Equal(t, []string{"/out/plots/std.png"}, mfs.Files("/out"))
}

func TestMemoryFileSystem_StatDir(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll("/a/b/c", 0755))

	for _, dir := range []string{"/a", "/a/b", "/a/b/c"} {
		info, err := mfs.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}
}

func TestMemoryFileSystem_PathCleaning(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/a/./b/../c.txt", []byte("clean"), time.Time{})

	data, err := mfs.ReadFile("/a/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "clean", string(data))
}
