package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.canvass.io/canvass/internal/testing/fake"
)

func TestFileLoader_LoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "private.key")

	generator := fakeGenerator{
		calls: fake.NewCall(),
	}

	loader := NewFileLoader(path).(fileLoader)

	data, err := loader.LoadOrCreate(generator)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, data)
	require.Equal(t, 1, generator.calls.Len())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "010203", string(content))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, keyPerm, info.Mode().Perm())

	// The temporary file is gone.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err = loader.LoadOrCreate(generator)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, data)
	require.Equal(t, 1, generator.calls.Len())
}

func TestFileLoader_CreateFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "private.key")

	generator := fakeGenerator{calls: fake.NewCall()}

	loader := NewFileLoader(path).(fileLoader)

	_, err := loader.LoadOrCreate(fakeGenerator{calls: fake.NewCall(), err: fake.GetError()})
	require.EqualError(t, err, fake.Err("generator failed"))

	loader.mkdirFn = func(path string, perms os.FileMode) error {
		return fake.GetError()
	}
	_, err = loader.LoadOrCreate(generator)
	require.EqualError(t, err, fake.Err("while creating folder"))

	loader.mkdirFn = os.MkdirAll
	loader.createFn = func(dir, pattern string) (*os.File, error) {
		return nil, fake.GetError()
	}
	_, err = loader.LoadOrCreate(generator)
	require.EqualError(t, err, fake.Err("while creating file"))

	loader.createFn = os.CreateTemp
	loader.renameFn = func(from, to string) error {
		return fake.GetError()
	}
	_, err = loader.LoadOrCreate(generator)
	require.EqualError(t, err, fake.Err("while moving file"))

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	loader.statFn = func(path string) (os.FileInfo, error) {
		return nil, fake.GetError()
	}
	_, err = loader.LoadOrCreate(generator)
	require.EqualError(t, err, fake.Err("while checking file"))
}

func TestFileLoader_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "private.key")

	_, err := NewFileLoader(path).Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "while opening file: ")

	require.NoError(t, os.WriteFile(path, []byte("0a0b\n"), 0644))

	_, err = NewFileLoader(path).Load()
	require.EqualError(t, err, "key file '"+path+"' is accessible by other users (644)")

	require.NoError(t, os.Chmod(path, 0600))

	data, err := NewFileLoader(path).Load()
	require.NoError(t, err)
	require.Equal(t, []byte{0xa, 0xb}, data)

	require.NoError(t, os.WriteFile(path, []byte("zz\n"), 0600))

	_, err = NewFileLoader(path).Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed key: ")

	loader := NewFileLoader(path).(fileLoader)
	loader.readFn = func(string) ([]byte, error) {
		return nil, fake.GetError()
	}
	_, err = loader.Load()
	require.EqualError(t, err, fake.Err("while reading file"))
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeGenerator struct {
	calls *fake.Call
	err   error
}

func (g fakeGenerator) Generate() ([]byte, error) {
	g.calls.Add("Generate")

	return []byte{1, 2, 3}, g.err
}
