package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsarna/gamestream/pkg/gamestream"
)

var (
	_ Store                       = (*MemoryStore)(nil)
	_ Store                       = (*FileStore)(nil)
	_ Store                       = (*EnvStore)(nil)
	_ gamestream.CredentialSource = ChainStore(nil)
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get("token")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set("token", "abc"))
	value, err := s.Get("token")
	require.NoError(t, err)
	assert.Equal(t, "abc", value)

	require.NoError(t, s.Delete("token"))
	require.NoError(t, s.Delete("token"))
	_, err = s.Get("token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)
	s := NewFileStore(path)

	_, err := s.Get("token")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set("token", "abc"))
	require.NoError(t, s.Set("refresh", "def"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened := NewFileStore(path)
	value, err := reopened.Get("token")
	require.NoError(t, err)
	assert.Equal(t, "abc", value)

	require.NoError(t, reopened.Delete("token"))
	require.NoError(t, reopened.Delete("missing"))

	_, err = s.Get("token")
	assert.ErrorIs(t, err, ErrNotFound)
	value, err = s.Get("refresh")
	require.NoError(t, err)
	assert.Equal(t, "def", value)
}

func TestFileStoreReadsHandWrittenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("token: from-file\nempty: \"\"\n"), 0o600))

	s := NewFileStore(path)
	value, err := s.Get("token")
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)

	_, err = s.Get("empty")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	s := NewFileStore(path)
	_, err := s.Get("token")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Set("token", "x"))
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map\n"), 0o600))

	_, err := NewFileStore(path).Get("token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "failed to parse credentials file")
}

func TestEnvStore(t *testing.T) {
	s := NewEnvStore(DefaultEnvPrefix)
	assert.Equal(t, "GAMESTREAM_TOKEN", s.VarName("token"))
	assert.Equal(t, "GAMESTREAM_API_KEY_2", s.VarName("api-key.2"))

	t.Setenv("GAMESTREAM_TOKEN", "from-env")
	value, err := s.Get("token")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)

	t.Setenv("GAMESTREAM_TOKEN", "")
	_, err = s.Get("token")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Set("token", "x"), ErrReadOnly)
	assert.ErrorIs(t, s.Delete("token"), ErrReadOnly)
}

type failingSource struct{ err error }

func (f failingSource) Get(string) (string, error) { return "", f.err }

func TestChainStore(t *testing.T) {
	first := NewMemoryStore()
	second := NewMemoryStore()
	require.NoError(t, second.Set("token", "second"))

	chain := ChainStore{nil, first, second}

	value, err := chain.Get("token")
	require.NoError(t, err)
	assert.Equal(t, "second", value)

	require.NoError(t, first.Set("token", "first"))
	value, err = chain.Get("token")
	require.NoError(t, err)
	assert.Equal(t, "first", value)

	_, err = chain.Get("other")
	assert.ErrorIs(t, err, ErrNotFound)

	broken := errors.New("disk on fire")
	_, err = ChainStore{failingSource{broken}, second}.Get("token")
	assert.ErrorIs(t, err, broken)

	value, err = ChainStore{failingSource{ErrNotFound}, second}.Get("token")
	require.NoError(t, err)
	assert.Equal(t, "second", value)
}
