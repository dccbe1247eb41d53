package persist_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palvaroni/git-history-parser/pkg/persist"
)

type payload struct {
	Name   string
	Counts []int
}

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	codecs := []struct {
		name  string
		codec persist.Codec
	}{
		{"gob", persist.GobCodec{}},
		{"lz4", persist.LZ4Codec{}},
	}

	for _, tc := range codecs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			in := payload{Name: "ledger", Counts: []int{1, 2, 3}}

			var buf bytes.Buffer

			err := tc.codec.Encode(&buf, &in)
			require.NoError(t, err)

			var out payload

			err = tc.codec.Decode(&buf, &out)
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestLZ4CompressesRepetitiveState(t *testing.T) {
	t.Parallel()

	in := payload{Name: "repeat"}
	for i := 0; i < 10000; i++ {
		in.Counts = append(in.Counts, 42)
	}

	var plain, compressed bytes.Buffer

	require.NoError(t, persist.GobCodec{}.Encode(&plain, &in))
	require.NoError(t, persist.LZ4Codec{}.Encode(&compressed, &in))

	assert.Less(t, compressed.Len(), plain.Len())
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state"+persist.LZ4Codec{}.Extension())
	in := payload{Name: "snapshot", Counts: []int{7}}

	err := persist.Save(path, persist.LZ4Codec{}, &in)
	require.NoError(t, err)

	var out payload

	err = persist.Load(path, persist.LZ4Codec{}, &out)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "state.gob")

	err := persist.Save(path, persist.GobCodec{}, &payload{Name: "x"})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.gob", entries[0].Name())
}

func TestSaveOverwritesExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.gob")

	require.NoError(t, persist.Save(path, persist.GobCodec{}, &payload{Name: "first"}))
	require.NoError(t, persist.Save(path, persist.GobCodec{}, &payload{Name: "second"}))

	var out payload

	require.NoError(t, persist.Load(path, persist.GobCodec{}, &out))
	assert.Equal(t, "second", out.Name)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	var out payload

	err := persist.Load(filepath.Join(t.TempDir(), "absent.gob"), persist.GobCodec{}, &out)
	require.ErrorIs(t, err, os.ErrNotExist)
}
