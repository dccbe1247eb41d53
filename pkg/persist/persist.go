// Package persist provides codecs and atomic file persistence for engine
// state snapshots.
package persist

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
)

// Codec encodes and decodes a state value against a stream.
type Codec interface {
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
	Extension() string
}

// GobCodec is the plain gob codec.
type GobCodec struct{}

// Encode gob-encodes v to w.
func (GobCodec) Encode(w io.Writer, v any) error {
	err := gob.NewEncoder(w).Encode(v)
	if err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}

	return nil
}

// Decode gob-decodes from r into v.
func (GobCodec) Decode(r io.Reader, v any) error {
	err := gob.NewDecoder(r).Decode(v)
	if err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}

	return nil
}

// Extension returns the file extension for the codec.
func (GobCodec) Extension() string {
	return ".gob"
}

// LZ4Codec is gob wrapped in an LZ4 frame. Ledger snapshots compress well:
// record paths and commit hashes repeat heavily.
type LZ4Codec struct{}

// Encode gob-encodes v into an LZ4 frame on w.
func (LZ4Codec) Encode(w io.Writer, v any) error {
	zw := lz4.NewWriter(w)

	err := gob.NewEncoder(zw).Encode(v)
	if err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("close lz4 writer: %w", err)
	}

	return nil
}

// Decode gob-decodes v from an LZ4 frame on r.
func (LZ4Codec) Decode(r io.Reader, v any) error {
	err := gob.NewDecoder(lz4.NewReader(r)).Decode(v)
	if err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}

	return nil
}

// Extension returns the file extension for the codec.
func (LZ4Codec) Extension() string {
	return ".gob.lz4"
}

// Save writes v to path atomically: encode to a temp file in the same
// directory, then rename over the target. A crash mid-write never leaves a
// truncated snapshot behind.
func Save(path string, codec Codec, v any) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()

	err = codec.Encode(tmp, v)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return err
	}

	err = tmp.Close()
	if err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("close temp file: %w", err)
	}

	err = os.Rename(tmpName, path)
	if err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// Load reads v from path with the given codec.
func Load(path string, codec Codec, v any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return codec.Decode(file, v)
}
