// Package snapshot implements the persisted index format.
//
// A snapshot is self-describing: a fixed magic and version, the codec and
// compression names, then the compressed codec payload. On load the names in
// the header select the decoder, so the writer's defaults may change without
// breaking existing snapshots.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/minlsh/codec"
)

var magic = []byte("MLSH")

const version = 1

// ErrBadMagic is returned when the input does not start with the snapshot
// magic.
var ErrBadMagic = errors.New("snapshot: bad magic")

// Options configure how a snapshot is written. Reading needs no options; the
// header carries everything.
type Options struct {
	Codec       codec.Codec
	Compression Compression
}

// Option mutates snapshot write options.
type Option func(*Options)

// WithCodec selects the payload codec. Nil selects codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(o *Options) {
		if c == nil {
			c = codec.Default
		}
		o.Codec = c
	}
}

// WithCompression selects the payload compression.
func WithCompression(c Compression) Option {
	return func(o *Options) {
		o.Compression = c
	}
}

// Write encodes v and writes a complete snapshot to w.
func Write(w io.Writer, v any, optFns ...Option) error {
	opts := Options{
		Codec:       codec.Default,
		Compression: CompressionS2,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	payload, err := opts.Codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	compressed, err := compress(opts.Compression, payload)
	if err != nil {
		return err
	}

	if _, err := w.Write(magic); err != nil {
		return err
	}
	if _, err := w.Write([]byte{version}); err != nil {
		return err
	}
	if err := writeName(w, opts.Codec.Name()); err != nil {
		return err
	}
	if err := writeName(w, string(opts.Compression)); err != nil {
		return err
	}
	_, err = w.Write(compressed)
	return err
}

// Read parses a snapshot from r and decodes its payload into v.
func Read(r io.Reader, v any) error {
	header := make([]byte, len(magic)+1)
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("snapshot: header: %w", err)
	}
	if !bytes.Equal(header[:len(magic)], magic) {
		return ErrBadMagic
	}
	if header[len(magic)] != version {
		return fmt.Errorf("snapshot: unsupported version %d", header[len(magic)])
	}

	codecName, err := readName(r)
	if err != nil {
		return err
	}
	compressionName, err := readName(r)
	if err != nil {
		return err
	}

	c, ok := codec.ByName(codecName)
	if !ok {
		return fmt.Errorf("snapshot: unknown codec %q", codecName)
	}

	compressed, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	payload, err := decompress(Compression(compressionName), compressed)
	if err != nil {
		return err
	}

	if err := c.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	return nil
}

func writeName(w io.Writer, name string) error {
	if len(name) > 255 {
		return fmt.Errorf("snapshot: name too long: %q", name)
	}
	if _, err := w.Write([]byte{byte(len(name))}); err != nil {
		return err
	}
	_, err := io.WriteString(w, name)
	return err
}

func readName(r io.Reader) (string, error) {
	var n [1]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return "", err
	}
	buf := make([]byte, n[0])
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
