package hostworld

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

const fixtureVersion = 1

type fixtureHeader struct {
	Version int   `json:"version"`
	Gen     Gen   `json:"gen"`
	Local   bool  `json:"local"`
	Chunks  int   `json:"chunks"`
	Edits   int64 `json:"edits"`
}

type fixtureChunk struct {
	CX     int    `json:"cx"`
	CZ     int    `json:"cz"`
	Blocks string `json:"blocks"`
}

// WriteFixture stores every loaded chunk as zstd-compressed JSON lines: a
// header, then one RLE-encoded chunk per line in key order.
func WriteFixture(out io.Writer, w *World) error {
	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 128*1024)
	je := json.NewEncoder(bw)

	keys := w.LoadedChunkKeys()
	hdr := fixtureHeader{Version: fixtureVersion, Gen: w.gen, Local: w.local, Chunks: len(keys), Edits: w.Edits()}
	if err := je.Encode(hdr); err != nil {
		_ = enc.Close()
		return err
	}
	for _, k := range keys {
		w.mu.RLock()
		ch, ok := w.chunks[k]
		var blocks string
		if ok {
			blocks = encodeRLE(ch.Blocks)
		}
		w.mu.RUnlock()
		if !ok {
			continue
		}
		if err := je.Encode(fixtureChunk{CX: k.CX, CZ: k.CZ, Blocks: blocks}); err != nil {
			_ = enc.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// ReadFixture rebuilds a world from WriteFixture output. Chunks in the
// fixture are loaded as stored; any other chunk generates from the saved
// generator settings when loaded.
func ReadFixture(in io.Reader) (*World, error) {
	dec, err := zstd.NewReader(in)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	jd := json.NewDecoder(dec)

	var hdr fixtureHeader
	if err := jd.Decode(&hdr); err != nil {
		return nil, fmt.Errorf("fixture header: %w", err)
	}
	if hdr.Version != fixtureVersion {
		return nil, fmt.Errorf("fixture version %d unsupported", hdr.Version)
	}
	if hdr.Gen.Height() <= 0 {
		return nil, fmt.Errorf("fixture height %d invalid", hdr.Gen.Height())
	}

	w := New(hdr.Gen, hdr.Local)
	size := ChunkSize * ChunkSize * hdr.Gen.Height()
	for {
		var fc fixtureChunk
		if err := jd.Decode(&fc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("fixture chunk: %w", err)
		}
		blocks, err := decodeRLE(fc.Blocks, size)
		if err != nil {
			return nil, fmt.Errorf("fixture chunk %d,%d: %w", fc.CX, fc.CZ, err)
		}
		ch := newChunk(fc.CX, fc.CZ, hdr.Gen.Height())
		ch.Blocks = blocks
		w.putChunk(ch)
	}
	if got := len(w.chunks); got != hdr.Chunks {
		return nil, fmt.Errorf("fixture holds %d chunks, header says %d", got, hdr.Chunks)
	}
	return w, nil
}
