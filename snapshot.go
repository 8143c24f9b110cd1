package hilbertcluster

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/cohenw/hilbertcluster/blobstore"
	"github.com/cohenw/hilbertcluster/codec"
	"github.com/cohenw/hilbertcluster/hilbert"
	"github.com/cohenw/hilbertcluster/optimizer"
)

// Compression selects how snapshot payloads are compressed.
type Compression uint8

const (
	// CompressionZstd compresses with zstd (default).
	CompressionZstd Compression = iota
	// CompressionLZ4 compresses with the LZ4 frame format.
	CompressionLZ4
	// CompressionNone stores the payload uncompressed.
	CompressionNone
)

// String returns the stable name stored in snapshot headers.
func (c Compression) String() string {
	switch c {
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	case CompressionNone:
		return "none"
	default:
		return "unknown"
	}
}

func compressionByName(name string) (Compression, bool) {
	switch name {
	case "zstd":
		return CompressionZstd, true
	case "lz4":
		return CompressionLZ4, true
	case "none":
		return CompressionNone, true
	default:
		return 0, false
	}
}

// snapshotMagic identifies snapshot data. "HCSN" in Little Endian.
const snapshotMagic uint32 = 0x4e534348

// ErrInvalidSnapshot is returned for data that is not a snapshot or
// whose header names an unknown codec or compression.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Snapshot is the persistent form of a finished search: the retained
// permutations with their scores, but not the points or indices, which
// are cheap to rebuild.
type Snapshot struct {
	BitsPerDimension int              `json:"bits_per_dimension"`
	Results          []SnapshotResult `json:"results"`
}

// SnapshotResult is one retained search result.
type SnapshotResult struct {
	Permutation           []int  `json:"permutation"`
	EstimatedClusterCount int    `json:"estimated_cluster_count"`
	MergeSquareDistance   uint64 `json:"merge_square_distance"`
}

// NewSnapshot captures search results into a Snapshot, best first.
func NewSnapshot(bitsPerDimension int, results []optimizer.Result) *Snapshot {
	snap := &Snapshot{
		BitsPerDimension: bitsPerDimension,
		Results:          make([]SnapshotResult, len(results)),
	}
	for i, r := range results {
		snap.Results[i] = SnapshotResult{
			Permutation:           r.Permutation,
			EstimatedClusterCount: r.EstimatedClusterCount,
			MergeSquareDistance:   r.MergeSquareDistance,
		}
	}
	return snap
}

// Best returns the best retained result.
func (s *Snapshot) Best() (SnapshotResult, bool) {
	if len(s.Results) == 0 {
		return SnapshotResult{}, false
	}
	return s.Results[0], true
}

// BestPermutation returns the best retained permutation, or nil if the
// snapshot is empty.
func (s *Snapshot) BestPermutation() hilbert.Permutation {
	best, ok := s.Best()
	if !ok {
		return nil
	}
	return hilbert.Permutation(best.Permutation).Clone()
}

// EncodeSnapshot serializes snap with the given codec and compression.
// The header records both names so DecodeSnapshot needs no out-of-band
// configuration.
//
// Layout: Magic(4) | CodecLen(1) | Codec | CompLen(1) | Comp | Payload.
func EncodeSnapshot(snap *Snapshot, c codec.Codec, comp Compression) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}

	payload, err := c.Marshal(snap)
	if err != nil {
		return nil, err
	}

	payload, err = compress(payload, comp)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	var magic [4]byte
	binary.LittleEndian.PutUint32(magic[:], snapshotMagic)
	buf.Write(magic[:])
	buf.WriteByte(byte(len(c.Name())))
	buf.WriteString(c.Name())
	compName := comp.String()
	buf.WriteByte(byte(len(compName)))
	buf.WriteString(compName)
	buf.Write(payload)
	return buf.Bytes(), nil
}

// DecodeSnapshot parses data produced by EncodeSnapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	rest, codecName, compName, err := parseSnapshotHeader(data)
	if err != nil {
		return nil, err
	}

	c, ok := codec.ByName(codecName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrInvalidSnapshot, codecName)
	}
	comp, ok := compressionByName(compName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown compression %q", ErrInvalidSnapshot, compName)
	}

	payload, err := decompress(rest, comp)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := c.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func parseSnapshotHeader(data []byte) (rest []byte, codecName, compName string, err error) {
	if len(data) < 4 || binary.LittleEndian.Uint32(data[:4]) != snapshotMagic {
		return nil, "", "", ErrInvalidSnapshot
	}
	data = data[4:]

	readString := func() (string, bool) {
		if len(data) < 1 {
			return "", false
		}
		n := int(data[0])
		if len(data) < 1+n {
			return "", false
		}
		s := string(data[1 : 1+n])
		data = data[1+n:]
		return s, true
	}

	var ok bool
	if codecName, ok = readString(); !ok {
		return nil, "", "", ErrInvalidSnapshot
	}
	if compName, ok = readString(); !ok {
		return nil, "", "", ErrInvalidSnapshot
	}
	return data, codecName, compName, nil
}

func compress(payload []byte, comp Compression) ([]byte, error) {
	switch comp {
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		out := enc.EncodeAll(payload, nil)
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return out, nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionNone:
		return payload, nil
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrInvalidSnapshot, comp)
	}
}

func decompress(data []byte, comp Compression) ([]byte, error) {
	switch comp {
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	case CompressionLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	case CompressionNone:
		return data, nil
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrInvalidSnapshot, comp)
	}
}

// SaveSnapshot encodes results and writes them to store under name.
// Snapshot IO honors the configured resource controller's rate limit.
func (hc *HilbertCluster) SaveSnapshot(ctx context.Context, store blobstore.Store, name string, results []optimizer.Result) error {
	begin := time.Now()

	data, err := EncodeSnapshot(NewSnapshot(hc.bits, results), hc.codec, hc.compression)
	if err == nil {
		err = hc.resources.AcquireIO(ctx, len(data))
	}
	if err == nil {
		err = store.Put(ctx, name, data)
	}

	hc.metrics.RecordSnapshot(len(data), time.Since(begin), err)
	hc.logger.LogSnapshot(ctx, name, len(data), err)
	return err
}

// LoadSnapshot reads and decodes the snapshot stored under name.
func (hc *HilbertCluster) LoadSnapshot(ctx context.Context, store blobstore.Store, name string) (*Snapshot, error) {
	begin := time.Now()

	data, err := store.Get(ctx, name)
	if err != nil {
		hc.metrics.RecordSnapshot(0, time.Since(begin), err)
		hc.logger.LogSnapshot(ctx, name, 0, err)
		return nil, err
	}
	if err := hc.resources.AcquireIO(ctx, len(data)); err != nil {
		return nil, err
	}

	snap, err := DecodeSnapshot(data)
	hc.metrics.RecordSnapshot(len(data), time.Since(begin), err)
	hc.logger.LogSnapshot(ctx, name, len(data), err)
	return snap, err
}
