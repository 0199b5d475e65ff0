package terrain

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/hexkernel/internal/core/errs"
)

var blobMagic = [4]byte{'H', 'X', 'C', '1'}

const (
	blobHeaderSize = len(blobMagic) + 8
	// BlobSize is the exact length of an encoded chunk.
	BlobSize = blobHeaderSize + ChunkArea + 8
)

// Encode serializes a chunk as magic | x | y | cells | xxhash64.
func Encode(coord ChunkCoord, tiles *Tiles) []byte {
	buf := make([]byte, BlobSize)
	copy(buf, blobMagic[:])
	binary.BigEndian.PutUint32(buf[4:], uint32(int32(coord.X)))
	binary.BigEndian.PutUint32(buf[8:], uint32(int32(coord.Y)))
	for i, t := range tiles {
		buf[blobHeaderSize+i] = byte(t)
	}
	sum := xxhash.Sum64(buf[:blobHeaderSize+ChunkArea])
	binary.BigEndian.PutUint64(buf[blobHeaderSize+ChunkArea:], sum)
	return buf
}

// Decode validates and unpacks a blob that is expected to hold coord.
// Every failure wraps errs.ErrSerialization.
func Decode(coord ChunkCoord, blob []byte) (*Tiles, error) {
	if len(blob) != BlobSize {
		return nil, fmt.Errorf("%w: blob for %s has %d bytes, want %d", errs.ErrSerialization, coord, len(blob), BlobSize)
	}
	if !bytes.Equal(blob[:4], blobMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic for %s", errs.ErrSerialization, coord)
	}

	want := binary.BigEndian.Uint64(blob[blobHeaderSize+ChunkArea:])
	if got := xxhash.Sum64(blob[:blobHeaderSize+ChunkArea]); got != want {
		return nil, fmt.Errorf("%w: checksum mismatch for %s", errs.ErrSerialization, coord)
	}

	x := int(int32(binary.BigEndian.Uint32(blob[4:])))
	y := int(int32(binary.BigEndian.Uint32(blob[8:])))
	if x != coord.X || y != coord.Y {
		return nil, fmt.Errorf("%w: blob holds chunk(%d,%d), want %s", errs.ErrSerialization, x, y, coord)
	}

	tiles := new(Tiles)
	for i := range tiles {
		t := Type(blob[blobHeaderSize+i])
		if !t.Valid() {
			return nil, fmt.Errorf("%w: cell %d of %s holds %d", errs.ErrSerialization, i, coord, t)
		}
		tiles[i] = t
	}
	return tiles, nil
}
