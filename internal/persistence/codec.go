// Package persistence saves and restores chunk water volumes and encodes the
// chunk updates sent to viewers. Surfaces and boundary snapshots are derived
// data and are never stored.
package persistence

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"voxelwater/internal/fluid"
	"voxelwater/internal/world"
)

var (
	// ErrNotFound is returned when a chunk has no saved water.
	ErrNotFound = errors.New("persistence: chunk not found")
	// ErrCorrupt is returned when saved or received bytes do not decode.
	ErrCorrupt = errors.New("persistence: corrupt data")
)

// Storage message:
//
//	repeated Cell cells = 1;
//
// Cell message:
//
//	sint32 x = 1; sint32 y = 2; sint32 z = 3; double volume = 4;
const (
	fieldStorageCell = 1

	fieldCellX      = 1
	fieldCellY      = 2
	fieldCellZ      = 3
	fieldCellVolume = 4
)

// ChunkUpdate message:
//
//	sint32 x = 1; sint32 y = 2; sint32 z = 3; uint64 tick = 4;
//	Storage water = 5; repeated float mesh = 6 [packed];
const (
	fieldUpdateX     = 1
	fieldUpdateY     = 2
	fieldUpdateZ     = 3
	fieldUpdateTick  = 4
	fieldUpdateWater = 5
	fieldUpdateMesh  = 6
)

// ChunkUpdate is what viewers receive when a chunk's water changes.
type ChunkUpdate struct {
	Coord world.ChunkCoord
	Tick  uint64
	Water *fluid.Storage
	// Mesh is the interleaved water surface vertex data.
	Mesh []float32
}

func appendSint(b []byte, num protowire.Number, v int) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(int64(v)))
}

// EncodeStorage serializes st with cells in Pos.Less order.
func EncodeStorage(st *fluid.Storage) []byte {
	return appendStorage(nil, st)
}

func appendStorage(b []byte, st *fluid.Storage) []byte {
	var cell []byte
	for _, p := range st.Positions() {
		cell = cell[:0]
		cell = appendSint(cell, fieldCellX, p.X)
		cell = appendSint(cell, fieldCellY, p.Y)
		cell = appendSint(cell, fieldCellZ, p.Z)
		cell = protowire.AppendTag(cell, fieldCellVolume, protowire.Fixed64Type)
		cell = protowire.AppendFixed64(cell, math.Float64bits(st.Volume(p)))

		b = protowire.AppendTag(b, fieldStorageCell, protowire.BytesType)
		b = protowire.AppendBytes(b, cell)
	}
	return b
}

// DecodeStorage parses bytes written by EncodeStorage. Cells outside the
// chunk or with a volume outside [MinVolume, MaxVolume] are rejected.
func DecodeStorage(b []byte) (*fluid.Storage, error) {
	st := fluid.NewStorage()
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != fieldStorageCell || typ != protowire.BytesType {
			return skip(num, typ, b)
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		p, vol, err := decodeCell(v)
		if err != nil {
			return 0, err
		}
		st.Set(p, vol)
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func decodeCell(b []byte) (fluid.Pos, float64, error) {
	var p fluid.Pos
	vol := math.NaN()
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case typ == protowire.VarintType && num >= fieldCellX && num <= fieldCellZ:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			c := int(protowire.DecodeZigZag(v))
			switch num {
			case fieldCellX:
				p.X = c
			case fieldCellY:
				p.Y = c
			default:
				p.Z = c
			}
			return n, nil
		case typ == protowire.Fixed64Type && num == fieldCellVolume:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			vol = math.Float64frombits(v)
			return n, nil
		}
		return skip(num, typ, b)
	})
	if err != nil {
		return p, 0, err
	}
	if !world.InChunk(p) {
		return p, 0, fmt.Errorf("%w: cell %+v outside chunk", ErrCorrupt, p)
	}
	if math.IsNaN(vol) || vol < fluid.MinVolume || vol > fluid.MaxVolume {
		return p, 0, fmt.Errorf("%w: cell %+v volume %v", ErrCorrupt, p, vol)
	}
	return p, vol, nil
}

// EncodeChunkUpdate serializes u.
func EncodeChunkUpdate(u ChunkUpdate) []byte {
	var b []byte
	b = appendSint(b, fieldUpdateX, u.Coord.X)
	b = appendSint(b, fieldUpdateY, u.Coord.Y)
	b = appendSint(b, fieldUpdateZ, u.Coord.Z)
	if u.Tick != 0 {
		b = protowire.AppendTag(b, fieldUpdateTick, protowire.VarintType)
		b = protowire.AppendVarint(b, u.Tick)
	}
	if u.Water != nil {
		b = protowire.AppendTag(b, fieldUpdateWater, protowire.BytesType)
		b = protowire.AppendBytes(b, EncodeStorage(u.Water))
	}
	if len(u.Mesh) > 0 {
		packed := make([]byte, 0, 4*len(u.Mesh))
		for _, f := range u.Mesh {
			packed = protowire.AppendFixed32(packed, math.Float32bits(f))
		}
		b = protowire.AppendTag(b, fieldUpdateMesh, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b
}

// DecodeChunkUpdate parses bytes written by EncodeChunkUpdate.
func DecodeChunkUpdate(b []byte) (ChunkUpdate, error) {
	var u ChunkUpdate
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case typ == protowire.VarintType && num >= fieldUpdateX && num <= fieldUpdateZ:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			c := int(protowire.DecodeZigZag(v))
			switch num {
			case fieldUpdateX:
				u.Coord.X = c
			case fieldUpdateY:
				u.Coord.Y = c
			default:
				u.Coord.Z = c
			}
			return n, nil
		case typ == protowire.VarintType && num == fieldUpdateTick:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			u.Tick = v
			return n, nil
		case typ == protowire.BytesType && num == fieldUpdateWater:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			st, err := DecodeStorage(v)
			if err != nil {
				return 0, err
			}
			u.Water = st
			return n, nil
		case typ == protowire.BytesType && num == fieldUpdateMesh:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			if len(v)%4 != 0 {
				return 0, fmt.Errorf("%w: mesh length %d", ErrCorrupt, len(v))
			}
			for len(v) > 0 {
				f, m := protowire.ConsumeFixed32(v)
				u.Mesh = append(u.Mesh, math.Float32frombits(f))
				v = v[m:]
			}
			return n, nil
		}
		return skip(num, typ, b)
	})
	return u, err
}

// walk calls fn for every field in b. fn consumes the field value and returns
// its length.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			if errors.Is(err, ErrCorrupt) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		b = b[m:]
	}
	return nil
}

// skip consumes a field the decoder does not know.
func skip(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, nil
}
