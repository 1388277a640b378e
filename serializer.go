package rewind

import (
	"bytes"
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/TheBitDrifter/rewind/arena"
)

const (
	serialMagic   = uint32(0x444e5752) // "RWND"
	serialVersion = uint16(1)
)

// fieldCodec packs one part of a state. Fields are written in id order and each is framed with
// its id and length, so a reader can reject missing or unknown fields.
type fieldCodec struct {
	id     uint8
	name   string
	encode func(s *State) ([]byte, error)
	decode func(s *State, data []byte) error
}

var fieldCodecs = []fieldCodec{
	{id: 1, name: "schema", encode: encodeSchema, decode: decodeSchema},
	{id: 2, name: "world", encode: encodeWorld, decode: decodeWorld},
	{id: 3, name: "tick", encode: encodeTick, decode: decodeTick},
	{id: 4, name: "random", encode: encodeRandom, decode: decodeRandom},
	{id: 5, name: "count", encode: encodeCount, decode: decodeCount},
	{id: 6, name: "root", encode: encodeRoot, decode: decodeRoot},
	{id: 7, name: "arena", encode: encodeArena, decode: decodeArena},
}

// Serialize packs the whole state into an opaque buffer that only Deserialize on a state of the
// same schema understands.
func (s *State) Serialize() ([]byte, error) {
	s.Initialize()
	s.Merge()
	buf := binary.LittleEndian.AppendUint32(nil, serialMagic)
	buf = binary.LittleEndian.AppendUint16(buf, serialVersion)
	for _, f := range fieldCodecs {
		data, err := f.encode(s)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to encode %s", f.name)
		}
		buf = append(buf, f.id)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(data)))
		buf = append(buf, data...)
	}
	return buf, nil
}

// Deserialize replaces the content of s with a buffer produced by Serialize. A malformed
// envelope, a foreign schema or a corrupt arena leave s unchanged; later field errors leave it
// reset. Watched components and installed hooks are kept and archetype bits are rebuilt.
func (s *State) Deserialize(data []byte) error {
	fields, err := splitFields(data)
	if err != nil {
		return err
	}
	if err := decodeSchema(s, fields[1]); err != nil {
		return err
	}
	scratch := arena.New(0)
	if err := scratch.UnmarshalBinary(fields[7]); err != nil {
		return eris.Wrap(ErrCorruptBuffer, err.Error())
	}

	if s.initialized {
		s.recycleTable()
	}
	s.arena.CopyFrom(scratch)
	for _, f := range fieldCodecs {
		if f.id == 1 || f.id == 7 {
			continue
		}
		if err := f.decode(s, fields[f.id]); err != nil {
			s.reset()
			return eris.Wrapf(err, "failed to decode %s", f.name)
		}
	}
	s.initialized = true
	s.dirty = s.dirty[:0]
	s.rebuildArchetypes()

	logger().Debug().
		Uint64("tick", s.tick).
		Int("entities", s.EntityCount()).
		Int64("components", s.ComponentCount()).
		Int("bytes", len(data)).
		Msg("state deserialized")
	return nil
}

func splitFields(data []byte) (map[uint8][]byte, error) {
	if len(data) < 6 || binary.LittleEndian.Uint32(data) != serialMagic {
		return nil, eris.Wrap(ErrCorruptBuffer, "missing header")
	}
	if v := binary.LittleEndian.Uint16(data[4:]); v != serialVersion {
		return nil, eris.Wrapf(ErrCorruptBuffer, "unsupported version %d", v)
	}
	fields := make(map[uint8][]byte, len(fieldCodecs))
	rest := data[6:]
	for len(rest) > 0 {
		if len(rest) < 5 {
			return nil, eris.Wrap(ErrCorruptBuffer, "truncated field header")
		}
		id, n := rest[0], int(binary.LittleEndian.Uint32(rest[1:]))
		rest = rest[5:]
		if n > len(rest) {
			return nil, eris.Wrapf(ErrCorruptBuffer, "field %d declares %d bytes, %d left", id, n, len(rest))
		}
		fields[id] = rest[:n]
		rest = rest[n:]
	}
	for _, f := range fieldCodecs {
		if _, ok := fields[f.id]; !ok {
			return nil, eris.Wrapf(ErrCorruptBuffer, "missing field %s", f.name)
		}
	}
	return fields, nil
}

func encodeSchema(s *State) ([]byte, error) {
	return s.schema.Fingerprint()
}

func decodeSchema(s *State, data []byte) error {
	fp, err := s.schema.Fingerprint()
	if err != nil {
		return err
	}
	if !bytes.Equal(fp, data) {
		return ErrSchemaMismatch
	}
	return nil
}

func encodeWorld(s *State) ([]byte, error) {
	return s.worldID.MarshalBinary()
}

func decodeWorld(s *State, data []byte) error {
	var id uuid.UUID
	if err := id.UnmarshalBinary(data); err != nil {
		return eris.Wrap(ErrCorruptBuffer, err.Error())
	}
	s.worldID = id
	return nil
}

func encodeTick(s *State) ([]byte, error) {
	return binary.LittleEndian.AppendUint64(nil, s.tick), nil
}

func decodeTick(s *State, data []byte) error {
	if len(data) != 8 {
		return eris.Wrap(ErrCorruptBuffer, "tick")
	}
	s.tick = binary.LittleEndian.Uint64(data)
	return nil
}

func encodeRandom(s *State) ([]byte, error) {
	return s.pcg.MarshalBinary()
}

func decodeRandom(s *State, data []byte) error {
	if err := s.pcg.UnmarshalBinary(data); err != nil {
		return eris.Wrap(ErrCorruptBuffer, err.Error())
	}
	return nil
}

func encodeCount(s *State) ([]byte, error) {
	return binary.LittleEndian.AppendUint64(nil, uint64(s.count.Load())), nil
}

func decodeCount(s *State, data []byte) error {
	if len(data) != 8 {
		return eris.Wrap(ErrCorruptBuffer, "component count")
	}
	s.count.Store(int64(binary.LittleEndian.Uint64(data)))
	return nil
}

func encodeRoot(s *State) ([]byte, error) {
	return binary.LittleEndian.AppendUint64(nil, uint64(s.root)), nil
}

func decodeRoot(s *State, data []byte) error {
	if len(data) != 8 {
		return eris.Wrap(ErrCorruptBuffer, "root handle")
	}
	root := arena.MemPtr(binary.LittleEndian.Uint64(data))
	if root == arena.Null || int(root) >= s.arena.Len() {
		return eris.Wrapf(ErrCorruptBuffer, "root handle %d outside arena", root)
	}
	s.root = root
	return nil
}

func encodeArena(s *State) ([]byte, error) {
	return s.arena.MarshalBinary()
}

func decodeArena(s *State, data []byte) error {
	if err := s.arena.UnmarshalBinary(data); err != nil {
		return eris.Wrap(ErrCorruptBuffer, err.Error())
	}
	return nil
}
