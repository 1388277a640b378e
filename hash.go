package rewind

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/TheBitDrifter/rewind/arena"
)

// GetHash fingerprints the state for divergence checks between replicas. It combines the tick,
// the live component count, the random generator position and the storage content. It is fast,
// not collision resistant.
func (s *State) GetHash() uint64 {
	rng, err := s.pcg.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return s.tick ^ uint64(s.count.Load()) ^ xxhash.Sum64(rng) ^ s.storageHash()
}

func (s *State) storageHash() uint64 {
	if !s.initialized {
		return 0
	}
	a := s.arena
	d := xxhash.New()
	ed := s.entityData()
	var buf [16]byte
	for id := 0; id < int(ed.nextID); id++ {
		binary.LittleEndian.PutUint32(buf[0:], ed.generations.Read(a, id))
		binary.LittleEndian.PutUint64(buf[4:], ed.versions.Read(a, id))
		buf[12] = 0
		if ed.alive.Read(a, id) {
			buf[12] = 1
		}
		_, _ = d.Write(buf[:13])
	}
	for id, info := range s.schema.byAll {
		if info == nil {
			continue
		}
		if reg := s.registry(AllTypeID(id)); reg != arena.Null {
			info.ops.hash(a, reg, d)
		}
	}
	return d.Sum64()
}
