package rewind

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/TheBitDrifter/rewind/arena"
)

// task installs a component at a tick or frame boundary. payload holds the value in the
// state's arena and is owned by the task until it runs or is evicted.
type task struct {
	entity   Entity
	allID    AllTypeID
	lifetime Lifetime
	payload  arena.MemPtr
}

func (t task) key() taskKey {
	return taskKey{entity: t.entity, allID: t.allID, lifetime: t.lifetime}
}

type taskKey struct {
	entity   Entity
	allID    AllTypeID
	lifetime Lifetime
}

func (k taskKey) Equals(_ *arena.Arena, other taskKey) bool {
	return k == other
}

func (k taskKey) Hash(_ *arena.Arena) uint32 {
	var buf [13]byte
	binary.LittleEndian.PutUint32(buf[0:], k.entity.ID)
	binary.LittleEndian.PutUint32(buf[4:], k.entity.Generation)
	binary.LittleEndian.PutUint32(buf[8:], uint32(k.allID))
	buf[12] = byte(k.lifetime)
	return uint32(xxhash.Sum64(buf[:]))
}

// enqueue schedules t unless an equal task is already pending. The first value wins.
func (s *State) enqueue(t task, info *componentInfo) bool {
	a := s.arena
	td := s.tableData()
	if td.pending.Contains(a, t.key()) {
		info.ops.freePayload(a, t.payload, true)
		return false
	}
	td.pending.Add(a, t.key())
	if t.lifetime == NotifyAllModulesBelow {
		td.nextFrame.Add(a, t)
	} else {
		td.nextTick.Add(a, t)
	}
	s.setTableData(td)
	return true
}

// PlayTasksForTick installs every component deferred with NotifyAllSystems. Tasks queued while
// draining wait for the next call.
func (s *State) PlayTasksForTick() int {
	return s.drain(false)
}

// PlayTasksForFrame installs every component deferred with NotifyAllModules.
func (s *State) PlayTasksForFrame() int {
	return s.drain(true)
}

func (s *State) queue(td *tableData, frame bool) *arena.List[task] {
	if frame {
		return &td.nextFrame
	}
	return &td.nextTick
}

func (s *State) drain(frame bool) int {
	if !s.initialized {
		return 0
	}
	a := s.arena
	td := s.tableData()
	q := s.queue(&td, frame)
	n := q.Count()
	if n == 0 {
		return 0
	}
	tasks := make([]task, n)
	for i := range tasks {
		tasks[i] = q.Read(a, i)
		td.pending.Remove(a, tasks[i].key())
	}
	q.RemoveRange(a, 0, n)
	s.setTableData(td)

	// the drained tasks are out of the queue, so hooks destroying their entities cannot evict them
	ran := 0
	for _, t := range tasks {
		info := s.schema.byAll[t.allID]
		alive := s.IsAlive(t.entity)
		if alive {
			info.ops.runTask(s, t)
			ran++
		}
		info.ops.freePayload(a, t.payload, !alive)
	}

	logger().Debug().
		Uint64("tick", s.tick).
		Bool("frame", frame).
		Int("tasks", n).
		Int("applied", ran).
		Msg("deferred tasks played")
	return ran
}

// PendingTasks returns the number of queued tick and frame tasks.
func (s *State) PendingTasks() (tick, frame int) {
	if !s.initialized {
		return 0, 0
	}
	td := s.tableData()
	return td.nextTick.Count(), td.nextFrame.Count()
}

// evictTasks drops every queued task addressed to e.
func (s *State) evictTasks(e Entity) {
	for _, frame := range []bool{false, true} {
		td := s.tableData()
		for i := 0; i < s.queue(&td, frame).Count(); {
			q := s.queue(&td, frame)
			t := q.Read(s.arena, i)
			if t.entity != e {
				i++
				continue
			}
			q.RemoveAt(s.arena, i)
			td.pending.Remove(s.arena, t.key())
			s.schema.byAll[t.allID].ops.freePayload(s.arena, t.payload, true)
		}
		s.setTableData(td)
	}
}

// copyTasks replaces the queues in dst with copies of the queues of other.
func (s *State) copyTasks(dst *tableData, other *State, src tableData) {
	a, oa := s.arena, other.arena
	for _, frame := range []bool{false, true} {
		to := s.queue(dst, frame)
		s.releaseTasks(*to)
		to.Clear(a)
		from := s.queue(&src, frame)
		for i := 0; i < from.Count(); i++ {
			t := from.Read(oa, i)
			t.payload = s.schema.byAll[t.allID].ops.clonePayload(a, oa, t.payload)
			to.Add(a, t)
		}
	}
	arena.CopyHashSet(a, &dst.pending, oa, src.pending)
}

func (s *State) releaseTasks(q arena.List[task]) {
	for i := 0; i < q.Count(); i++ {
		t := q.Read(s.arena, i)
		s.schema.byAll[t.allID].ops.freePayload(s.arena, t.payload, true)
	}
}
