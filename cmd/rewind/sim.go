package main

import (
	"math/rand/v2"

	"github.com/rotisserie/eris"

	"github.com/TheBitDrifter/rewind"
)

type position struct {
	X, Y float64
}

type velocity struct {
	X, Y float64
}

// impulse is an input event. It is queued for the next tick and expires after one.
type impulse struct {
	X, Y float64
}

type ship struct{}

type input struct {
	Thrust, Turn float64
}

// inputs draws the input of a tick from the world seed, so any tick can be replayed.
func inputs(seed uint64) func(tick uint64) input {
	return func(tick uint64) input {
		r := rand.New(rand.NewPCG(seed, tick))
		return input{Thrust: r.Float64()*2 - 1, Turn: r.Float64()*2 - 1}
	}
}

type world struct {
	schema     *rewind.Schema
	position   rewind.ComponentType[position]
	velocity   rewind.ComponentType[velocity]
	impulse    rewind.ComponentType[impulse]
	ship       rewind.ComponentType[ship]
	movers     rewind.QueryNode
	thrusters  rewind.QueryNode
	spawnEvery uint64
	player     rewind.Entity
}

func newWorld(spawnEvery int) *world {
	schema := rewind.Factory.NewSchema()
	w := &world{
		schema:     schema,
		position:   rewind.FactoryNewComponent[position](schema),
		velocity:   rewind.FactoryNewComponent[velocity](schema),
		impulse:    rewind.FactoryNewComponent[impulse](schema, rewind.WithSparseStorage()),
		ship:       rewind.FactoryNewComponent[ship](schema),
		spawnEvery: uint64(spawnEvery),
	}
	w.movers = rewind.Factory.NewQuery().And(w.position, w.velocity)
	w.thrusters = rewind.Factory.NewQuery().And(w.impulse, w.velocity)
	return w
}

// populate creates the player ship and n drifting entities.
func (w *world) populate(s *rewind.State, n int, seed uint64) error {
	s.Seed(seed)
	players, err := s.NewEntities(1, w.position, w.velocity, w.ship)
	if err != nil {
		return eris.Wrap(err, "failed to create player")
	}
	w.player = players[0]
	for i := 1; i < n; i++ {
		if err := w.spawn(s); err != nil {
			return err
		}
	}
	return nil
}

func (w *world) spawn(s *rewind.State) error {
	r := s.Random()
	entities, err := s.NewEntities(1, w.position, w.velocity)
	if err != nil {
		return eris.Wrap(err, "failed to spawn")
	}
	e := entities[0]
	if err := w.position.Set(s, e, position{X: r.Float64() * 100, Y: r.Float64() * 100}); err != nil {
		return err
	}
	return w.velocity.Set(s, e, velocity{X: r.Float64() - 0.5, Y: r.Float64() - 0.5})
}

// step advances s by one tick under in.
func (w *world) step(s *rewind.State, in input) error {
	s.PlayTasksForTick()

	cursor := rewind.Factory.NewCursor(w.thrusters, s)
	for cursor.Next() {
		imp := w.impulse.GetFromCursor(cursor)
		vel := w.velocity.GetFromCursor(cursor)
		vel.X += imp.X
		vel.Y += imp.Y
	}
	cursor.Close()

	cursor = rewind.Factory.NewCursor(w.movers, s)
	for cursor.Next() {
		pos := w.position.GetFromCursor(cursor)
		vel := w.velocity.GetFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
	}
	cursor.Close()

	s.UseLifetimeStep(rewind.NotifyAllSystemsBelow)

	if in != (input{}) {
		imp := impulse{X: in.Thrust, Y: in.Turn}
		if err := w.impulse.SetWithLifetime(s, w.player, imp, rewind.NotifyAllSystems); err != nil {
			return eris.Wrapf(err, "tick %d: failed to queue input", s.Tick())
		}
	}

	if w.spawnEvery > 0 && s.Tick()%w.spawnEvery == 0 {
		if err := w.cull(s); err != nil {
			return err
		}
		if err := w.spawn(s); err != nil {
			return err
		}
	}

	s.SetTick(s.Tick() + 1)
	return nil
}

// cull destroys one random drifting entity, if the drawn id is alive.
func (w *world) cull(s *rewind.State) error {
	id := s.Random().Uint32N(uint32(s.EntityCapacity()))
	e := s.EntityByID(id)
	if e.IsEmpty() || e == w.player || e == s.Shared() {
		return nil
	}
	return s.DestroyEntity(e)
}
