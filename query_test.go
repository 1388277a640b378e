package rewind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQueryFiltering tests the basic query filtering capabilities
func TestQueryFiltering(t *testing.T) {
	w := newTestWorld()
	posComp, velComp, healthComp := w.position, w.velocity, w.health

	type entitySetup struct {
		components []Component
		count      int
	}

	tests := []struct {
		name            string
		entitySetups    []entitySetup
		queryType       string // "and", "or", "not", "complex"
		queryComponents []Component
		expectedMatches int
	}{
		{
			name: "And query matches exact",
			entitySetups: []entitySetup{
				{[]Component{posComp, velComp}, 5},
				{[]Component{posComp}, 10},
				{[]Component{velComp}, 15},
			},
			queryType:       "and",
			queryComponents: []Component{posComp, velComp},
			expectedMatches: 5,
		},
		{
			name: "Or query matches either",
			entitySetups: []entitySetup{
				{[]Component{posComp, velComp}, 5},
				{[]Component{posComp}, 10},
				{[]Component{velComp}, 15},
			},
			queryType:       "or",
			queryComponents: []Component{posComp, velComp},
			expectedMatches: 30, // 5 + 10 + 15
		},
		{
			name: "Not query excludes",
			entitySetups: []entitySetup{
				{[]Component{posComp, velComp}, 5},
				{[]Component{posComp}, 10},
				{[]Component{velComp}, 15},
				{[]Component{healthComp}, 20},
			},
			queryType:       "not",
			queryComponents: []Component{velComp},
			expectedMatches: 30, // 10 + 20
		},
		{
			name: "Complex query",
			entitySetups: []entitySetup{
				{[]Component{posComp, velComp, healthComp}, 5},
				{[]Component{posComp, velComp}, 10},
				{[]Component{posComp, healthComp}, 15},
				{[]Component{velComp, healthComp}, 20},
				{[]Component{posComp}, 25},
				{[]Component{velComp}, 30},
				{[]Component{healthComp}, 35},
			},
			queryType:       "complex",
			queryComponents: []Component{posComp, velComp, healthComp},
			expectedMatches: 30, // (P AND V) OR (P AND H) = 10 + 15 + 5 (counted once)
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Factory.NewState(w.schema)
			for _, setup := range tt.entitySetups {
				if _, err := state.NewEntities(setup.count, setup.components...); err != nil {
					t.Fatalf("Failed to create entities: %v", err)
				}
			}

			query := Factory.NewQuery()
			var queryNode QueryNode
			switch tt.queryType {
			case "and":
				queryNode = query.And(tt.queryComponents)
			case "or":
				queryNode = query.Or(tt.queryComponents)
			case "not":
				queryNode = query.Not(tt.queryComponents)
			case "complex":
				// (Position AND Velocity) OR (Position AND Health)
				queryNode = query.Or(query.And(posComp, velComp), query.And(posComp, healthComp))
			}

			cursor := Factory.NewCursor(queryNode, state)
			defer cursor.Close()
			matchCount := 0
			for cursor.Next() {
				matchCount++
			}

			if matchCount != tt.expectedMatches {
				t.Errorf("Query matched %d entities, want %d", matchCount, tt.expectedMatches)
			}
		})
	}
}

// TestQueryWithCursor tests the cursor-based entity iteration
func TestQueryWithCursor(t *testing.T) {
	w := newTestWorld()
	posComp, velComp, healthComp := w.position, w.velocity, w.health

	tests := []struct {
		name            string
		entityTypes     [][]Component
		queryComponents []Component
		expectedCount   int
	}{
		{
			name:            "Query with position",
			entityTypes:     [][]Component{{posComp}, {posComp, velComp}, {velComp}},
			queryComponents: []Component{posComp},
			expectedCount:   20,
		},
		{
			name:            "Query with position and velocity",
			entityTypes:     [][]Component{{posComp}, {posComp, velComp}, {velComp}},
			queryComponents: []Component{posComp, velComp},
			expectedCount:   10,
		},
		{
			name:            "Query with no matches",
			entityTypes:     [][]Component{{posComp}, {velComp}},
			queryComponents: []Component{healthComp},
			expectedCount:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Factory.NewState(w.schema)
			for _, componentSet := range tt.entityTypes {
				if _, err := state.NewEntities(10, componentSet...); err != nil {
					t.Fatalf("Failed to create entities: %v", err)
				}
			}

			cursor := Factory.NewCursor(Factory.NewQuery().And(tt.queryComponents), state)
			defer cursor.Close()

			if cursor.TotalMatched() != tt.expectedCount {
				t.Errorf("TotalMatched() = %d, want %d", cursor.TotalMatched(), tt.expectedCount)
			}

			count := 0
			var last uint32
			for _, e := range cursor.Entities() {
				if count > 0 && e.ID <= last {
					t.Errorf("Cursor visited id %d after %d", e.ID, last)
				}
				last = e.ID
				for _, c := range tt.queryComponents {
					if !state.HasDataBit(e, c.AllTypeID()) {
						t.Errorf("Entity %v is missing queried component %s", e, c.TypeName())
					}
				}
				count++
			}
			if count != tt.expectedCount {
				t.Errorf("Cursor iterated %d entities, want %d", count, tt.expectedCount)
			}
		})
	}
}

func TestCursorFollowsStructuralChanges(t *testing.T) {
	w := newTestWorld()
	state := Factory.NewState(w.schema)
	entities, err := state.NewEntities(4, w.position)
	require.NoError(t, err)

	cursor := Factory.NewCursor(Factory.NewQuery().And(w.position, w.frozen), state)
	defer cursor.Close()
	assert.Equal(t, 0, cursor.TotalMatched())
	cursor.Reset()

	require.NoError(t, w.frozen.Set(state, entities[1], frozen{}))
	require.NoError(t, w.frozen.Set(state, entities[3], frozen{}))

	var seen []Entity
	for cursor.Next() {
		seen = append(seen, cursor.CurrentEntity())
		p := w.position.GetFromCursor(cursor)
		require.NotNil(t, p)
		p.X = 9
	}
	assert.Equal(t, []Entity{entities[1], entities[3]}, seen)
	got, _ := w.position.Read(state, entities[3])
	assert.Equal(t, 9.0, got.X, "cursor pointers write through")

	require.NoError(t, w.frozen.Remove(state, entities[1]))
	assert.Equal(t, 1, cursor.TotalMatched())
}

func TestCursorSkipsSharedEntity(t *testing.T) {
	w := newTestWorld()
	state := Factory.NewState(w.schema)
	require.NoError(t, w.health.SetShared(state, health{Max: 1}))
	_, err := state.NewEntities(2, w.health)
	require.NoError(t, err)

	cursor := Factory.NewCursor(Factory.NewQuery().And(w.health), state)
	defer cursor.Close()
	assert.Equal(t, 2, cursor.TotalMatched())
}
