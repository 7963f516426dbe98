package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRoleName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   *string
		want []*string
	}{
		{name: "absent", in: nil, want: []*string{nil}},
		{name: "single", in: strPtr("Hero"), want: []*string{strPtr("Hero")}},
		{name: "combined", in: strPtr("actor / producer"), want: []*string{strPtr("actor"), strPtr("producer")}},
		{name: "empty", in: strPtr(""), want: []*string{strPtr("")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SplitRoleName(tt.in))
		})
	}
}

func TestAggregateRelationsAllocatesAndForwardReserves(t *testing.T) {
	t.Parallel()

	f := NewFrontier()
	f.Discover(KindMovie, "M1")
	tables := newRelationTables()
	person := NodeRef{Kind: KindPerson, URL: "P1", ID: 1}

	page := fakePerson{professions: []fakeProfession{
		{name: "actor", rating: 6.5, roles: []RoleRef{
			{MovieURL: "M1", Name: strPtr("Hero")},
			{MovieURL: "M2", Name: strPtr("Hero/Villain")},
		}},
		{name: "actor"},
		{name: "writer", roles: []RoleRef{{MovieURL: "M2"}}},
	}}

	records, err := aggregateRelations(person, page, tables, f)
	require.NoError(t, err)

	rating := 6.5
	assert.Equal(t, []Record{
		Profession{ID: 1, Name: "actor"},
		PersonProfession{ID: 1, PersonID: 1, ProfessionID: 1, Rating: &rating},
		Profession{ID: 2, Name: "writer"},
		PersonProfession{ID: 2, PersonID: 1, ProfessionID: 2},
		Role{ID: 1, PersonProfessionID: 1, MovieID: 1, Name: strPtr("Hero")},
		Role{ID: 2, PersonProfessionID: 1, MovieID: 2, Name: strPtr("Hero")},
		Role{ID: 3, PersonProfessionID: 1, MovieID: 2, Name: strPtr("Villain")},
		Role{ID: 4, PersonProfessionID: 2, MovieID: 2},
	}, records)

	// M2 was only referenced by a role: registered and queued exactly once.
	assert.Equal(t, []NodeRef{
		{Kind: KindMovie, URL: "M1", ID: 1},
		{Kind: KindMovie, URL: "M2", ID: 2},
	}, f.Queued(KindMovie))
	assert.Equal(t, Counters{Profession: 2, PersonProfession: 2, Role: 4}, tables.counters)

	// A second person reuses the profession id.
	records, err = aggregateRelations(NodeRef{Kind: KindPerson, URL: "P2", ID: 2},
		fakePerson{professions: []fakeProfession{{name: "writer"}}}, tables, f)
	require.NoError(t, err)
	assert.Equal(t, []Record{PersonProfession{ID: 3, PersonID: 2, ProfessionID: 2}}, records)
}

func TestAggregateRelationsStructureErrors(t *testing.T) {
	t.Parallel()

	f := NewFrontier()
	tables := newRelationTables()
	person := NodeRef{Kind: KindPerson, URL: "P1", ID: 1}

	_, err := aggregateRelations(person, fakePerson{structErr: ErrStructureUnrecognized}, tables, f)
	require.ErrorIs(t, err, ErrStructureUnrecognized)
	assert.Equal(t, Counters{}, tables.counters)

	page := missingRoles{fakePerson{professions: []fakeProfession{{name: "actor"}}}}
	records, err := aggregateRelations(person, page, tables, f)
	require.True(t, errors.Is(err, ErrStructureUnrecognized))
	assert.Len(t, records, 2)
}

type missingRoles struct{ fakePerson }

func (missingRoles) ProfessionRoles(string) ([]RoleRef, error) {
	return nil, ErrStructureUnrecognized
}

func TestAggregateRelationsRepeatedProfessionIsOneRow(t *testing.T) {
	t.Parallel()

	f := NewFrontier()
	tables := newRelationTables()
	page := fakePerson{professions: []fakeProfession{
		{name: "aktor", roles: []RoleRef{{MovieURL: "M1", Name: strPtr("Kaowiec")}}},
		{name: "scenarzysta"},
		{name: "aktor"},
	}}

	records, err := aggregateRelations(NodeRef{Kind: KindPerson, URL: "P1", ID: 1}, page, tables, f)
	require.NoError(t, err)

	var links []Record
	for _, r := range records {
		if r.Table() == TablePersonProfessions {
			links = append(links, r)
		}
	}
	assert.Equal(t, []Record{
		PersonProfession{ID: 1, PersonID: 1, ProfessionID: 1},
		PersonProfession{ID: 2, PersonID: 1, ProfessionID: 2},
	}, links)
	assert.Equal(t, 1, tables.counters.Role, "roles of a repeated label are emitted once")
}
