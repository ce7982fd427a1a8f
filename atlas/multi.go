package atlas

import (
	"github.com/hauke96/sigolo/v2"
	"strings"
)

// MultiAtlas is the logical union of several atlases. Entities are exposed in
// the order the atlases were given, and within one atlas in its native order.
// When two atlases contain an entity with the same kind and internal id, the
// first occurrence wins and later ones are collapsed into it.
type MultiAtlas struct {
	name     string
	entities []Entity
	byKey    map[entityKey]int
}

func NewMultiAtlas(atlases []*Atlas) *MultiAtlas {
	var names []string
	multi := &MultiAtlas{
		byKey: map[entityKey]int{},
	}

	for _, a := range atlases {
		names = append(names, a.Name())
		for _, entity := range a.Entities() {
			key := entityKey{kind: entity.Kind(), id: entity.ID()}
			if _, ok := multi.byKey[key]; ok {
				sigolo.Debugf("Entity %s %d appears in multiple shards, keeping the first occurrence", entity.Kind(), entity.ID())
				continue
			}
			multi.byKey[key] = len(multi.entities)
			multi.entities = append(multi.entities, entity)
		}
	}

	multi.name = strings.Join(names, "+")
	return multi
}

func (m *MultiAtlas) Name() string {
	return m.name
}

// ShardName returns UnknownShardName, a composed view spans multiple shards.
func (m *MultiAtlas) ShardName() string {
	return UnknownShardName
}

func (m *MultiAtlas) Entities() []Entity {
	return m.entities
}

func (m *MultiAtlas) Entity(kind EntityKind, id int64) (Entity, bool) {
	index, ok := m.byKey[entityKey{kind: kind, id: id}]
	if !ok {
		return nil, false
	}
	return m.entities[index], true
}

func (m *MultiAtlas) Size() int {
	return len(m.entities)
}
