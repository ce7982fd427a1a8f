package atlas

import (
	"github.com/pkg/errors"
)

// UnknownShardName is reported when a shard file carries no shard-name metadata.
const UnknownShardName = "UNKNOWN"

// View is a read-only dataset of entities. It is implemented by the
// single-shard Atlas, the composed MultiAtlas and the PackedAtlas.
type View interface {
	// Name returns the dataset name, for a shard file this is the file stem.
	Name() string
	// ShardName returns the tile name from the dataset metadata or
	// UnknownShardName if the metadata carries none.
	ShardName() string
	// Entities returns all entities in the dataset's native iteration order.
	Entities() []Entity
	// Entity looks up a single entity by kind and internal id.
	Entity(kind EntityKind, id int64) (Entity, bool)
	Size() int
}

type entityKey struct {
	kind EntityKind
	id   int64
}

// Atlas is one shard's worth of entities, held in insertion order with an
// id-lookup on top. It is append-only until handed to a reader and must not be
// mutated afterwards.
type Atlas struct {
	name      string
	shardName string
	entities  []Entity
	byKey     map[entityKey]int
}

func NewAtlas(name string, shardName string) *Atlas {
	if shardName == "" {
		shardName = UnknownShardName
	}
	return &Atlas{
		name:      name,
		shardName: shardName,
		byKey:     map[entityKey]int{},
	}
}

func (a *Atlas) Name() string {
	return a.name
}

func (a *Atlas) ShardName() string {
	return a.shardName
}

func (a *Atlas) Entities() []Entity {
	return a.entities
}

func (a *Atlas) Entity(kind EntityKind, id int64) (Entity, bool) {
	index, ok := a.byKey[entityKey{kind: kind, id: id}]
	if !ok {
		return nil, false
	}
	return a.entities[index], true
}

func (a *Atlas) Size() int {
	return len(a.entities)
}

// Add appends an entity. Adding a second entity with the same kind and id is
// an error, one shard must not contain duplicate identifiers.
func (a *Atlas) Add(entity Entity) error {
	key := entityKey{kind: entity.Kind(), id: entity.ID()}
	if _, ok := a.byKey[key]; ok {
		return errors.Errorf("Duplicate entity %s %d in atlas %s", entity.Kind(), entity.ID(), a.name)
	}
	a.byKey[key] = len(a.entities)
	a.entities = append(a.entities, entity)
	return nil
}
