package atlas

import (
	"fmt"
	"github.com/paulmach/orb"
)

// EntityKind is an enum for all entity kinds an atlas shard can contain.
type EntityKind int

const (
	KindNode EntityKind = iota
	KindEdge
	KindArea
	KindLine
	KindPoint
	KindRelation
)

func (k EntityKind) String() string {
	switch k {
	case KindNode:
		return "NODE"
	case KindEdge:
		return "EDGE"
	case KindArea:
		return "AREA"
	case KindLine:
		return "LINE"
	case KindPoint:
		return "POINT"
	case KindRelation:
		return "RELATION"
	}
	panic(fmt.Sprintf("[!UNKNOWN EntityKind %d]", k))
}

// Entity is the common capability of all entity kinds: it has a kind, an
// internal (atlas) identifier, a native (OSM) identifier, a tag mapping and a
// geometry. The predicate and the match reporter only ever see this interface.
type Entity interface {
	Kind() EntityKind
	ID() int64
	OsmID() int64
	Tags() map[string]string
	Geometry() orb.Geometry
}

type abstractEntity struct {
	id    int64
	osmID int64
	tags  map[string]string
}

func (e abstractEntity) ID() int64 {
	return e.id
}

func (e abstractEntity) OsmID() int64 {
	return e.osmID
}

func (e abstractEntity) Tags() map[string]string {
	return e.tags
}

// NodeEntity is a routable node, i.e. an endpoint of at least one edge.
type NodeEntity struct {
	abstractEntity
	Location orb.Point
}

func (e NodeEntity) Kind() EntityKind       { return KindNode }
func (e NodeEntity) Geometry() orb.Geometry { return e.Location }

// EdgeEntity is a routable way segment.
type EdgeEntity struct {
	abstractEntity
	Line orb.LineString
}

func (e EdgeEntity) Kind() EntityKind       { return KindEdge }
func (e EdgeEntity) Geometry() orb.Geometry { return e.Line }

// AreaEntity is a closed, area-tagged way.
type AreaEntity struct {
	abstractEntity
	Ring orb.Ring
}

func (e AreaEntity) Kind() EntityKind       { return KindArea }
func (e AreaEntity) Geometry() orb.Geometry { return e.Ring }

// LineEntity is a non-routable, non-area way.
type LineEntity struct {
	abstractEntity
	Line orb.LineString
}

func (e LineEntity) Kind() EntityKind       { return KindLine }
func (e LineEntity) Geometry() orb.Geometry { return e.Line }

// PointEntity is a tagged, stand-alone node.
type PointEntity struct {
	abstractEntity
	Location orb.Point
}

func (e PointEntity) Kind() EntityKind       { return KindPoint }
func (e PointEntity) Geometry() orb.Geometry { return e.Location }

// RelationEntity only carries the member identifiers, not the resolved member
// geometries. Its geometry is the bound of nothing, so it stays nil.
type RelationEntity struct {
	abstractEntity
	Members []RelationMember
}

type RelationMember struct {
	Kind EntityKind
	ID   int64
	Role string
}

func (e RelationEntity) Kind() EntityKind       { return KindRelation }
func (e RelationEntity) Geometry() orb.Geometry { return nil }

func NewRelationEntity(id int64, osmID int64, tags map[string]string, members []RelationMember) RelationEntity {
	if tags == nil {
		tags = map[string]string{}
	}
	return RelationEntity{
		abstractEntity: abstractEntity{id: id, osmID: osmID, tags: tags},
		Members:        members,
	}
}

// NewEntity creates the concrete entity struct for the given kind. The
// geometry parameter must match the kind (points for node/point, line strings
// for edge/line, rings for areas) and is ignored for relations.
func NewEntity(kind EntityKind, id int64, osmID int64, tags map[string]string, geometry orb.Geometry) Entity {
	if tags == nil {
		tags = map[string]string{}
	}
	base := abstractEntity{id: id, osmID: osmID, tags: tags}

	switch kind {
	case KindNode:
		return NodeEntity{abstractEntity: base, Location: geometry.(orb.Point)}
	case KindEdge:
		return EdgeEntity{abstractEntity: base, Line: geometry.(orb.LineString)}
	case KindArea:
		return AreaEntity{abstractEntity: base, Ring: geometry.(orb.Ring)}
	case KindLine:
		return LineEntity{abstractEntity: base, Line: geometry.(orb.LineString)}
	case KindPoint:
		return PointEntity{abstractEntity: base, Location: geometry.(orb.Point)}
	case KindRelation:
		return RelationEntity{abstractEntity: base}
	}
	panic(fmt.Sprintf("[!UNKNOWN EntityKind %d]", kind))
}
