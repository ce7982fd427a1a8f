package importing

import (
	"context"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
	"os"
	"sat/atlas"
	"strings"
	"time"
)

// Internal identifiers are the native OSM id shifted by six decimal digits,
// leaving room for slicing and sectioning suffixes.
const identifierScale = 1_000_000

// LoadOptions controls which entity kinds the importer materializes. All kinds
// are loaded by default.
type LoadOptions struct {
	Nodes     bool // Routable nodes (endpoints of edges). Default: true.
	Edges     bool // Routable (highway-tagged) ways. Default: true.
	Areas     bool // Closed, area-tagged ways. Default: true.
	Lines     bool // Remaining ways. Default: true.
	Points    bool // Tagged, stand-alone OSM nodes. Default: true.
	Relations bool // OSM relations. Default: true.
}

func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Nodes:     true,
		Edges:     true,
		Areas:     true,
		Lines:     true,
		Points:    true,
		Relations: true,
	}
}

// Keys marking a closed way as an area rather than a closed line.
var areaTagKeys = []string{"building", "landuse", "leisure", "natural", "amenity"}

type rawNode struct {
	id       osm.NodeID
	location orb.Point
	tags     map[string]string
}

type rawWay struct {
	id    osm.WayID
	nodes []osm.NodeID
	tags  map[string]string
}

type rawRelation struct {
	id      osm.RelationID
	members osm.Members
	tags    map[string]string
}

// Import reads an .osm or .osm.pbf file, classifies its objects into the six
// entity kinds and writes one packed shard file to outputFile. The shard name
// defaults to the output file stem when empty.
func Import(inputFile string, outputFile string, shardName string, options LoadOptions) error {
	if !strings.HasSuffix(inputFile, ".osm") && !strings.HasSuffix(inputFile, ".pbf") {
		return errors.Errorf("Input file %s must be an .osm or .pbf file", inputFile)
	}

	sigolo.Debugf("Start importing %s", inputFile)
	importStartTime := time.Now()

	nodes, ways, relations, err := readOsmFile(inputFile)
	if err != nil {
		return err
	}

	if shardName == "" {
		shardName = fileStem(outputFile)
	}

	result, err := buildAtlas(fileStem(outputFile), shardName, nodes, ways, relations, options)
	if err != nil {
		return err
	}

	sigolo.Debugf("Created %d entities from OSM data in %s", result.Size(), time.Since(importStartTime))

	return atlas.ClonePacked(result).Save(outputFile)
}

func readOsmFile(inputFile string) ([]*rawNode, []*rawWay, []*rawRelation, error) {
	f, err := os.Open(inputFile)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "Unable to open OSM input file %s", inputFile)
	}
	defer f.Close()

	var scanner osm.Scanner
	if strings.HasSuffix(inputFile, ".osm") {
		scanner = osmxml.New(context.Background(), f)
	} else {
		scanner = osmpbf.New(context.Background(), f, 1)
	}
	defer scanner.Close()

	var nodes []*rawNode
	var ways []*rawWay
	var relations []*rawRelation

	for scanner.Scan() {
		switch osmObj := scanner.Object().(type) {
		case *osm.Node:
			nodes = append(nodes, &rawNode{
				id:       osmObj.ID,
				location: orb.Point{osmObj.Lon, osmObj.Lat},
				tags:     osmObj.Tags.Map(),
			})
		case *osm.Way:
			way := &rawWay{
				id:   osmObj.ID,
				tags: osmObj.Tags.Map(),
			}
			for _, wayNode := range osmObj.Nodes {
				way.nodes = append(way.nodes, wayNode.ID)
			}
			ways = append(ways, way)
		case *osm.Relation:
			relations = append(relations, &rawRelation{
				id:      osmObj.ID,
				members: osmObj.Members,
				tags:    osmObj.Tags.Map(),
			})
		}
	}

	err = scanner.Err()
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "Error while scanning OSM input file %s", inputFile)
	}

	return nodes, ways, relations, nil
}

func buildAtlas(name string, shardName string, nodes []*rawNode, ways []*rawWay, relations []*rawRelation, options LoadOptions) (*atlas.Atlas, error) {
	result := atlas.NewAtlas(name, shardName)

	nodeLocations := map[osm.NodeID]orb.Point{}
	for _, node := range nodes {
		nodeLocations[node.id] = node.location
	}

	// Endpoints of routable ways become NODE entities instead of POINTs.
	routableEndpoints := map[osm.NodeID]struct{}{}
	for _, way := range ways {
		if isRoutable(way) && len(way.nodes) > 0 {
			routableEndpoints[way.nodes[0]] = struct{}{}
			routableEndpoints[way.nodes[len(way.nodes)-1]] = struct{}{}
		}
	}

	for _, node := range nodes {
		id := int64(node.id) * identifierScale
		if _, isEndpoint := routableEndpoints[node.id]; isEndpoint {
			if options.Nodes {
				err := result.Add(atlas.NewEntity(atlas.KindNode, id, int64(node.id), node.tags, node.location))
				if err != nil {
					return nil, err
				}
			}
		} else if len(node.tags) > 0 && options.Points {
			err := result.Add(atlas.NewEntity(atlas.KindPoint, id, int64(node.id), node.tags, node.location))
			if err != nil {
				return nil, err
			}
		}
	}

	for _, way := range ways {
		line := make(orb.LineString, 0, len(way.nodes))
		missingNode := false
		for _, nodeID := range way.nodes {
			location, ok := nodeLocations[nodeID]
			if !ok {
				missingNode = true
				break
			}
			line = append(line, location)
		}
		if missingNode {
			sigolo.Tracef("Skipping way %d referencing nodes outside the input", way.id)
			continue
		}

		id := int64(way.id) * identifierScale
		switch {
		case isRoutable(way):
			if options.Edges {
				err := result.Add(atlas.NewEntity(atlas.KindEdge, id, int64(way.id), way.tags, line))
				if err != nil {
					return nil, err
				}
			}
		case isArea(way):
			if options.Areas {
				err := result.Add(atlas.NewEntity(atlas.KindArea, id, int64(way.id), way.tags, orb.Ring(line)))
				if err != nil {
					return nil, err
				}
			}
		default:
			if options.Lines {
				err := result.Add(atlas.NewEntity(atlas.KindLine, id, int64(way.id), way.tags, line))
				if err != nil {
					return nil, err
				}
			}
		}
	}

	if options.Relations {
		for _, relation := range relations {
			var members []atlas.RelationMember
			for _, member := range relation.members {
				kind, ok := memberKind(member.Type)
				if !ok {
					continue
				}
				members = append(members, atlas.RelationMember{
					Kind: kind,
					ID:   member.Ref * identifierScale,
					Role: member.Role,
				})
			}

			id := int64(relation.id) * identifierScale
			err := result.Add(atlas.NewRelationEntity(id, int64(relation.id), relation.tags, members))
			if err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

func isRoutable(way *rawWay) bool {
	_, ok := way.tags["highway"]
	return ok
}

func isArea(way *rawWay) bool {
	if len(way.nodes) < 4 || way.nodes[0] != way.nodes[len(way.nodes)-1] {
		return false
	}
	if way.tags["area"] == "yes" {
		return true
	}
	for _, key := range areaTagKeys {
		if _, ok := way.tags[key]; ok {
			return true
		}
	}
	return false
}

func memberKind(memberType osm.Type) (atlas.EntityKind, bool) {
	switch memberType {
	case osm.TypeNode:
		return atlas.KindPoint, true
	case osm.TypeWay:
		return atlas.KindLine, true
	case osm.TypeRelation:
		return atlas.KindRelation, true
	}
	return 0, false
}

func fileStem(path string) string {
	base := path
	if idx := strings.LastIndexByte(base, '/'); idx != -1 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndexByte(base, '.'); idx != -1 {
		base = base[:idx]
	}
	return base
}
