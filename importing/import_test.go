package importing

import (
	"os"
	"path/filepath"
	"sat/atlas"
	"sat/util"
	"testing"
)

const testOsmData = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="53.5" lon="9.1">
    <tag k="amenity" v="bench"/>
  </node>
  <node id="2" lat="53.5" lon="9.15"/>
  <node id="3" lat="53.6" lon="9.2"/>
  <node id="4" lat="53.55" lon="9.25"/>
  <way id="10">
    <nd ref="2"/>
    <nd ref="3"/>
    <tag k="highway" v="residential"/>
  </way>
  <way id="11">
    <nd ref="2"/>
    <nd ref="3"/>
    <nd ref="4"/>
    <nd ref="2"/>
    <tag k="building" v="yes"/>
  </way>
  <way id="12">
    <nd ref="3"/>
    <nd ref="4"/>
    <tag k="barrier" v="fence"/>
  </way>
  <relation id="20">
    <member type="way" ref="12" role="outer"/>
    <tag k="type" v="route"/>
  </relation>
</osm>
`

func writeTestOsmFile(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "input.osm")
	err := os.WriteFile(path, []byte(testOsmData), 0644)
	util.AssertNil(t, err)
	return path
}

func TestImport_classifiesEntityKinds(t *testing.T) {
	// Arrange
	inputPath := writeTestOsmFile(t)
	outputPath := filepath.Join(t.TempDir(), "tileA.atlas")

	// Act
	err := Import(inputPath, outputPath, "1-2-3", DefaultLoadOptions())
	util.AssertNil(t, err)

	// Assert
	result, err := atlas.Load(outputPath)
	util.AssertNil(t, err)
	util.AssertEqual(t, "tileA", result.Name())
	util.AssertEqual(t, "1-2-3", result.ShardName())

	// Tagged stand-alone node becomes a POINT with the scaled identifier.
	point, ok := result.Entity(atlas.KindPoint, 1000000)
	util.AssertTrue(t, ok)
	util.AssertEqual(t, int64(1), point.OsmID())
	util.AssertEqual(t, "bench", point.Tags()["amenity"])

	// Endpoints of the routable way become NODEs.
	_, ok = result.Entity(atlas.KindNode, 2000000)
	util.AssertTrue(t, ok)
	_, ok = result.Entity(atlas.KindNode, 3000000)
	util.AssertTrue(t, ok)

	// Highway way becomes an EDGE, closed building way an AREA, the rest a LINE.
	_, ok = result.Entity(atlas.KindEdge, 10000000)
	util.AssertTrue(t, ok)
	_, ok = result.Entity(atlas.KindArea, 11000000)
	util.AssertTrue(t, ok)
	_, ok = result.Entity(atlas.KindLine, 12000000)
	util.AssertTrue(t, ok)

	relation, ok := result.Entity(atlas.KindRelation, 20000000)
	util.AssertTrue(t, ok)
	members := relation.(atlas.RelationEntity).Members
	util.AssertEqual(t, 1, len(members))
	util.AssertEqual(t, atlas.RelationMember{Kind: atlas.KindLine, ID: 12000000, Role: "outer"}, members[0])
}

func TestImport_loadToggles(t *testing.T) {
	// Arrange
	inputPath := writeTestOsmFile(t)
	outputPath := filepath.Join(t.TempDir(), "tileA.atlas")

	options := DefaultLoadOptions()
	options.Points = false
	options.Relations = false

	// Act
	err := Import(inputPath, outputPath, "", options)
	util.AssertNil(t, err)

	// Assert
	result, err := atlas.Load(outputPath)
	util.AssertNil(t, err)

	_, ok := result.Entity(atlas.KindPoint, 1000000)
	util.AssertFalse(t, ok)
	_, ok = result.Entity(atlas.KindRelation, 20000000)
	util.AssertFalse(t, ok)
	_, ok = result.Entity(atlas.KindEdge, 10000000)
	util.AssertTrue(t, ok)

	// Empty shard name falls back to the output file stem.
	util.AssertEqual(t, "tileA", result.ShardName())
}

func TestImport_rejectsUnknownInputFormat(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "input.geojson")
	err := os.WriteFile(path, []byte("{}"), 0644)
	util.AssertNil(t, err)

	// Act
	err = Import(path, filepath.Join(t.TempDir(), "out.atlas"), "", DefaultLoadOptions())

	// Assert
	util.AssertNotNil(t, err)
}
