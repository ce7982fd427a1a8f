package join

import (
	"github.com/paulmach/orb"
	"os"
	"path/filepath"
	"sat/atlas"
	"sat/shard"
	"sat/util"
	"testing"
)

func writeShardFile(t *testing.T, folder string, name string, entities ...atlas.Entity) shard.Handle {
	a := atlas.NewAtlas(name, name)
	for _, entity := range entities {
		err := a.Add(entity)
		util.AssertNil(t, err)
	}

	path := filepath.Join(folder, name+shard.ShardFileExtension)
	err := atlas.ClonePacked(a).Save(path)
	util.AssertNil(t, err)

	return shard.Handle{Name: name, Path: path}
}

func testSource(t *testing.T, folder string) []shard.Handle {
	return []shard.Handle{
		writeShardFile(t, folder, "tileA",
			atlas.NewEntity(atlas.KindPoint, 1000000, 1, map[string]string{"amenity": "bench"}, orb.Point{9.1, 53.5}),
		),
		writeShardFile(t, folder, "tileB",
			atlas.NewEntity(atlas.KindPoint, 2000000, 2, nil, orb.Point{9.3, 53.7}),
		),
		writeShardFile(t, folder, "tileC",
			atlas.NewEntity(atlas.KindPoint, 3000000, 3, nil, orb.Point{9.5, 53.9}),
			atlas.NewEntity(atlas.KindLine, 4000000, 4, nil, orb.LineString{{9.5, 53.9}, {9.6, 54.0}}),
		),
	}
}

func TestConsolidate_onlyRegisteredShards(t *testing.T) {
	// Arrange
	source := testSource(t, t.TempDir())
	registry := shard.NewRegistryFromNames([]string{"tileA", "tileC"})
	outputPath := filepath.Join(t.TempDir(), "joined.atlas")

	// Act
	err := Consolidate(source, registry, outputPath)

	// Assert
	util.AssertNil(t, err)

	joined, err := atlas.Load(outputPath)
	util.AssertNil(t, err)
	util.AssertEqual(t, 3, joined.Size())

	_, ok := joined.Entity(atlas.KindPoint, 1000000)
	util.AssertTrue(t, ok)
	_, ok = joined.Entity(atlas.KindPoint, 3000000)
	util.AssertTrue(t, ok)
	_, ok = joined.Entity(atlas.KindLine, 4000000)
	util.AssertTrue(t, ok)

	// tileB was not registered, its entities must not appear.
	_, ok = joined.Entity(atlas.KindPoint, 2000000)
	util.AssertFalse(t, ok)
}

func TestConsolidate_allShardsWhenRegistryHoldsAllNames(t *testing.T) {
	// Arrange
	source := testSource(t, t.TempDir())
	registry := shard.NewRegistry()
	for _, handle := range source {
		registry.Add(handle.Name)
	}
	outputPath := filepath.Join(t.TempDir(), "joined.atlas")

	// Act
	err := Consolidate(source, registry, outputPath)

	// Assert
	util.AssertNil(t, err)

	joined, err := atlas.Load(outputPath)
	util.AssertNil(t, err)
	util.AssertEqual(t, 4, joined.Size())
}

func TestConsolidate_emptyRegistrySkipsWrite(t *testing.T) {
	// Arrange
	source := testSource(t, t.TempDir())
	outputPath := filepath.Join(t.TempDir(), "joined.atlas")

	// Act
	err := Consolidate(source, shard.NewRegistry(), outputPath)

	// Assert
	util.AssertNil(t, err)
	_, err = os.Stat(outputPath)
	util.AssertTrue(t, os.IsNotExist(err))
}

func TestConsolidate_isIdempotent(t *testing.T) {
	// Arrange
	source := testSource(t, t.TempDir())
	registry := shard.NewRegistryFromNames([]string{"tileA", "tileB"})
	folder := t.TempDir()
	pathFirst := filepath.Join(folder, "first.atlas")
	pathSecond := filepath.Join(folder, "second.atlas")

	// Act
	err := Consolidate(source, registry, pathFirst)
	util.AssertNil(t, err)
	err = Consolidate(source, registry, pathSecond)
	util.AssertNil(t, err)

	// Assert
	bytesFirst, err := os.ReadFile(pathFirst)
	util.AssertNil(t, err)
	bytesSecond, err := os.ReadFile(pathSecond)
	util.AssertNil(t, err)
	util.AssertEqual(t, bytesFirst, bytesSecond)
}

func TestConsolidate_createsParentFolders(t *testing.T) {
	// Arrange
	source := testSource(t, t.TempDir())
	registry := shard.NewRegistryFromNames([]string{"tileA"})
	outputPath := filepath.Join(t.TempDir(), "nested", "deeper", "joined.atlas")

	// Act
	err := Consolidate(source, registry, outputPath)

	// Assert
	util.AssertNil(t, err)
	_, err = os.Stat(outputPath)
	util.AssertNil(t, err)
}

func TestConsolidate_missingShardFileIsFatal(t *testing.T) {
	// Arrange
	source := testSource(t, t.TempDir())
	source = append(source, shard.Handle{Name: "tileD", Path: filepath.Join(t.TempDir(), "tileD.atlas")})
	registry := shard.NewRegistryFromNames([]string{"tileA", "tileD"})
	outputPath := filepath.Join(t.TempDir(), "joined.atlas")

	// Act
	err := Consolidate(source, registry, outputPath)

	// Assert
	util.AssertNotNil(t, err)
}
