package web

import (
	"bytes"
	"github.com/paulmach/orb"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sat/atlas"
	"sat/scan"
	"sat/shard"
	"sat/util"
	"strings"
	"testing"
)

func writeShardFile(t *testing.T, folder string, name string, shardName string, entities ...atlas.Entity) shard.Handle {
	a := atlas.NewAtlas(name, shardName)
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
	handleA := writeShardFile(t, folder, "tileA", "1-2-3",
		atlas.NewEntity(atlas.KindPoint, 1000000, 1, map[string]string{"amenity": "bench"}, orb.Point{9.1, 53.5}),
	)
	handleB := writeShardFile(t, folder, "tileB", "1-2-4",
		atlas.NewEntity(atlas.KindPoint, 2000000, 2, nil, orb.Point{9.3, 53.7}),
	)
	return []shard.Handle{handleA, handleB}
}

func TestFindEndpoint_returnsSameLinesAsScan(t *testing.T) {
	// Arrange
	source := testSource(t, t.TempDir())
	router := initRouter(source)

	set, err := scan.ParseIdentifierSet("1000000,2000000")
	util.AssertNil(t, err)
	buffer := &bytes.Buffer{}
	driver := scan.NewDriver(scan.IdentifierPredicate(set), scan.NewReporter(buffer))
	err = driver.Run(source, shard.NewRegistry())
	util.AssertNil(t, err)

	// Act
	request := httptest.NewRequest(http.MethodPost, "/find", strings.NewReader("1000000,2000000"))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	// Assert
	util.AssertEqual(t, http.StatusOK, recorder.Code)
	util.AssertEqual(t, buffer.String(), recorder.Body.String())
}

func TestFindEndpoint_rejectsMalformedIdentifiers(t *testing.T) {
	// Arrange
	source := testSource(t, t.TempDir())
	router := initRouter(source)

	// Act
	request := httptest.NewRequest(http.MethodPost, "/find", strings.NewReader("abc"))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	// Assert
	util.AssertEqual(t, http.StatusBadRequest, recorder.Code)
}

func TestFindEndpoint_noMatchesIsEmptyBody(t *testing.T) {
	// Arrange
	source := testSource(t, t.TempDir())
	router := initRouter(source)

	// Act
	request := httptest.NewRequest(http.MethodPost, "/find", strings.NewReader("99"))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	// Assert
	util.AssertEqual(t, http.StatusOK, recorder.Code)
	util.AssertEqual(t, "", recorder.Body.String())
}
