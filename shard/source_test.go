package shard

import (
	"os"
	"path/filepath"
	"sat/util"
	"testing"
)

func touchFile(t *testing.T, path string) string {
	err := os.WriteFile(path, []byte{}, 0644)
	util.AssertNil(t, err)
	return path
}

func TestResolve_expandsFoldersInOrder(t *testing.T) {
	// Arrange
	folder := t.TempDir()
	touchFile(t, filepath.Join(folder, "tileB.atlas"))
	touchFile(t, filepath.Join(folder, "tileA.atlas"))
	touchFile(t, filepath.Join(folder, "notes.txt"))

	// Act
	handles, err := Resolve([]string{folder})

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, 2, len(handles))
	util.AssertEqual(t, "tileA", handles[0].Name)
	util.AssertEqual(t, "tileB", handles[1].Name)
}

func TestResolve_mixesFilesAndFolders(t *testing.T) {
	// Arrange
	folder := t.TempDir()
	singleFile := touchFile(t, filepath.Join(folder, "single.atlas"))
	subFolder := filepath.Join(folder, "tiles")
	err := os.Mkdir(subFolder, os.ModePerm)
	util.AssertNil(t, err)
	touchFile(t, filepath.Join(subFolder, "tileA.atlas"))

	// Act
	handles, err := Resolve([]string{singleFile, subFolder})

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, 2, len(handles))
	util.AssertEqual(t, "single", handles[0].Name)
	util.AssertEqual(t, "tileA", handles[1].Name)
}

func TestResolve_rejectsDuplicateShardNames(t *testing.T) {
	// Arrange
	folderA := t.TempDir()
	folderB := t.TempDir()
	fileA := touchFile(t, filepath.Join(folderA, "tileA.atlas"))
	fileB := touchFile(t, filepath.Join(folderB, "tileA.atlas"))

	// Act
	handles, err := Resolve([]string{fileA, fileB})

	// Assert
	util.AssertNotNil(t, err)
	util.AssertEqual(t, 0, len(handles))
}

func TestResolve_errorCases(t *testing.T) {
	// No inputs at all
	handles, err := Resolve(nil)
	util.AssertError(t, "At least one shard file or directory is required", err)
	util.AssertEqual(t, 0, len(handles))

	// Missing file
	handles, err = Resolve([]string{filepath.Join(t.TempDir(), "missing.atlas")})
	util.AssertNotNil(t, err)
	util.AssertEqual(t, 0, len(handles))

	// Folder without shard files
	handles, err = Resolve([]string{t.TempDir()})
	util.AssertError(t, "No .atlas files found in the given inputs", err)
	util.AssertEqual(t, 0, len(handles))
}
