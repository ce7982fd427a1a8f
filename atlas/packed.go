package atlas

import (
	"bufio"
	"encoding/binary"
	"github.com/hauke96/sigolo/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Packed shard files are gzip streams containing a little-endian binary
// layout: magic, format version, dataset name, shard name and the entity
// records in their native order.
const packedMagic = "SATL"
const packedFormatVersion = byte(1)

// PackedAtlas is the persistable form of a view: an owned, immutable snapshot
// decoupled from the shard handles the view was composed of.
type PackedAtlas struct {
	name      string
	shardName string
	entities  []Entity
}

// ClonePacked deep-copies the given view into a PackedAtlas. Tag maps and
// geometries are copied so that the result shares no memory with the source.
func ClonePacked(view View) *PackedAtlas {
	packed := &PackedAtlas{
		name:      view.Name(),
		shardName: view.ShardName(),
	}

	for _, entity := range view.Entities() {
		tags := make(map[string]string, len(entity.Tags()))
		for key, value := range entity.Tags() {
			tags[key] = value
		}

		if entity.Kind() == KindRelation {
			relation := entity.(RelationEntity)
			members := make([]RelationMember, len(relation.Members))
			copy(members, relation.Members)
			packed.entities = append(packed.entities, RelationEntity{
				abstractEntity: abstractEntity{id: entity.ID(), osmID: entity.OsmID(), tags: tags},
				Members:        members,
			})
			continue
		}

		packed.entities = append(packed.entities, NewEntity(entity.Kind(), entity.ID(), entity.OsmID(), tags, cloneGeometry(entity.Geometry())))
	}

	return packed
}

func cloneGeometry(geometry orb.Geometry) orb.Geometry {
	switch g := geometry.(type) {
	case orb.Point:
		return g
	case orb.LineString:
		cloned := make(orb.LineString, len(g))
		copy(cloned, g)
		return cloned
	case orb.Ring:
		cloned := make(orb.Ring, len(g))
		copy(cloned, g)
		return cloned
	}
	return geometry
}

func (p *PackedAtlas) Name() string {
	return p.name
}

func (p *PackedAtlas) ShardName() string {
	return p.shardName
}

func (p *PackedAtlas) Entities() []Entity {
	return p.entities
}

func (p *PackedAtlas) Entity(kind EntityKind, id int64) (Entity, bool) {
	for _, entity := range p.entities {
		if entity.Kind() == kind && entity.ID() == id {
			return entity, true
		}
	}
	return nil, false
}

func (p *PackedAtlas) Size() int {
	return len(p.entities)
}

// Save writes the packed form to the given path, creating parent directories
// as needed. An existing file is overwritten.
func (p *PackedAtlas) Save(path string) error {
	sigolo.Debugf("Save packed atlas %s with %d entities to %s", p.name, len(p.entities), path)
	saveStartTime := time.Now()

	err := os.MkdirAll(filepath.Dir(path), os.ModePerm)
	if err != nil {
		return errors.Wrapf(err, "Unable to create output folder for packed atlas file %s", path)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Unable to create packed atlas file %s", path)
	}

	defer func() {
		err = file.Close()
		sigolo.FatalCheck(errors.Wrapf(err, "Unable to close file handle for packed atlas file %s", path))
	}()

	gzipWriter := gzip.NewWriter(file)
	writer := bufio.NewWriter(gzipWriter)

	err = p.write(writer)
	if err != nil {
		return errors.Wrapf(err, "Unable to write packed atlas %s to %s", p.name, path)
	}

	err = writer.Flush()
	if err != nil {
		return errors.Wrapf(err, "Unable to flush packed atlas file %s", path)
	}
	err = gzipWriter.Close()
	if err != nil {
		return errors.Wrapf(err, "Unable to finish gzip stream of packed atlas file %s", path)
	}

	sigolo.Debugf("Saved packed atlas %s in %s", p.name, time.Since(saveStartTime))
	return nil
}

func (p *PackedAtlas) write(writer *bufio.Writer) error {
	_, err := writer.WriteString(packedMagic)
	if err != nil {
		return err
	}
	err = writer.WriteByte(packedFormatVersion)
	if err != nil {
		return err
	}

	err = writeString(writer, p.name)
	if err != nil {
		return err
	}
	err = writeString(writer, p.shardName)
	if err != nil {
		return err
	}

	err = writeUint32(writer, uint32(len(p.entities)))
	if err != nil {
		return err
	}

	for _, entity := range p.entities {
		err = writeEntity(writer, entity)
		if err != nil {
			return errors.Wrapf(err, "Unable to write entity %s %d", entity.Kind(), entity.ID())
		}
	}

	return nil
}

func writeEntity(writer *bufio.Writer, entity Entity) error {
	err := writer.WriteByte(byte(entity.Kind()))
	if err != nil {
		return err
	}
	err = writeInt64(writer, entity.ID())
	if err != nil {
		return err
	}
	err = writeInt64(writer, entity.OsmID())
	if err != nil {
		return err
	}

	// Tags are written in sorted key order so that saving the same view twice
	// produces byte-identical files.
	tags := entity.Tags()
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	err = writeUint32(writer, uint32(len(tags)))
	if err != nil {
		return err
	}
	for _, key := range keys {
		err = writeString(writer, key)
		if err != nil {
			return err
		}
		err = writeString(writer, tags[key])
		if err != nil {
			return err
		}
	}

	if entity.Kind() == KindRelation {
		relation := entity.(RelationEntity)
		err = writeUint32(writer, uint32(len(relation.Members)))
		if err != nil {
			return err
		}
		for _, member := range relation.Members {
			err = writer.WriteByte(byte(member.Kind))
			if err != nil {
				return err
			}
			err = writeInt64(writer, member.ID)
			if err != nil {
				return err
			}
			err = writeString(writer, member.Role)
			if err != nil {
				return err
			}
		}
		return nil
	}

	points, err := geometryToPoints(entity)
	if err != nil {
		return err
	}
	err = writeUint32(writer, uint32(len(points)))
	if err != nil {
		return err
	}
	for _, point := range points {
		err = writeFloat64(writer, point.Lon())
		if err != nil {
			return err
		}
		err = writeFloat64(writer, point.Lat())
		if err != nil {
			return err
		}
	}

	return nil
}

func geometryToPoints(entity Entity) ([]orb.Point, error) {
	switch geometry := entity.Geometry().(type) {
	case orb.Point:
		return []orb.Point{geometry}, nil
	case orb.LineString:
		return geometry, nil
	case orb.Ring:
		return geometry, nil
	}
	return nil, errors.Errorf("Unsupported geometry type %T on entity %s %d", entity.Geometry(), entity.Kind(), entity.ID())
}

func pointsToGeometry(kind EntityKind, points []orb.Point) (orb.Geometry, error) {
	switch kind {
	case KindNode, KindPoint:
		if len(points) != 1 {
			return nil, errors.Errorf("Expected exactly one coordinate for %s entity but got %d", kind, len(points))
		}
		return points[0], nil
	case KindEdge, KindLine:
		return orb.LineString(points), nil
	case KindArea:
		return orb.Ring(points), nil
	}
	return nil, errors.Errorf("Unsupported entity kind %d for geometry decoding", kind)
}

// Load reads a packed shard file and returns it as a single-shard view. The
// dataset name is the file stem, the shard name comes from the file metadata.
func Load(path string) (*Atlas, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to open packed atlas file %s", path)
	}

	defer func() {
		err = file.Close()
		sigolo.FatalCheck(errors.Wrapf(err, "Unable to close file handle for packed atlas file %s", path))
	}()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to open gzip stream of packed atlas file %s", path)
	}
	reader := bufio.NewReader(gzipReader)

	a, err := read(reader, fileStem(path))
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to read packed atlas file %s", path)
	}

	// Drain the remaining stream and close the gzip reader so that the CRC
	// checksum in the gzip trailer is actually verified.
	_, err = io.Copy(io.Discard, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "Corrupt gzip stream in packed atlas file %s", path)
	}
	err = gzipReader.Close()
	if err != nil {
		return nil, errors.Wrapf(err, "Corrupt gzip stream in packed atlas file %s", path)
	}

	return a, nil
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func read(reader *bufio.Reader, name string) (*Atlas, error) {
	magic := make([]byte, len(packedMagic))
	_, err := io.ReadFull(reader, magic)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to read file magic")
	}
	if string(magic) != packedMagic {
		return nil, errors.Errorf("Not a packed atlas file: wrong magic %q", string(magic))
	}

	version, err := reader.ReadByte()
	if err != nil {
		return nil, errors.Wrap(err, "Unable to read format version")
	}
	if version != packedFormatVersion {
		return nil, errors.Errorf("Unsupported packed atlas format version %d", version)
	}

	// The stored dataset name is ignored in favor of the file stem, a renamed
	// shard file must be addressable by its current name.
	_, err = readString(reader)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to read dataset name")
	}
	shardName, err := readString(reader)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to read shard name")
	}

	entityCount, err := readUint32(reader)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to read entity count")
	}

	a := NewAtlas(name, shardName)
	for i := uint32(0); i < entityCount; i++ {
		entity, err := readEntity(reader)
		if err != nil {
			return nil, errors.Wrapf(err, "Unable to read entity %d of %d", i+1, entityCount)
		}
		err = a.Add(entity)
		if err != nil {
			return nil, err
		}
	}

	return a, nil
}

func readEntity(reader *bufio.Reader) (Entity, error) {
	kindByte, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if kindByte > byte(KindRelation) {
		return nil, errors.Errorf("Unknown entity kind %d", kindByte)
	}
	kind := EntityKind(kindByte)

	id, err := readInt64(reader)
	if err != nil {
		return nil, err
	}
	osmID, err := readInt64(reader)
	if err != nil {
		return nil, err
	}

	tagCount, err := readUint32(reader)
	if err != nil {
		return nil, err
	}
	tags := make(map[string]string, tagCount)
	for i := uint32(0); i < tagCount; i++ {
		key, err := readString(reader)
		if err != nil {
			return nil, err
		}
		value, err := readString(reader)
		if err != nil {
			return nil, err
		}
		tags[key] = value
	}

	if kind == KindRelation {
		memberCount, err := readUint32(reader)
		if err != nil {
			return nil, err
		}
		members := make([]RelationMember, 0, memberCount)
		for i := uint32(0); i < memberCount; i++ {
			memberKindByte, err := reader.ReadByte()
			if err != nil {
				return nil, err
			}
			memberID, err := readInt64(reader)
			if err != nil {
				return nil, err
			}
			role, err := readString(reader)
			if err != nil {
				return nil, err
			}
			members = append(members, RelationMember{Kind: EntityKind(memberKindByte), ID: memberID, Role: role})
		}
		return RelationEntity{
			abstractEntity: abstractEntity{id: id, osmID: osmID, tags: tags},
			Members:        members,
		}, nil
	}

	pointCount, err := readUint32(reader)
	if err != nil {
		return nil, err
	}
	points := make([]orb.Point, 0, pointCount)
	for i := uint32(0); i < pointCount; i++ {
		lon, err := readFloat64(reader)
		if err != nil {
			return nil, err
		}
		lat, err := readFloat64(reader)
		if err != nil {
			return nil, err
		}
		points = append(points, orb.Point{lon, lat})
	}

	geometry, err := pointsToGeometry(kind, points)
	if err != nil {
		return nil, err
	}

	return NewEntity(kind, id, osmID, tags, geometry), nil
}

func writeString(writer *bufio.Writer, s string) error {
	err := writeUint32(writer, uint32(len(s)))
	if err != nil {
		return err
	}
	_, err = writer.WriteString(s)
	return err
}

func readString(reader *bufio.Reader) (string, error) {
	length, err := readUint32(reader)
	if err != nil {
		return "", err
	}
	buffer := make([]byte, length)
	_, err = io.ReadFull(reader, buffer)
	if err != nil {
		return "", err
	}
	return string(buffer), nil
}

func writeUint32(writer *bufio.Writer, value uint32) error {
	buffer := make([]byte, 4)
	binary.LittleEndian.PutUint32(buffer, value)
	_, err := writer.Write(buffer)
	return err
}

func readUint32(reader *bufio.Reader) (uint32, error) {
	buffer := make([]byte, 4)
	_, err := io.ReadFull(reader, buffer)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buffer), nil
}

func writeInt64(writer *bufio.Writer, value int64) error {
	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, uint64(value))
	_, err := writer.Write(buffer)
	return err
}

func readInt64(reader *bufio.Reader) (int64, error) {
	buffer := make([]byte, 8)
	_, err := io.ReadFull(reader, buffer)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buffer)), nil
}

func writeFloat64(writer *bufio.Writer, value float64) error {
	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, math.Float64bits(value))
	_, err := writer.Write(buffer)
	return err
}

func readFloat64(reader *bufio.Reader) (float64, error) {
	buffer := make([]byte, 8)
	_, err := io.ReadFull(reader, buffer)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buffer)), nil
}
