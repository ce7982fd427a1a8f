package scan

import (
	"github.com/pkg/errors"
	"sat/atlas"
	"strconv"
	"strings"
)

// IdentifierSet is the immutable set of internal (atlas) identifiers a scan
// searches for. It is built once from configuration before any shard is read.
type IdentifierSet struct {
	ids map[int64]struct{}
}

// ParseIdentifierSet parses a comma-separated list of decimal identifiers.
// An empty list or a non-numeric entry is a configuration error.
func ParseIdentifierSet(commaSeparatedIDs string) (IdentifierSet, error) {
	set := IdentifierSet{ids: map[int64]struct{}{}}

	for _, part := range strings.Split(commaSeparatedIDs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return IdentifierSet{}, errors.Wrapf(err, "Invalid feature identifier '%s'", part)
		}
		set.ids[id] = struct{}{}
	}

	if len(set.ids) == 0 {
		return IdentifierSet{}, errors.New("At least one feature identifier is required")
	}

	return set, nil
}

func (s IdentifierSet) Contains(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

func (s IdentifierSet) Size() int {
	return len(s.ids)
}

// Predicate is a pure, deterministic entity filter. It must not depend on
// scan order and must not have side effects.
type Predicate func(entity atlas.Entity) bool

// IdentifierPredicate matches an entity iff its internal identifier is a
// member of the given set. Matching compares internal ids with exact integer
// equality, the native OSM id plays no role here.
func IdentifierPredicate(set IdentifierSet) Predicate {
	return func(entity atlas.Entity) bool {
		return set.Contains(entity.ID())
	}
}
