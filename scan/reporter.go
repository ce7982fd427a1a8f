package scan

import (
	"fmt"
	"io"
	"sat/atlas"
	"sort"
	"strings"
)

// Reporter emits one line per match to a sink. The line format is a stable
// contract for scripting consumers:
//
//	[<KIND>] [<osm-id>] [<internal-id>] --> [<shard>:<dataset>] Tags: [k=v, ...]
//
// Tag keys are sorted so that two runs over the same data produce identical
// output.
type Reporter struct {
	sink io.Writer
}

func NewReporter(sink io.Writer) *Reporter {
	return &Reporter{sink: sink}
}

func (r *Reporter) Report(datasetName string, shardName string, entity atlas.Entity) error {
	_, err := fmt.Fprintf(r.sink, "[%s] [%d] [%d] --> [%s:%s] Tags: [%s]\n",
		entity.Kind(), entity.OsmID(), entity.ID(), shardName, datasetName, formatTags(entity.Tags()))
	return err
}

func formatTags(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+tags[key])
	}
	return strings.Join(parts, ", ")
}
