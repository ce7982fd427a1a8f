package join

import (
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"sat/atlas"
	"sat/shard"
	"time"
)

// Number of shards loaded concurrently during consolidation. Composition
// itself stays sequential in source order.
const loadConcurrency = 4

// Consolidate re-opens exactly the shards of the source whose name is in the
// registry, composes them into one logical view, clones that view into its
// packed form and writes it to outputPath. Selection is name-based only, a
// shard already known to match is not re-scanned. An empty registry is the
// documented "nothing to join" case and performs no write.
func Consolidate(source []shard.Handle, registry *shard.Registry, outputPath string) error {
	if registry.Empty() {
		sigolo.Info("No shards to join")
		return nil
	}

	var selected []shard.Handle
	for _, handle := range source {
		if registry.Contains(handle.Name) {
			selected = append(selected, handle)
		}
	}

	if len(selected) == 0 {
		sigolo.Info("No shards to join")
		return nil
	}

	sigolo.Infof("Joining %d shards into %s", len(selected), outputPath)
	joinStartTime := time.Now()

	atlases, err := loadSelected(selected)
	if err != nil {
		return err
	}

	multi := atlas.NewMultiAtlas(atlases)
	packed := atlas.ClonePacked(multi)

	err = packed.Save(outputPath)
	if err != nil {
		return errors.Wrapf(err, "Unable to save joined atlas to %s", outputPath)
	}

	sigolo.Infof("Joined %d shards (%d entities) in %s", len(selected), packed.Size(), time.Since(joinStartTime))
	return nil
}

// loadSelected loads the selected shards with bounded parallelism. The result
// keeps the source order of the handles so that composition is deterministic.
func loadSelected(selected []shard.Handle) ([]*atlas.Atlas, error) {
	atlases := make([]*atlas.Atlas, len(selected))

	var group errgroup.Group
	group.SetLimit(loadConcurrency)

	for i, handle := range selected {
		i, handle := i, handle
		group.Go(func() error {
			view, err := handle.Load()
			if err != nil {
				return errors.Wrapf(err, "Unable to load shard %s for joining", handle.Name)
			}
			atlases[i] = view
			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	return atlases, nil
}
