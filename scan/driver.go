package scan

import (
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"sat/shard"
	"time"
)

// Driver runs one scan pass over a shard source: every entity of every shard
// is evaluated against the predicate, matches are reported in shard-arrival
// order (and within a shard in the dataset's native order) and each matching
// shard's name is recorded in the registry. A shard that fails to load aborts
// the whole run, a silently skipped shard would break the registry's
// completeness guarantee the consolidation step relies on.
type Driver struct {
	predicate Predicate
	reporter  *Reporter
}

func NewDriver(predicate Predicate, reporter *Reporter) *Driver {
	return &Driver{
		predicate: predicate,
		reporter:  reporter,
	}
}

// Run scans all shards of the source sequentially and fills the registry.
func (d *Driver) Run(source []shard.Handle, registry *shard.Registry) error {
	d.onStart(source)
	scanStartTime := time.Now()

	matchCount := 0
	for _, handle := range source {
		matches, err := d.onShard(handle, registry)
		if err != nil {
			return err
		}
		matchCount += matches
	}

	d.onFinish(matchCount, registry, time.Since(scanStartTime))
	return nil
}

func (d *Driver) onStart(source []shard.Handle) {
	sigolo.Debugf("Start scanning %d shards", len(source))
}

func (d *Driver) onShard(handle shard.Handle, registry *shard.Registry) (int, error) {
	view, err := handle.Load()
	if err != nil {
		return 0, errors.Wrapf(err, "Unable to load shard %s", handle.Name)
	}

	matchCount := 0
	for _, entity := range view.Entities() {
		if !d.predicate(entity) {
			continue
		}

		err = d.reporter.Report(view.Name(), view.ShardName(), entity)
		if err != nil {
			return 0, errors.Wrapf(err, "Unable to report match in shard %s", handle.Name)
		}

		registry.Add(handle.Name)
		matchCount++
	}

	sigolo.Tracef("Shard %s: %d of %d entities matched", handle.Name, matchCount, view.Size())
	return matchCount, nil
}

func (d *Driver) onFinish(matchCount int, registry *shard.Registry, duration time.Duration) {
	sigolo.Debugf("Scan finished in %s: %d matches in %d shards", duration, matchCount, registry.Size())
}
