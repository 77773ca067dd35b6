package deduplication

import (
	"errors"
	"fmt"
	"math"

	"github.com/jmylchreest/streamfold/internal/models"
)

// ErrDedupPolicy is returned when a per_service or per_addon bucket holds a
// stream without a service or addon.
var ErrDedupPolicy = errors.New("deduplication policy not applicable")

// DefaultKeys are used when the configuration names no detection keys.
var DefaultKeys = []string{models.DedupKeyFilename, models.DedupKeyInfoHash}

const (
	bucketCached   = "cached"
	bucketUncached = "uncached"
)

// Deduplicator collapses duplicate streams according to one user
// configuration.
type Deduplicator struct {
	userData *models.UserData
	config   models.Deduplicator
	keys     []keyFunc
}

// NewDeduplicator returns a Deduplicator for userData. Unknown key names are
// ignored; validation rejects them earlier.
func NewDeduplicator(userData *models.UserData) *Deduplicator {
	d := &Deduplicator{userData: userData}
	if userData.Deduplicator != nil {
		d.config = *userData.Deduplicator
	}
	names := d.config.Keys
	if len(names) == 0 {
		names = DefaultKeys
	}
	for _, name := range names {
		if fn, ok := keyFuncs[name]; ok {
			d.keys = append(d.keys, fn)
		}
	}
	return d
}

// Enabled reports whether the configuration turns deduplication on.
func (d *Deduplicator) Enabled() bool {
	return d.config.Enabled
}

// Deduplicate returns the surviving streams in input order. Streams are
// duplicates when they share any fingerprint, transitively.
func (d *Deduplicator) Deduplicate(streams []*models.ParsedStream) ([]*models.ParsedStream, error) {
	if !d.config.Enabled || len(streams) < 2 {
		return streams, nil
	}

	set := newDisjointSet(len(streams))
	for _, key := range d.keys {
		first := make(map[string]int32)
		for i, s := range streams {
			fp := key(s)
			if fp == "" {
				continue
			}
			if j, ok := first[fp]; ok {
				set.union(j, int32(i))
			} else {
				first[fp] = int32(i)
			}
		}
	}

	keep := make([]bool, len(streams))
	for _, group := range set.groups() {
		if len(group) == 1 {
			keep[group[0]] = true
			continue
		}
		if err := d.resolveGroup(streams, group, keep); err != nil {
			return nil, err
		}
	}

	out := make([]*models.ParsedStream, 0, len(streams))
	for i, s := range streams {
		if keep[i] {
			out = append(out, s)
		}
	}
	return out, nil
}

// bucket is a type-bucket of one duplicate group.
type bucket struct {
	name    string
	members []int32
}

// resolveGroup marks the survivors of one duplicate group.
func (d *Deduplicator) resolveGroup(streams []*models.ParsedStream, group []int32, keep []bool) error {
	var buckets []*bucket
	byName := make(map[string]*bucket)
	for _, i := range group {
		s := streams[i]
		if s.Addon.ResultPassthrough {
			keep[i] = true
			continue
		}
		name := bucketName(s)
		b, ok := byName[name]
		if !ok {
			b = &bucket{name: name}
			byName[name] = b
			buckets = append(buckets, b)
		}
		b.members = append(b.members, i)
	}

	cached, uncached := byName[bucketCached], byName[bucketUncached]
	if cached != nil && uncached != nil {
		switch d.multiGroupBehaviour() {
		case models.MultiGroupRemoveUncached:
			uncached.members = nil
		case models.MultiGroupRemoveUncachedSameService:
			services := make(map[string]bool, len(cached.members))
			for _, i := range cached.members {
				services[streams[i].ServiceID()] = true
			}
			rest := uncached.members[:0]
			for _, i := range uncached.members {
				if !services[streams[i].ServiceID()] {
					rest = append(rest, i)
				}
			}
			uncached.members = rest
		}
	}

	for _, b := range buckets {
		survivors, err := d.resolveBucket(streams, b)
		if err != nil {
			return err
		}
		for _, i := range survivors {
			keep[i] = true
		}
	}
	return nil
}

func (d *Deduplicator) multiGroupBehaviour() models.MultiGroupBehaviour {
	if d.config.MultiGroupBehaviour == "" {
		return models.MultiGroupRemoveUncachedSameService
	}
	return d.config.MultiGroupBehaviour
}

// resolveBucket applies the bucket's mode and returns the indices to keep.
func (d *Deduplicator) resolveBucket(streams []*models.ParsedStream, b *bucket) ([]int32, error) {
	if len(b.members) <= 1 {
		return b.members, nil
	}
	withSeeders := b.name == string(models.StreamTypeP2P) || b.name == bucketUncached

	switch mode := d.config.ModeFor(b.name); mode {
	case models.DedupModeDisabled:
		return b.members, nil

	case models.DedupModeSingleResult:
		best := d.best(streams, b.members, func(s *models.ParsedStream) []float64 {
			return []float64{
				d.serviceRank(s),
				seederRank(s, withSeeders),
				d.addonRank(s),
				d.typeRank(s),
			}
		})
		return []int32{best}, nil

	case models.DedupModePerService:
		return d.perPartition(streams, b, "service", (*models.ParsedStream).ServiceID,
			func(s *models.ParsedStream) []float64 {
				return []float64{seederRank(s, withSeeders), d.addonRank(s), d.typeRank(s)}
			})

	case models.DedupModePerAddon:
		return d.perPartition(streams, b, "addon",
			func(s *models.ParsedStream) string { return s.Addon.InstanceID },
			func(s *models.ParsedStream) []float64 {
				return []float64{d.serviceRank(s), seederRank(s, withSeeders)}
			})

	default:
		return nil, fmt.Errorf("%w: unknown mode %q for %s streams", ErrDedupPolicy, mode, b.name)
	}
}

// perPartition keeps the best member for each distinct partition value. Every
// member must have a value.
func (d *Deduplicator) perPartition(
	streams []*models.ParsedStream,
	b *bucket,
	what string,
	partition func(*models.ParsedStream) string,
	score func(*models.ParsedStream) []float64,
) ([]int32, error) {
	var order []string
	parts := make(map[string][]int32)
	for _, i := range b.members {
		key := partition(streams[i])
		if key == "" {
			return nil, fmt.Errorf("%w: %s stream %s has no %s", ErrDedupPolicy, b.name, streams[i].ID, what)
		}
		if _, ok := parts[key]; !ok {
			order = append(order, key)
		}
		parts[key] = append(parts[key], i)
	}

	out := make([]int32, 0, len(order))
	for _, key := range order {
		out = append(out, d.best(streams, parts[key], score))
	}
	return out, nil
}

// best returns the member with the lexicographically lowest score. Ties keep
// the first member.
func (d *Deduplicator) best(streams []*models.ParsedStream, members []int32, score func(*models.ParsedStream) []float64) int32 {
	bestIdx := members[0]
	bestScore := score(streams[bestIdx])
	for _, i := range members[1:] {
		sc := score(streams[i])
		if less(sc, bestScore) {
			bestIdx, bestScore = i, sc
		}
	}
	return bestIdx
}

func less(a, b []float64) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// bucketName returns cached or uncached for streams served through a
// provider, otherwise the stream type.
func bucketName(s *models.ParsedStream) string {
	switch {
	case s.IsCached():
		return bucketCached
	case s.IsUncached():
		return bucketUncached
	default:
		return string(s.Type)
	}
}

func rankOrLast(rank int) float64 {
	if rank < 0 {
		return math.Inf(1)
	}
	return float64(rank)
}

func (d *Deduplicator) serviceRank(s *models.ParsedStream) float64 {
	return rankOrLast(d.userData.ServiceRank(s.ServiceID()))
}

func (d *Deduplicator) addonRank(s *models.ParsedStream) float64 {
	return rankOrLast(d.userData.AddonRank(s.Addon.InstanceID))
}

func (d *Deduplicator) typeRank(s *models.ParsedStream) float64 {
	return rankOrLast(d.userData.StreamTypeRank(s.Type))
}

// seederRank orders by seeders descending. It is flat when seeders do not
// apply to the bucket, and unknown counts sort last.
func seederRank(s *models.ParsedStream, applies bool) float64 {
	if !applies {
		return 0
	}
	n, ok := s.Seeders()
	if !ok {
		return math.Inf(1)
	}
	return -float64(n)
}
