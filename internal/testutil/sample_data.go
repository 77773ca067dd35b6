package testutil

import (
	"fmt"
	"math/rand"

	"github.com/jmylchreest/streamfold/internal/models"
)

// Default addon stamped on streams built with NewStream.
const (
	DefaultAddonID   = "addon-streamcast"
	DefaultAddonName = "StreamCast"
)

// Standard fictional names for test data.
// NEVER use real addon, provider or release group names.
var (
	AddonNames = []string{
		"StreamCast",
		"ViewMedia",
		"AeroVision",
		"GlobalStream",
		"CinemaMax",
	}

	ServiceIDs = []string{
		"alphadebrid",
		"betalink",
		"gammabox",
	}

	ReleaseGroups = []string{
		"NOVA",
		"KESTREL",
		"ORBIT",
		"FJORD",
		"EMBER",
	}

	Indexers = []string{
		"TrackerOne",
		"TrackerTwo",
		"NzbPlanet",
	}
)

// SampleAddons returns n enabled addons with fictional names and local manifest urls.
func SampleAddons(n int) []models.Addon {
	out := make([]models.Addon, n)
	for i := range n {
		name := AddonNames[i%len(AddonNames)]
		out[i] = models.Addon{
			InstanceID:  fmt.Sprintf("addon-%d", i),
			Name:        name,
			ManifestURL: fmt.Sprintf("http://127.0.0.1:0/addon-%d/manifest.json", i),
		}
	}
	return out
}

// SampleUserData returns a minimal valid configuration querying n addons.
func SampleUserData(n int) *models.UserData {
	services := make([]models.ServiceConfig, len(ServiceIDs))
	for i, id := range ServiceIDs {
		services[i] = models.ServiceConfig{ID: id}
	}
	return &models.UserData{
		Addons:   SampleAddons(n),
		Services: services,
		PreferredStreamTypes: []models.StreamType{
			models.StreamTypeDebrid, models.StreamTypeUsenet, models.StreamTypeP2P,
		},
	}
}

// SampleDataGenerator generates realistic but fictional streams for testing.
type SampleDataGenerator struct {
	rng *rand.Rand
}

// NewSampleDataGenerator creates a new sample data generator with a random seed.
func NewSampleDataGenerator() *SampleDataGenerator {
	return &SampleDataGenerator{
		rng: rand.New(rand.NewSource(rand.Int63())),
	}
}

// NewSampleDataGeneratorWithSeed creates a new generator with a fixed seed for reproducibility.
func NewSampleDataGeneratorWithSeed(seed int64) *SampleDataGenerator {
	return &SampleDataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (g *SampleDataGenerator) pick(values []string) string {
	return values[g.rng.Intn(len(values))]
}

// RandomStream returns a stream with random attributes. Filenames and sizes
// are drawn from small pools so generated sets contain duplicates.
func (g *SampleDataGenerator) RandomStream(id string) *models.ParsedStream {
	resolution := g.pick([]string{"2160p", "1080p", "720p"})
	quality := g.pick([]string{"BluRay", "WEB-DL", "WEBRip"})
	group := g.pick(ReleaseGroups)
	filename := fmt.Sprintf("Fictional.Film.2021.%s.%s.x265-%s.mkv", resolution, quality, group)
	size := int64(g.rng.Intn(4)+1) * 1_500_000_000

	opts := []StreamOption{
		WithFilename(filename),
		WithSize(size),
		WithResolution(resolution),
		WithQuality(quality),
		WithEncode("HEVC"),
		WithReleaseGroup(group),
		WithLanguages("English"),
		WithIndexer(g.pick(Indexers)),
		WithAddon(fmt.Sprintf("addon-%d", g.rng.Intn(3)), g.pick(AddonNames)),
	}

	switch g.rng.Intn(3) {
	case 0:
		return P2PStream(id, g.rng.Intn(500), opts...)
	case 1:
		return CachedStream(id, g.pick(ServiceIDs), opts...)
	default:
		return UncachedStream(id, g.pick(ServiceIDs), append(opts, WithSeeders(g.rng.Intn(200)))...)
	}
}

// RandomStreams returns count random streams with ids s0..s(count-1).
func (g *SampleDataGenerator) RandomStreams(count int) []*models.ParsedStream {
	out := make([]*models.ParsedStream, count)
	for i := range count {
		out[i] = g.RandomStream(fmt.Sprintf("s%d", i))
	}
	return out
}

// Shuffle returns a shuffled copy of streams.
func (g *SampleDataGenerator) Shuffle(streams []*models.ParsedStream) []*models.ParsedStream {
	out := make([]*models.ParsedStream, len(streams))
	copy(out, streams)
	g.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
