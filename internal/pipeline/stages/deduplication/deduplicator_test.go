package deduplication

import (
	"context"
	"testing"

	"github.com/jmylchreest/streamfold/internal/models"
	"github.com/jmylchreest/streamfold/internal/pipeline/core"
	"github.com/jmylchreest/streamfold/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userData(cfg models.Deduplicator) *models.UserData {
	ud := testutil.SampleUserData(3)
	cfg.Enabled = true
	ud.Deduplicator = &cfg
	return ud
}

func dedupIDs(t *testing.T, ud *models.UserData, streams []*models.ParsedStream) []string {
	t.Helper()
	out, err := NewDeduplicator(ud).Deduplicate(streams)
	require.NoError(t, err)
	return testutil.IDs(out)
}

func TestDeduplicate_RemoveUncachedSameService(t *testing.T) {
	ud := userData(models.Deduplicator{
		Keys:                []string{models.DedupKeyFilename},
		MultiGroupBehaviour: models.MultiGroupRemoveUncachedSameService,
	})
	streams := []*models.ParsedStream{
		testutil.CachedStream("cached", "alphadebrid", testutil.WithFilename("Film.2021.1080p.mkv")),
		testutil.UncachedStream("uncached", "alphadebrid", testutil.WithFilename("film 2021 1080p.mp4")),
	}

	assert.Equal(t, []string{"cached"}, dedupIDs(t, ud, streams))
}

func TestDeduplicate_MultiGroupBehaviours(t *testing.T) {
	streams := func() []*models.ParsedStream {
		return []*models.ParsedStream{
			testutil.CachedStream("c-alpha", "alphadebrid", testutil.WithFilename("Film.mkv")),
			testutil.UncachedStream("u-alpha", "alphadebrid", testutil.WithFilename("Film.mkv")),
			testutil.UncachedStream("u-beta", "betalink", testutil.WithFilename("Film.mkv")),
		}
	}
	tests := []struct {
		behaviour models.MultiGroupBehaviour
		want      []string
	}{
		{models.MultiGroupRemoveUncached, []string{"c-alpha"}},
		{models.MultiGroupRemoveNothing, []string{"c-alpha", "u-alpha"}},
		{models.MultiGroupRemoveUncachedSameService, []string{"c-alpha", "u-beta"}},
		{"", []string{"c-alpha", "u-beta"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.behaviour), func(t *testing.T) {
			ud := userData(models.Deduplicator{MultiGroupBehaviour: tt.behaviour})
			assert.Equal(t, tt.want, dedupIDs(t, ud, streams()))
		})
	}
}

func TestDeduplicate_Transitive(t *testing.T) {
	ud := userData(models.Deduplicator{})
	streams := []*models.ParsedStream{
		testutil.CachedStream("a", "gammabox", testutil.WithFilename("One.mkv"), testutil.WithInfoHash("h1")),
		testutil.CachedStream("b", "betalink", testutil.WithFilename("One.mkv"), testutil.WithInfoHash("h2")),
		testutil.CachedStream("c", "alphadebrid", testutil.WithFilename("Two.mkv"), testutil.WithInfoHash("h2")),
		testutil.CachedStream("d", "alphadebrid", testutil.WithFilename("Three.mkv"), testutil.WithInfoHash("h3")),
	}

	assert.Equal(t, []string{"c", "d"}, dedupIDs(t, ud, streams))
}

func TestDeduplicate_SingleResultTieBreaks(t *testing.T) {
	ud := userData(models.Deduplicator{})
	tests := []struct {
		name    string
		streams []*models.ParsedStream
		want    []string
	}{
		{
			name: "seeders descending for p2p",
			streams: []*models.ParsedStream{
				testutil.P2PStream("few", 5, testutil.WithFilename("F.mkv")),
				testutil.P2PStream("many", 500, testutil.WithFilename("F.mkv")),
				testutil.NewStream("unknown", models.StreamTypeP2P, testutil.WithFilename("F.mkv")),
			},
			want: []string{"many"},
		},
		{
			name: "service rank before seeders",
			streams: []*models.ParsedStream{
				testutil.UncachedStream("beta", "betalink", testutil.WithFilename("F.mkv"), testutil.WithSeeders(900)),
				testutil.UncachedStream("alpha", "alphadebrid", testutil.WithFilename("F.mkv"), testutil.WithSeeders(1)),
			},
			want: []string{"alpha"},
		},
		{
			name: "seeders ignored for cached",
			streams: []*models.ParsedStream{
				testutil.CachedStream("first", "alphadebrid", testutil.WithFilename("F.mkv"),
					testutil.WithAddon("addon-2", "Two"), testutil.WithSeeders(1)),
				testutil.CachedStream("second", "alphadebrid", testutil.WithFilename("F.mkv"),
					testutil.WithAddon("addon-0", "Zero"), testutil.WithSeeders(900)),
			},
			want: []string{"second"},
		},
		{
			name: "ties keep the first stream",
			streams: []*models.ParsedStream{
				testutil.P2PStream("x", 10, testutil.WithFilename("F.mkv")),
				testutil.P2PStream("y", 10, testutil.WithFilename("F.mkv")),
			},
			want: []string{"x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dedupIDs(t, ud, tt.streams))
		})
	}
}

func TestDeduplicate_PerService(t *testing.T) {
	ud := userData(models.Deduplicator{Cached: models.DedupModePerService})
	streams := []*models.ParsedStream{
		testutil.CachedStream("alpha-1", "alphadebrid", testutil.WithFilename("F.mkv"), testutil.WithAddon("addon-1", "One")),
		testutil.CachedStream("beta", "betalink", testutil.WithFilename("F.mkv")),
		testutil.CachedStream("alpha-0", "alphadebrid", testutil.WithFilename("F.mkv"), testutil.WithAddon("addon-0", "Zero")),
	}

	assert.Equal(t, []string{"beta", "alpha-0"}, dedupIDs(t, ud, streams))
}

func TestDeduplicate_PerAddon(t *testing.T) {
	ud := userData(models.Deduplicator{P2P: models.DedupModePerAddon})
	streams := []*models.ParsedStream{
		testutil.P2PStream("a0-low", 1, testutil.WithFilename("F.mkv"), testutil.WithAddon("addon-0", "Zero")),
		testutil.P2PStream("a0-high", 90, testutil.WithFilename("F.mkv"), testutil.WithAddon("addon-0", "Zero")),
		testutil.P2PStream("a1", 5, testutil.WithFilename("F.mkv"), testutil.WithAddon("addon-1", "One")),
	}

	assert.Equal(t, []string{"a0-high", "a1"}, dedupIDs(t, ud, streams))
}

func TestDeduplicate_PolicyErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     models.Deduplicator
		streams []*models.ParsedStream
	}{
		{
			name: "per_service without service",
			cfg:  models.Deduplicator{P2P: models.DedupModePerService},
			streams: []*models.ParsedStream{
				testutil.P2PStream("a", 1, testutil.WithFilename("F.mkv")),
				testutil.P2PStream("b", 1, testutil.WithFilename("F.mkv")),
			},
		},
		{
			name: "per_addon without addon",
			cfg:  models.Deduplicator{HTTP: models.DedupModePerAddon},
			streams: []*models.ParsedStream{
				testutil.NewStream("a", models.StreamTypeHTTP, testutil.WithFilename("F.mkv"), testutil.WithAddon("", "")),
				testutil.NewStream("b", models.StreamTypeHTTP, testutil.WithFilename("F.mkv")),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDeduplicator(userData(tt.cfg)).Deduplicate(tt.streams)
			assert.ErrorIs(t, err, ErrDedupPolicy)
		})
	}
}

func TestDeduplicate_DisabledModeAndPassthrough(t *testing.T) {
	ud := userData(models.Deduplicator{HTTP: models.DedupModeDisabled})
	streams := []*models.ParsedStream{
		testutil.NewStream("h1", models.StreamTypeHTTP, testutil.WithFilename("F.mkv")),
		testutil.NewStream("h2", models.StreamTypeHTTP, testutil.WithFilename("F.mkv")),
		testutil.P2PStream("p1", 1, testutil.WithFilename("F.mkv")),
		testutil.P2PStream("p2", 2, testutil.WithFilename("F.mkv")),
		testutil.P2PStream("pass", 0, testutil.WithFilename("F.mkv"), testutil.WithPassthrough()),
	}

	assert.Equal(t, []string{"h1", "h2", "p2", "pass"}, dedupIDs(t, ud, streams))
}

func TestDeduplicate_DisabledConfig(t *testing.T) {
	ud := testutil.SampleUserData(1)
	streams := []*models.ParsedStream{
		testutil.P2PStream("a", 1, testutil.WithFilename("F.mkv")),
		testutil.P2PStream("b", 1, testutil.WithFilename("F.mkv")),
	}

	d := NewDeduplicator(ud)
	assert.False(t, d.Enabled())
	out, err := d.Deduplicate(streams)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, testutil.IDs(out))
}

func TestDeduplicate_SmartDetect(t *testing.T) {
	ud := userData(models.Deduplicator{Keys: []string{models.DedupKeySmartDetect}})
	attrs := []testutil.StreamOption{
		testutil.WithResolution("1080p"),
		testutil.WithQuality("WEB-DL"),
		testutil.WithEncode("HEVC"),
		testutil.WithLanguages("English"),
	}
	streams := []*models.ParsedStream{
		testutil.P2PStream("a", 10, append(attrs, testutil.WithSize(2_040_000_000))...),
		testutil.P2PStream("b", 20, append(attrs, testutil.WithSize(2_010_000_000))...),
		testutil.P2PStream("c", 30, append(attrs, testutil.WithSize(2_600_000_000))...),
		testutil.P2PStream("d", 40, testutil.WithSize(2_040_000_000)),
		testutil.P2PStream("e", 50),
	}

	assert.Equal(t, []string{"b", "c", "d", "e"}, dedupIDs(t, ud, streams))
}

func TestDeduplicate_Idempotent(t *testing.T) {
	configs := map[string]models.Deduplicator{
		"defaults": {},
		"smart": {
			Keys: []string{models.DedupKeyFilename, models.DedupKeyInfoHash, models.DedupKeySmartDetect},
		},
		"per service and addon": {
			Keys:                []string{models.DedupKeySmartDetect},
			Cached:              models.DedupModePerService,
			Uncached:            models.DedupModePerAddon,
			MultiGroupBehaviour: models.MultiGroupRemoveNothing,
		},
		"remove uncached": {
			Keys:                []string{models.DedupKeyFilename, models.DedupKeySmartDetect},
			MultiGroupBehaviour: models.MultiGroupRemoveUncached,
			P2P:                 models.DedupModeDisabled,
		},
	}

	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			gen := testutil.NewSampleDataGeneratorWithSeed(42)
			d := NewDeduplicator(userData(cfg))

			once, err := d.Deduplicate(gen.RandomStreams(300))
			require.NoError(t, err)
			twice, err := d.Deduplicate(once)
			require.NoError(t, err)

			assert.Less(t, len(once), 300)
			assert.Equal(t, testutil.IDs(once), testutil.IDs(twice))
		})
	}
}

func TestFilenameKey(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"Film.2021.1080p.WEB-DL.x265-NOVA.mkv", "film20211080pwebdlx265nova"},
		{"FILM 2021 1080p WEB DL x265 NOVA.mp4", "film20211080pwebdlx265nova"},
		{"Crème Brûlée.mkv", "crèmebrûlée"},
		{"", ""},
	}
	for _, tt := range tests {
		s := testutil.NewStream("s", models.StreamTypeHTTP, testutil.WithFilename(tt.filename))
		assert.Equal(t, tt.want, filenameKey(s), tt.filename)
	}
}

func TestDisjointSet(t *testing.T) {
	d := newDisjointSet(6)
	d.union(0, 1)
	d.union(2, 3)
	d.union(1, 3)
	d.union(4, 4)

	assert.Equal(t, [][]int32{{0, 1, 2, 3}, {4}, {5}}, d.groups())
	assert.Equal(t, d.find(0), d.find(3))
	assert.NotEqual(t, d.find(0), d.find(5))
}

func TestStage_Execute(t *testing.T) {
	ud := userData(models.Deduplicator{})
	state := core.NewState(models.MediaTypeMovie, "tt0211915", ud, []*models.ParsedStream{
		testutil.P2PStream("a", 1, testutil.WithFilename("F.mkv")),
		testutil.P2PStream("b", 9, testutil.WithFilename("F.mkv")),
		testutil.P2PStream("c", 1, testutil.WithFilename("G.mkv")),
	})

	stage := New(nil)
	assert.Equal(t, StageID, stage.ID())
	result, err := stage.Execute(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "c"}, testutil.IDs(state.Streams))
	assert.Equal(t, 1, result.RecordsRemoved)
	assert.Equal(t, []models.Statistic{
		{Title: "Deduplicated", Description: "Removed 1 duplicate streams"},
	}, state.Statistics)
}

func TestStage_ExecutePolicyError(t *testing.T) {
	ud := userData(models.Deduplicator{P2P: models.DedupModePerService})
	state := core.NewState(models.MediaTypeMovie, "tt0211915", ud, []*models.ParsedStream{
		testutil.P2PStream("a", 1, testutil.WithFilename("F.mkv")),
		testutil.P2PStream("b", 9, testutil.WithFilename("F.mkv")),
	})

	_, err := NewConstructor()(&core.Dependencies{}).Execute(context.Background(), state)
	assert.ErrorIs(t, err, ErrDedupPolicy)
}
