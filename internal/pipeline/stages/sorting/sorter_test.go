package sorting

import (
	"context"
	"testing"

	"github.com/jmylchreest/streamfold/internal/models"
	"github.com/jmylchreest/streamfold/internal/pipeline/core"
	"github.com/jmylchreest/streamfold/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func desc(key string) models.SortCriterion {
	return models.SortCriterion{Key: key, Direction: models.SortDesc}
}

func asc(key string) models.SortCriterion {
	return models.SortCriterion{Key: key, Direction: models.SortAsc}
}

func sortIDs(ud *models.UserData, streams []*models.ParsedStream, mediaType string) []string {
	return testutil.IDs(NewSorter(ud).Sort(streams, mediaType))
}

func TestSort_SeedersDescending(t *testing.T) {
	ud := testutil.SampleUserData(1)
	ud.SortCriteria.Global = []models.SortCriterion{desc(models.SortKeySeeders)}
	streams := []*models.ParsedStream{
		testutil.P2PStream("five", 5),
		testutil.P2PStream("fifty", 50),
		testutil.P2PStream("ten", 10),
	}

	assert.Equal(t, []string{"fifty", "ten", "five"}, sortIDs(ud, streams, models.MediaTypeMovie))
}

func TestSort_ForceToTop(t *testing.T) {
	ud := testutil.SampleUserData(1)
	ud.SortCriteria.Global = []models.SortCriterion{desc(models.SortKeySeeders)}
	streams := []*models.ParsedStream{
		testutil.P2PStream("low", 1),
		testutil.P2PStream("pinned-a", 2, testutil.WithForceToTop()),
		testutil.P2PStream("high", 100),
		testutil.P2PStream("pinned-b", 90, testutil.WithForceToTop()),
	}

	assert.Equal(t, []string{"pinned-a", "pinned-b", "high", "low"}, sortIDs(ud, streams, models.MediaTypeMovie))
}

func TestSort_MediaTypeCriteria(t *testing.T) {
	ud := testutil.SampleUserData(1)
	ud.PreferredResolutions = []string{"2160p", "1080p"}
	ud.SortCriteria.Global = []models.SortCriterion{desc(models.SortKeySeeders)}
	ud.SortCriteria.Movies = []models.SortCriterion{desc(models.SortKeyResolution)}
	streams := []*models.ParsedStream{
		testutil.P2PStream("hd", 100, testutil.WithResolution("1080p")),
		testutil.P2PStream("uhd", 1, testutil.WithResolution("2160p")),
	}

	assert.Equal(t, []string{"uhd", "hd"}, sortIDs(ud, streams, models.MediaTypeMovie))
	assert.Equal(t, []string{"hd", "uhd"}, sortIDs(ud, streams, models.MediaTypeSeries))
}

func TestSort_PreferenceRanks(t *testing.T) {
	ud := testutil.SampleUserData(1)
	ud.PreferredResolutions = []string{"1080p"}
	streams := []*models.ParsedStream{
		testutil.P2PStream("sd", 1, testutil.WithResolution("720p")),
		testutil.P2PStream("hd", 1, testutil.WithResolution("1080p")),
		testutil.P2PStream("unknown", 1),
	}

	t.Run("descending puts absent values last", func(t *testing.T) {
		ud.SortCriteria.Global = []models.SortCriterion{desc(models.SortKeyResolution)}
		assert.Equal(t, []string{"hd", "sd", "unknown"}, sortIDs(ud, streams, models.MediaTypeMovie))
	})

	t.Run("ascending flips the order", func(t *testing.T) {
		ud.SortCriteria.Global = []models.SortCriterion{asc(models.SortKeyResolution)}
		assert.Equal(t, []string{"sd", "unknown", "hd"}, sortIDs(ud, streams, models.MediaTypeMovie))
	})
}

func TestSort_Lexicographic(t *testing.T) {
	ud := testutil.SampleUserData(1)
	ud.PreferredResolutions = []string{"2160p", "1080p"}
	ud.SortCriteria.Global = []models.SortCriterion{
		desc(models.SortKeyResolution),
		asc(models.SortKeySize),
	}
	streams := []*models.ParsedStream{
		testutil.P2PStream("hd-big", 1, testutil.WithResolution("1080p"), testutil.WithSize(9)),
		testutil.P2PStream("uhd-big", 1, testutil.WithResolution("2160p"), testutil.WithSize(9)),
		testutil.P2PStream("hd-small", 1, testutil.WithResolution("1080p"), testutil.WithSize(2)),
		testutil.P2PStream("uhd-small", 1, testutil.WithResolution("2160p"), testutil.WithSize(2)),
	}

	assert.Equal(t, []string{"uhd-small", "uhd-big", "hd-small", "hd-big"},
		sortIDs(ud, streams, models.MediaTypeMovie))
}

func TestSort_Stable(t *testing.T) {
	ud := testutil.SampleUserData(1)
	ud.SortCriteria.Global = []models.SortCriterion{desc(models.SortKeySeeders)}
	streams := []*models.ParsedStream{
		testutil.P2PStream("a", 5),
		testutil.P2PStream("b", 5),
		testutil.P2PStream("c", 9),
		testutil.P2PStream("d", 5),
	}

	assert.Equal(t, []string{"c", "a", "b", "d"}, sortIDs(ud, streams, models.MediaTypeMovie))
}

func TestSort_CachedSplit(t *testing.T) {
	streams := func() []*models.ParsedStream {
		return []*models.ParsedStream{
			testutil.CachedStream("c-small", "alphadebrid", testutil.WithSize(1)),
			testutil.UncachedStream("u-few", "alphadebrid", testutil.WithSeeders(5), testutil.WithSize(9)),
			testutil.CachedStream("c-big", "alphadebrid", testutil.WithSize(8)),
			testutil.P2PStream("p-many", 50, testutil.WithSize(2)),
		}
	}

	tests := []struct {
		name  string
		setup func(*models.SortCriteria)
		want  []string
	}{
		{
			name: "dedicated lists",
			setup: func(sc *models.SortCriteria) {
				sc.Global = []models.SortCriterion{desc(models.SortKeyCached), desc(models.SortKeySeeders)}
				sc.Cached = []models.SortCriterion{desc(models.SortKeySize)}
			},
			want: []string{"c-big", "c-small", "p-many", "u-few"},
		},
		{
			name: "ascending puts uncached first",
			setup: func(sc *models.SortCriteria) {
				sc.Global = []models.SortCriterion{asc(models.SortKeyCached), desc(models.SortKeySeeders)}
				sc.Cached = []models.SortCriterion{desc(models.SortKeySize)}
			},
			want: []string{"p-many", "u-few", "c-big", "c-small"},
		},
		{
			name: "media type cached list wins",
			setup: func(sc *models.SortCriteria) {
				sc.Global = []models.SortCriterion{desc(models.SortKeyCached), desc(models.SortKeySeeders)}
				sc.Cached = []models.SortCriterion{desc(models.SortKeySize)}
				sc.CachedMovies = []models.SortCriterion{asc(models.SortKeySize)}
				sc.UncachedMovies = []models.SortCriterion{desc(models.SortKeySize)}
			},
			want: []string{"c-small", "c-big", "u-few", "p-many"},
		},
		{
			name: "falls back to the remaining criteria",
			setup: func(sc *models.SortCriteria) {
				sc.Global = []models.SortCriterion{desc(models.SortKeyCached), asc(models.SortKeySize)}
			},
			want: []string{"c-small", "c-big", "p-many", "u-few"},
		},
		{
			name: "media type list orders both blocks",
			setup: func(sc *models.SortCriteria) {
				sc.Global = []models.SortCriterion{desc(models.SortKeyCached), desc(models.SortKeySeeders)}
				sc.Movies = []models.SortCriterion{asc(models.SortKeySize)}
			},
			want: []string{"c-small", "c-big", "p-many", "u-few"},
		},
		{
			name: "media type list without cached key",
			setup: func(sc *models.SortCriteria) {
				sc.Global = []models.SortCriterion{desc(models.SortKeyCached), desc(models.SortKeySeeders)}
				sc.Movies = []models.SortCriterion{desc(models.SortKeySeeders)}
			},
			want: []string{"c-small", "c-big", "p-many", "u-few"},
		},
		{
			name: "cached in media type list only",
			setup: func(sc *models.SortCriteria) {
				sc.Global = []models.SortCriterion{asc(models.SortKeySize)}
				sc.Movies = []models.SortCriterion{desc(models.SortKeyCached), asc(models.SortKeySize)}
			},
			want: []string{"c-small", "c-big", "p-many", "u-few"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ud := testutil.SampleUserData(1)
			tt.setup(&ud.SortCriteria)
			assert.Equal(t, tt.want, sortIDs(ud, streams(), models.MediaTypeMovie))
		})
	}
}

func TestSort_GlobalCachedKeyOutranksMediaTypeList(t *testing.T) {
	ud := testutil.SampleUserData(1)
	ud.SortCriteria.Global = []models.SortCriterion{desc(models.SortKeyCached), desc(models.SortKeySeeders)}
	ud.SortCriteria.Movies = []models.SortCriterion{desc(models.SortKeySeeders)}
	streams := []*models.ParsedStream{
		testutil.UncachedStream("uncached-hi", "alphadebrid", testutil.WithSeeders(500)),
		testutil.CachedStream("cached-lo", "alphadebrid", testutil.WithSeeders(1)),
	}

	assert.Equal(t, []string{"cached-lo", "uncached-hi"}, sortIDs(ud, streams, models.MediaTypeMovie))
	assert.Equal(t, []string{"cached-lo", "uncached-hi"}, sortIDs(ud, streams, models.MediaTypeSeries))
}

func TestSort_PrecomputedKeys(t *testing.T) {
	ud := testutil.SampleUserData(1)
	second := testutil.P2PStream("second", 1)
	second.RegexMatched = &models.RegexMatch{Pattern: "b", Index: 1}
	first := testutil.P2PStream("first", 1)
	first.RegexMatched = &models.RegexMatch{Pattern: "a", Index: 0}
	none := testutil.P2PStream("none", 1)

	t.Run("regex patterns", func(t *testing.T) {
		ud.SortCriteria.Global = []models.SortCriterion{desc(models.SortKeyRegexPatterns)}
		got := sortIDs(ud, []*models.ParsedStream{none, second, first}, models.MediaTypeMovie)
		assert.Equal(t, []string{"first", "second", "none"}, got)
	})

	t.Run("stream expression", func(t *testing.T) {
		second.StreamExpressionMatched = models.IntPtr(1)
		first.StreamExpressionMatched = models.IntPtr(0)
		ud.SortCriteria.Global = []models.SortCriterion{desc(models.SortKeyStreamExpressionMatched)}
		got := sortIDs(ud, []*models.ParsedStream{none, second, first}, models.MediaTypeMovie)
		assert.Equal(t, []string{"first", "second", "none"}, got)
	})

	t.Run("keyword", func(t *testing.T) {
		second.KeywordMatched = true
		ud.SortCriteria.Global = []models.SortCriterion{desc(models.SortKeyKeyword)}
		got := sortIDs(ud, []*models.ParsedStream{none, first, second}, models.MediaTypeMovie)
		assert.Equal(t, []string{"second", "none", "first"}, got)
	})
}

func TestSort_RankKeys(t *testing.T) {
	ud := testutil.SampleUserData(3)
	streams := []*models.ParsedStream{
		testutil.CachedStream("gamma", "gammabox", testutil.WithAddon("addon-2", "Two")),
		testutil.NewStream("http", models.StreamTypeHTTP, testutil.WithAddon("addon-1", "One")),
		testutil.CachedStream("alpha", "alphadebrid", testutil.WithAddon("addon-0", "Zero")),
		testutil.CachedStream("owned", "betalink", testutil.WithLibrary(), testutil.WithAddon("addon-1", "One")),
	}

	tests := []struct {
		key  string
		want []string
	}{
		{models.SortKeyService, []string{"alpha", "owned", "gamma", "http"}},
		{models.SortKeyAddon, []string{"alpha", "http", "owned", "gamma"}},
		{models.SortKeyStreamType, []string{"gamma", "alpha", "owned", "http"}},
		{models.SortKeyLibrary, []string{"owned", "gamma", "http", "alpha"}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			ud.SortCriteria.Global = []models.SortCriterion{desc(tt.key)}
			assert.Equal(t, tt.want, sortIDs(ud, streams, models.MediaTypeMovie))
		})
	}
}

func TestSort_NoCriteriaKeepsOrder(t *testing.T) {
	ud := testutil.SampleUserData(1)
	streams := []*models.ParsedStream{
		testutil.P2PStream("b", 1),
		testutil.P2PStream("a", 9),
	}

	assert.Equal(t, []string{"b", "a"}, sortIDs(ud, streams, models.MediaTypeAnime))
}

func TestStage_Execute(t *testing.T) {
	ud := testutil.SampleUserData(1)
	ud.SortCriteria.Global = []models.SortCriterion{desc(models.SortKeySeeders)}
	state := core.NewState(models.MediaTypeMovie, "tt0211915", ud, []*models.ParsedStream{
		testutil.P2PStream("a", 1),
		testutil.P2PStream("b", 2),
	})

	stage := NewConstructor()(&core.Dependencies{})
	assert.Equal(t, StageID, stage.ID())
	result, err := stage.Execute(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a"}, testutil.IDs(state.Streams))
	assert.Equal(t, 2, result.RecordsProcessed)
}
