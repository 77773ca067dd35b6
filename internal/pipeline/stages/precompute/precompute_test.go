package precompute

import (
	"context"
	"testing"
	"time"

	"github.com/jmylchreest/streamfold/internal/expression"
	"github.com/jmylchreest/streamfold/internal/models"
	"github.com/jmylchreest/streamfold/internal/pipeline/core"
	"github.com/jmylchreest/streamfold/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine() *expression.Engine {
	return expression.NewEngine(expression.WithTimeout(time.Second))
}

func newPrecomputer(t *testing.T, ud *models.UserData) *Precomputer {
	t.Helper()
	p, err := NewPrecomputer(ud, testEngine(), nil)
	require.NoError(t, err)
	return p
}

func TestPrecompute_RegexFirstMatchWins(t *testing.T) {
	ud := testutil.SampleUserData(1)
	ud.PreferredRegexPatterns = []models.RegexRule{
		{Name: "remux", Pattern: `(?i)remux`},
		{Name: "nova", Pattern: `(?i)nova`},
	}
	streams := []*models.ParsedStream{
		testutil.P2PStream("a", 1, testutil.WithFilename("Film.2021.REMUX-NOVA.mkv")),
		testutil.P2PStream("b", 1, testutil.WithReleaseGroup("NOVA")),
		testutil.P2PStream("c", 1, testutil.WithFilename("Film.2021.WEB.mkv")),
	}

	newPrecomputer(t, ud).Precompute(context.Background(), streams)

	require.NotNil(t, streams[0].RegexMatched)
	assert.Equal(t, "remux", streams[0].RegexMatched.Name)
	assert.Equal(t, 0, streams[0].RegexMatched.Index)
	require.NotNil(t, streams[1].RegexMatched)
	assert.Equal(t, 1, streams[1].RegexMatched.Index)
	assert.Nil(t, streams[2].RegexMatched)
}

func TestPrecompute_NegatedRegex(t *testing.T) {
	ud := testutil.SampleUserData(1)
	ud.PreferredRegexPatterns = []models.RegexRule{
		{Name: "not cam", Pattern: `(?i)\bcam\b`, Negate: true},
	}
	streams := []*models.ParsedStream{
		testutil.P2PStream("cam", 1, testutil.WithFilename("Film.2021.CAM.mkv")),
		testutil.P2PStream("web", 1, testutil.WithFilename("Film.2021.WEB.mkv")),
	}

	newPrecomputer(t, ud).Precompute(context.Background(), streams)

	assert.Nil(t, streams[0].RegexMatched)
	require.NotNil(t, streams[1].RegexMatched)
	assert.Equal(t, "not cam", streams[1].RegexMatched.Name)
}

func TestPrecompute_Keywords(t *testing.T) {
	ud := testutil.SampleUserData(1)
	ud.PreferredKeywords = []string{"imax", "director's cut"}
	streams := []*models.ParsedStream{
		testutil.P2PStream("a", 1, testutil.WithFilename("Film.2021.IMAX.mkv")),
		testutil.P2PStream("b", 1, testutil.WithFolder("Film 2021 Director's Cut")),
		testutil.P2PStream("c", 1, testutil.WithFilename("Film.2021.IMAXED.mkv")),
	}

	newPrecomputer(t, ud).Precompute(context.Background(), streams)

	assert.True(t, streams[0].KeywordMatched)
	assert.True(t, streams[1].KeywordMatched)
	assert.False(t, streams[2].KeywordMatched, "keywords match whole words only")
}

func TestPrecompute_ExpressionsClaimInPriorityOrder(t *testing.T) {
	ud := testutil.SampleUserData(1)
	ud.PreferredStreamExpressions = []string{
		"cached(streams)",
		"type(streams, 'debrid')",
		"streams",
	}
	streams := []*models.ParsedStream{
		testutil.CachedStream("c1", "alphadebrid"),
		testutil.UncachedStream("u1", "alphadebrid"),
		testutil.P2PStream("p1", 10),
	}

	newPrecomputer(t, ud).Precompute(context.Background(), streams)

	require.NotNil(t, streams[0].StreamExpressionMatched)
	assert.Equal(t, 0, *streams[0].StreamExpressionMatched)
	require.NotNil(t, streams[1].StreamExpressionMatched)
	assert.Equal(t, 1, *streams[1].StreamExpressionMatched, "claimed by the first rule that still sees it")
	require.NotNil(t, streams[2].StreamExpressionMatched)
	assert.Equal(t, 2, *streams[2].StreamExpressionMatched)
}

func TestPrecompute_FailingExpressionIsSkipped(t *testing.T) {
	ud := testutil.SampleUserData(1)
	ud.PreferredStreamExpressions = []string{
		"count(previousStreams) > 0", // unbound here
		"not a valid (",
		"type(streams, 'p2p')",
	}
	streams := []*models.ParsedStream{testutil.P2PStream("p1", 10)}

	newPrecomputer(t, ud).Precompute(context.Background(), streams)

	require.NotNil(t, streams[0].StreamExpressionMatched)
	assert.Equal(t, 2, *streams[0].StreamExpressionMatched)
}

func TestPrecompute_Idempotent(t *testing.T) {
	ud := testutil.SampleUserData(1)
	ud.PreferredRegexPatterns = []models.RegexRule{{Name: "hevc", Pattern: `(?i)x265`}}
	ud.PreferredKeywords = []string{"nova"}
	ud.PreferredStreamExpressions = []string{"resolution(streams, '2160p')"}

	gen := testutil.NewSampleDataGeneratorWithSeed(11)
	streams := gen.RandomStreams(40)
	p := newPrecomputer(t, ud)

	p.Precompute(context.Background(), streams)
	first := testutil.Clone(streams)
	p.Precompute(context.Background(), streams)

	assert.Equal(t, first, streams)
}

func TestPrecompute_ResetsStaleAnnotations(t *testing.T) {
	s := testutil.P2PStream("a", 1)
	s.KeywordMatched = true
	s.RegexMatched = &models.RegexMatch{Name: "old"}
	s.StreamExpressionMatched = models.IntPtr(4)

	n := newPrecomputer(t, testutil.SampleUserData(1)).Precompute(context.Background(), []*models.ParsedStream{s})

	assert.Zero(t, n)
	assert.False(t, s.KeywordMatched)
	assert.Nil(t, s.RegexMatched)
	assert.Nil(t, s.StreamExpressionMatched)
}

func TestNewPrecomputer_InvalidRegex(t *testing.T) {
	ud := testutil.SampleUserData(1)
	ud.PreferredRegexPatterns = []models.RegexRule{{Name: "broken", Pattern: "("}}

	_, err := NewPrecomputer(ud, testEngine(), nil)
	assert.Error(t, err)
}

func TestStage_Execute(t *testing.T) {
	ud := testutil.SampleUserData(1)
	ud.PreferredKeywords = []string{"nova"}
	state := core.NewState(models.MediaTypeMovie, "tt0000001", ud, []*models.ParsedStream{
		testutil.P2PStream("a", 1, testutil.WithReleaseGroup("NOVA")),
		testutil.P2PStream("b", 1),
	})

	stage := New(testEngine(), nil)
	assert.Equal(t, StageID, stage.ID())
	assert.Equal(t, StageName, stage.Name())

	result, err := stage.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RecordsProcessed)
	assert.Equal(t, 1, result.RecordsModified)
	assert.True(t, state.Streams[0].KeywordMatched)
}
