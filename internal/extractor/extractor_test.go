package extractor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tornadohq/tornado/internal/event"
	"github.com/tornadohq/tornado/internal/value"
)

func ieWithMsg(msg string) event.InternalEvent {
	return event.NewInternalEvent(event.Event{
		Payload:  value.Object(map[string]value.Value{"msg": value.String(msg)}),
		Metadata: value.EmptyObject(),
	})
}

func TestExtractor_SingleMatch(t *testing.T) {
	// S2: extractor feeds action
	ex, err := Build("num", Spec{
		From:  "${event.payload.msg}",
		Regex: RegexSpec{Pattern: `id=(\d+)`, GroupMatchIdx: 1},
	})
	require.NoError(t, err)

	v, err := ex.Extract(ieWithMsg("x id=42 y"))
	require.NoError(t, err)
	s, _ := v.AsString()
	assert.Equal(t, "42", s)
}

func TestExtractor_NoMatchAborts(t *testing.T) {
	// S3: extractor NoMatch aborts rule
	ex, err := Build("num", Spec{
		From:  "${event.payload.msg}",
		Regex: RegexSpec{Pattern: `id=(\d+)`, GroupMatchIdx: 1},
	})
	require.NoError(t, err)

	_, err = ex.Extract(ieWithMsg("nothing"))
	assert.True(t, errors.Is(err, ErrNoMatch))
}

func TestExtractor_AllMatchesYieldsArray(t *testing.T) {
	ex, err := Build("ids", Spec{
		From:  "${event.payload.msg}",
		Regex: RegexSpec{Pattern: `id=(\d+)`, GroupMatchIdx: 1, AllMatches: true},
	})
	require.NoError(t, err)

	v, err := ex.Extract(ieWithMsg("id=1 id=2 id=3"))
	require.NoError(t, err)
	arr, ok := v.AsArray()
	require.True(t, ok)
	require.Len(t, arr, 3)
	s0, _ := arr[0].AsString()
	assert.Equal(t, "1", s0)
}

func TestExtractor_AllMatchesNoMatchIsNoMatch(t *testing.T) {
	// Boundary: all_matches=true but no matches => NoMatch
	ex, err := Build("ids", Spec{
		From:  "${event.payload.msg}",
		Regex: RegexSpec{Pattern: `id=(\d+)`, GroupMatchIdx: 1, AllMatches: true},
	})
	require.NoError(t, err)

	_, err = ex.Extract(ieWithMsg("nothing here"))
	assert.True(t, errors.Is(err, ErrNoMatch))
}

func TestExtractor_NonStringAccessorIsNoMatch(t *testing.T) {
	ex, err := Build("num", Spec{
		From:  "${event.payload.count}",
		Regex: RegexSpec{Pattern: `\d+`, GroupMatchIdx: 0},
	})
	require.NoError(t, err)

	ie := event.NewInternalEvent(event.Event{
		Payload:  value.Object(map[string]value.Value{"count": value.Number(5)}),
		Metadata: value.EmptyObject(),
	})
	_, err = ex.Extract(ie)
	assert.True(t, errors.Is(err, ErrNoMatch))
}

func TestBuild_InvalidRegexIsBuildError(t *testing.T) {
	_, err := Build("bad", Spec{From: "${event.type}", Regex: RegexSpec{Pattern: "(unclosed"}})
	assert.Error(t, err)
	var buildErr *RegexBuildError
	assert.ErrorAs(t, err, &buildErr)
}
