package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tornadohq/tornado/internal/configstore"
	"github.com/tornadohq/tornado/internal/dispatcher"
	"github.com/tornadohq/tornado/internal/event"
	"github.com/tornadohq/tornado/internal/executor"
	"github.com/tornadohq/tornado/internal/matcherconfig"
	"github.com/tornadohq/tornado/internal/operator"
	"github.com/tornadohq/tornado/internal/retry"
	"github.com/tornadohq/tornado/internal/value"
)

// fakeStore is a minimal in-memory configstore.Store for engine tests;
// only GetConfig is exercised, the rest are unused stubs.
type fakeStore struct {
	mu  sync.Mutex
	cfg *matcherconfig.Node
}

func (s *fakeStore) GetConfig(context.Context) (*matcherconfig.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg, nil
}
func (s *fakeStore) set(cfg *matcherconfig.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}
func (s *fakeStore) GetDrafts(context.Context) ([]string, error) { return nil, nil }
func (s *fakeStore) GetDraft(context.Context, string) (configstore.Draft, error) {
	return configstore.Draft{}, nil
}
func (s *fakeStore) CreateDraft(context.Context, string) (string, error) { return "", nil }
func (s *fakeStore) UpdateDraft(context.Context, string, string, *matcherconfig.Node) error {
	return nil
}
func (s *fakeStore) DeployDraft(context.Context, string) (*matcherconfig.Node, error) {
	return nil, nil
}
func (s *fakeStore) DeleteDraft(context.Context, string) error { return nil }

var _ configstore.Store = (*fakeStore)(nil)

func alwaysMatchRuleset(name string, actionID string) *matcherconfig.Node {
	return &matcherconfig.Node{
		Kind: matcherconfig.KindRuleset,
		Name: name,
		Rules: []matcherconfig.Rule{
			{
				Name:       "r1",
				Active:     true,
				DoContinue: true,
				Constraint: matcherconfig.Constraint{
					Where: specPtr(operator.Spec{Kind: operator.KindEqual, First: value.Number(1), Second: value.Number(1)}),
				},
				Actions: []matcherconfig.ActionTemplate{
					{ID: actionID, Payload: value.Object(map[string]value.Value{"k": value.String("v")})},
				},
			},
		},
	}
}

func specPtr(s operator.Spec) *operator.Spec { return &s }

func testEvent() event.Event {
	return event.Event{
		TraceID: "t1",
		Type:    "test",
		Payload: value.EmptyObject(),
	}
}

func TestNew_FailsWithoutDeployedConfig(t *testing.T) {
	store := &fakeStore{}
	bus := dispatcher.NewLocalEventBus(16, nil)
	_, err := New(context.Background(), DefaultConfig(), store, bus, nil, nil)
	assert.Error(t, err)
}

func TestEngine_ProcessEventReturnsProcessedTreeWithoutDispatch(t *testing.T) {
	store := &fakeStore{cfg: alwaysMatchRuleset("root", "archive")}
	bus := dispatcher.NewLocalEventBus(16, nil)

	dispatched := make(chan event.Action, 1)
	bus.Subscribe("archive", func(a event.Action) { dispatched <- a })

	eng, err := New(context.Background(), DefaultConfig(), store, bus, nil, nil)
	require.NoError(t, err)

	pe, err := eng.ProcessEvent(context.Background(), testEvent())
	require.NoError(t, err)
	require.NotNil(t, pe.Root)
	assert.Len(t, pe.MatchedActions(), 1)

	select {
	case <-dispatched:
		t.Fatal("ProcessEvent must not dispatch matched actions")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEngine_ProcessAndDispatchRoutesActionsToSubscriber(t *testing.T) {
	store := &fakeStore{cfg: alwaysMatchRuleset("root", "archive")}
	bus := dispatcher.NewLocalEventBus(16, nil)

	dispatched := make(chan event.Action, 1)
	bus.Subscribe("archive", func(a event.Action) { dispatched <- a })

	eng, err := New(context.Background(), DefaultConfig(), store, bus, nil, nil)
	require.NoError(t, err)

	require.NoError(t, eng.ProcessAndDispatch(context.Background(), testEvent()))

	select {
	case a := <-dispatched:
		assert.Equal(t, "archive", a.ID)
		assert.Equal(t, "t1", a.TraceID)
	case <-time.After(time.Second):
		t.Fatal("expected a dispatched action")
	}
}

func TestEngine_ReconfigureSwapsTreeOnSuccess(t *testing.T) {
	store := &fakeStore{cfg: alwaysMatchRuleset("root", "archive")}
	bus := dispatcher.NewLocalEventBus(16, nil)

	eng, err := New(context.Background(), DefaultConfig(), store, bus, nil, nil)
	require.NoError(t, err)

	store.set(alwaysMatchRuleset("root-v2", "notify"))
	require.NoError(t, eng.Reconfigure(context.Background()))
	assert.Equal(t, "root-v2", eng.Tree().Root())
}

func TestEngine_ReconfigureKeepsOldTreeOnInvalidConfig(t *testing.T) {
	store := &fakeStore{cfg: alwaysMatchRuleset("root", "archive")}
	bus := dispatcher.NewLocalEventBus(16, nil)

	eng, err := New(context.Background(), DefaultConfig(), store, bus, nil, nil)
	require.NoError(t, err)

	store.set(&matcherconfig.Node{Kind: matcherconfig.KindRuleset, Name: "not a valid name"})
	err = eng.Reconfigure(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "root", eng.Tree().Root())
}

func TestEngine_RegisterExecutorRetriesThenSucceeds(t *testing.T) {
	store := &fakeStore{cfg: alwaysMatchRuleset("root", "flaky")}
	bus := dispatcher.NewLocalEventBus(16, nil)

	eng, err := New(context.Background(), DefaultConfig(), store, bus, nil, nil)
	require.NoError(t, err)

	var attempts int
	var mu sync.Mutex
	done := make(chan struct{})
	exec := executor.ExecutorFunc(func(a *event.Action) error {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 2 {
			return &executor.ActionExecutionError{Retryable: true, Message: "transient"}
		}
		close(done)
		return nil
	})
	eng.RegisterExecutor("flaky", exec, retry.Strategy{
		Policy:  retry.MaxRetries(3),
		Backoff: retry.FixedBackoff(1),
	})

	require.NoError(t, eng.ProcessAndDispatch(context.Background(), testEvent()))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the flaky executor to eventually succeed")
	}
}
