package director

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faasnet/faasnet/internal/config"
	"github.com/faasnet/faasnet/internal/protocol"
)

func newStateWithWorkers(strategy config.SelectionStrategy, workers ...string) *State {
	s := NewState(strategy)
	now := time.Now()
	for _, w := range workers {
		s.registry.Register(w, now)
	}
	return s
}

func TestSelectWorker_EmptySetIsNoWorkers(t *testing.T) {
	s := NewState(config.StrategyRoundRobin)
	_, err := s.selectWorker(nil)
	assert.Error(t, err)
}

func TestSelectWorker_SingleCandidateIsScalar(t *testing.T) {
	s := NewState(config.StrategyRoundRobin)
	id, err := s.selectWorker([]string{"worker-only"})
	require.NoError(t, err)
	assert.Equal(t, "worker-only", id)
}

func TestSelectWorker_RoundRobinCycles(t *testing.T) {
	s := NewState(config.StrategyRoundRobin)
	candidates := []string{"worker-a", "worker-b", "worker-c"}

	var picks []string
	for i := 0; i < 6; i++ {
		id, err := s.selectWorker(candidates)
		require.NoError(t, err)
		picks = append(picks, id)
	}
	assert.Equal(t, []string{"worker-a", "worker-b", "worker-c", "worker-a", "worker-b", "worker-c"}, picks)
}

func TestSelectWorker_RandomStaysInSet(t *testing.T) {
	s := NewState(config.StrategyRandom)
	candidates := []string{"worker-a", "worker-b"}
	for i := 0; i < 20; i++ {
		id, err := s.selectWorker(candidates)
		require.NoError(t, err)
		assert.Contains(t, candidates, id)
	}
}

func TestPlaceFunction_MarksDirty(t *testing.T) {
	s := newStateWithWorkers(config.StrategyRoundRobin, "worker-a")

	s.PlaceFunction("func-1", "worker-a")

	assert.True(t, s.dirty)
	assert.Equal(t, []string{"worker-a"}, s.holdersOf("func-1"))
}

func TestAbsorbFanout_ForwardsOnlyLastResponse(t *testing.T) {
	s := newStateWithWorkers(config.StrategyRoundRobin, "worker-a", "worker-b")
	s.placement["func-1"] = map[string]struct{}{"worker-a": {}, "worker-b": {}}
	s.pending["req-1"] = &pendingFanout{
		ClientID:  "client-x",
		FuncID:    "func-1",
		Remaining: 2,
		Workers:   map[string]struct{}{"worker-a": {}, "worker-b": {}},
	}
	s.serving["client-x"] = 1

	first := protocol.OK("unregistered", "", nil)
	_, done := s.AbsorbFanout("worker-a", "req-1", first)
	assert.False(t, done, "intermediate responses are absorbed")
	assert.Contains(t, s.placement, "func-1", "placement survives until the last response")

	second := protocol.OK("unregistered", "", nil)
	final, done := s.AbsorbFanout("worker-b", "req-1", second)
	require.True(t, done)
	assert.Equal(t, "client-x", final.ClientID)
	assert.Equal(t, second, final.Response)
	assert.NotContains(t, s.placement, "func-1")
	assert.NotContains(t, s.pending, "req-1")
	assert.Empty(t, s.serving)
}

func TestAbsorbFanout_UnknownRequestDropped(t *testing.T) {
	s := NewState(config.StrategyRoundRobin)
	_, done := s.AbsorbFanout("worker-a", "req-ghost", protocol.OK("", "", nil))
	assert.False(t, done)
}

func TestEvictWorker_ScrubsPlacement(t *testing.T) {
	s := newStateWithWorkers(config.StrategyRoundRobin, "worker-a", "worker-b")
	s.placement["func-1"] = map[string]struct{}{"worker-a": {}, "worker-b": {}}
	s.placement["func-2"] = map[string]struct{}{"worker-a": {}}

	done := s.EvictWorker("worker-a")

	assert.Empty(t, done)
	assert.False(t, s.registry.IsLive("worker-a"))
	assert.Equal(t, []string{"worker-b"}, s.holdersOf("func-1"))
	assert.NotContains(t, s.placement, "func-2", "an entry with no holders left is removed")
}

func TestEvictWorker_FinalizesPendingFanout(t *testing.T) {
	s := newStateWithWorkers(config.StrategyRoundRobin, "worker-a", "worker-b")
	s.placement["func-1"] = map[string]struct{}{"worker-a": {}, "worker-b": {}}
	s.pending["req-1"] = &pendingFanout{
		ClientID:  "client-x",
		FuncID:    "func-1",
		Remaining: 2,
		Workers:   map[string]struct{}{"worker-a": {}, "worker-b": {}},
	}
	s.serving["client-x"] = 1

	resp := protocol.OK("unregistered", "", nil)
	_, done := s.AbsorbFanout("worker-a", "req-1", resp)
	require.False(t, done)

	// worker-b dies before answering: its obligation is dropped and the
	// fan-out completes with the response already observed.
	results := s.EvictWorker("worker-b")
	require.Len(t, results, 1)
	assert.Equal(t, "client-x", results[0].ClientID)
	assert.Equal(t, resp, results[0].Response)
	assert.Empty(t, s.pending)
	assert.Empty(t, s.serving)
}

func TestEvictWorker_FanoutWithNoResponseYieldsError(t *testing.T) {
	s := newStateWithWorkers(config.StrategyRoundRobin, "worker-a")
	s.placement["func-1"] = map[string]struct{}{"worker-a": {}}
	s.pending["req-1"] = &pendingFanout{
		ClientID:  "client-x",
		FuncID:    "func-1",
		Remaining: 1,
		Workers:   map[string]struct{}{"worker-a": {}},
	}

	results := s.EvictWorker("worker-a")
	require.Len(t, results, 1)
	assert.Equal(t, "err", results[0].Response.Status)
}

func TestServingCounters(t *testing.T) {
	s := NewState(config.StrategyRoundRobin)

	s.beginServing("client-x")
	s.beginServing("client-x")
	s.endServing("client-x")
	assert.Equal(t, 1, s.serving["client-x"], "pipelined requests are counted individually")

	s.endServing("client-x")
	assert.Empty(t, s.serving)

	// Unbalanced end is harmless.
	s.endServing("client-x")
	assert.Empty(t, s.serving)
}
