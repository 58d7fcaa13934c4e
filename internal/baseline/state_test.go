package baseline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
)

func TestState_RoundTrip(t *testing.T) {
	cfg := testConfig(9)
	cfg.ForceSplit = []string{"-"}
	m := New(cfg)
	loadModel(t, m, append(trainingCorpus(), items("talo-kissa", 2)...))
	m.SetAnnotations(NewAnnotations([]AnnotationEntry{
		{Compound: Chars("talossa"), Analyses: [][]Construction{{Chars("talo"), Chars("ssa")}}},
	}), nil)
	_, _, err := m.TrainBatch(DefaultParams(), nil, DefaultFinishThreshold)
	require.NoError(t, err)

	data, err := json.Marshal(m.State())
	require.NoError(t, err)
	var s State
	require.NoError(t, json.Unmarshal(data, &s))

	restored, err := FromState(&s, testConfig(9))
	require.NoError(t, err)

	assert.InDelta(t, m.Cost(), restored.Cost(), 1e-9)
	assert.Equal(t, m.Segmentations(), restored.Segmentations())
	assert.Equal(t, m.Constructions(), restored.Constructions())
	assert.Equal(t, m.CorpusWeight(), restored.CorpusWeight())
	assert.True(t, restored.Supervised())

	got, _ := restored.Segment(Chars("unkind"), 0, DefaultMaxLen)
	want, _ := m.Segment(Chars("unkind"), 0, DefaultMaxLen)
	assert.Equal(t, want, got)

	// Training continues from the restored counts.
	_, _, err = restored.TrainBatch(DefaultParams(), nil, DefaultFinishThreshold)
	require.NoError(t, err)
	assertConserved(t, restored)
}

func TestFromState_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		state State
	}{
		{"version", State{Version: 99}},
		{"zero count", State{Version: StateVersion, Nodes: []NodeState{{Atoms: []string{"a"}}}}},
		{"duplicate", State{Version: StateVersion, Nodes: []NodeState{
			{Atoms: []string{"a"}, Count: 1},
			{Atoms: []string{"a"}, Count: 2},
		}}},
		{"split point", State{Version: StateVersion, Nodes: []NodeState{
			{Atoms: []string{"a", "b"}, Count: 1, SplitLocs: []int{2}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromState(&tt.state, testConfig(1))
			require.Error(t, err)
			if tt.name != "version" {
				assert.ErrorIs(t, err, apperrors.ErrInconsistentState)
			} else {
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			}
		})
	}
}
