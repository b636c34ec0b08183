package latency

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostsim/hostsim/sim"
)

func TestConstantModel_SelfIsZero_OthersConstant(t *testing.T) {
	m := NewConstantModel(5 * sim.Microsecond)
	assert.Equal(t, sim.SimTime(0), m.Latency(3, 3))
	assert.Equal(t, 5*sim.Microsecond, m.Latency(3, 4))
	assert.Equal(t, 5*sim.Microsecond, m.MinInterHostLatency())
}

func TestConstantModel_ZeroLatency_Panics(t *testing.T) {
	assert.Panics(t, func() { NewConstantModel(0) })
}

func TestMatrixModel_LinksOverrideDefault(t *testing.T) {
	// GIVEN a matrix with a 10us default and one fast directed link
	m := NewMatrixModel(10 * sim.Microsecond)
	require.NoError(t, m.SetLink(0, 1, 2*sim.Microsecond))

	// THEN only that direction is fast and the minimum follows it
	assert.Equal(t, 2*sim.Microsecond, m.Latency(0, 1))
	assert.Equal(t, 10*sim.Microsecond, m.Latency(1, 0))
	assert.Equal(t, sim.SimTime(0), m.Latency(1, 1))
	assert.Equal(t, 2*sim.Microsecond, m.MinInterHostLatency())
	assert.Equal(t, 1, m.Links())
}

func TestMatrixModel_SlowLinkKeepsDefaultMinimum(t *testing.T) {
	m := NewMatrixModel(3 * sim.Microsecond)
	require.NoError(t, m.SetLink(0, 1, 50*sim.Microsecond))
	assert.Equal(t, 3*sim.Microsecond, m.MinInterHostLatency())
}

func TestMatrixModel_SetLink_RejectsSelfAndZero(t *testing.T) {
	m := NewMatrixModel(sim.Microsecond)
	assert.Error(t, m.SetLink(2, 2, sim.Microsecond))
	assert.Error(t, m.SetLink(1, 2, 0))
}

func writeTopology(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "topology.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadTopology_ValidYAML_BuildsMatrix(t *testing.T) {
	path := writeTopology(t, `
default_latency: 10us
links:
  - {src: 0, dst: 1, latency: 1us, symmetric: true}
  - {src: 2, dst: 3, latency: 4us}
`)
	spec, err := LoadTopology(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Microsecond, spec.DefaultLatency)
	require.Len(t, spec.Links, 2)

	model, err := spec.Build()
	require.NoError(t, err)
	assert.Equal(t, sim.Microsecond, model.Latency(1, 0))
	assert.Equal(t, 4*sim.Microsecond, model.Latency(2, 3))
	assert.Equal(t, 10*sim.Microsecond, model.Latency(3, 2))
	assert.Equal(t, sim.Microsecond, model.MinInterHostLatency())
}

func TestLoadTopology_NoLinks_BuildsConstant(t *testing.T) {
	spec, err := LoadTopology(writeTopology(t, "default_latency: 2ms\n"))
	require.NoError(t, err)
	model, err := spec.Build()
	require.NoError(t, err)
	_, ok := model.(*ConstantModel)
	assert.True(t, ok)
	assert.Equal(t, 2*sim.Millisecond, model.MinInterHostLatency())
}

func TestLoadTopology_UnknownKey_ReturnsError(t *testing.T) {
	_, err := LoadTopology(writeTopology(t, "default_latncy: 2ms\n"))
	assert.Error(t, err)
}

func TestLoadTopology_MissingFile_ReturnsError(t *testing.T) {
	_, err := LoadTopology(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTopologySpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    TopologySpec
		wantErr bool
	}{
		{"valid", TopologySpec{DefaultLatency: time.Millisecond}, false},
		{"zero default", TopologySpec{}, true},
		{"self link", TopologySpec{DefaultLatency: time.Millisecond,
			Links: []LinkSpec{{Src: 1, Dst: 1, Latency: time.Millisecond}}}, true},
		{"negative link", TopologySpec{DefaultLatency: time.Millisecond,
			Links: []LinkSpec{{Src: 0, Dst: 1, Latency: -time.Millisecond}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFromDuration_NegativeClampsToZero(t *testing.T) {
	assert.Equal(t, sim.SimTime(0), FromDuration(-time.Second))
	assert.Equal(t, sim.Second, FromDuration(time.Second))
}
