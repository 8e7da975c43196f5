package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idsrs/core"
)

func TestGaiaParserParsesDropRecord(t *testing.T) {
	p := &GaiaParser{}
	line := "Sep  3 15:12:07 192.168.99.1 Checkpoint: drop 10.0.0.5 proto: tcp; service: 4444; s_port: 51515"

	ev, ok := p.Parse(line)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.5", ev.SourceIP)
	assert.Equal(t, 4444, ev.DestPort)
	assert.Equal(t, "tcp", ev.Proto)
	assert.Equal(t, core.ActionDrop, ev.Action)
}

func TestGaiaParserDiscardsNonNumericService(t *testing.T) {
	p := &GaiaParser{}
	line := "Sep  3 15:12:07 192.168.99.1 Checkpoint: drop 10.0.0.5 proto: tcp; service: http; s_port: 51515"

	_, ok := p.Parse(line)
	assert.False(t, ok)
}

func TestGaiaParserDiscardsWithoutDropCue(t *testing.T) {
	p := &GaiaParser{}
	line := "Sep  3 15:12:07 192.168.99.1 Checkpoint: accept 10.0.0.5 proto: tcp; service: 80; s_port: 51515"

	_, ok := p.Parse(line)
	assert.False(t, ok)
}

func TestGaiaParserIgnoresDropletSubstring(t *testing.T) {
	p := &GaiaParser{}
	line := "Sep  3 15:12:07 192.168.99.1 Checkpoint: droplet 10.0.0.5 proto: tcp; service: 80;"

	_, ok := p.Parse(line)
	assert.False(t, ok)
}

func TestGaiaParserToleratesFieldOrdering(t *testing.T) {
	p := &GaiaParser{}
	line := "Checkpoint: drop 10.0.0.5 s_port: 51515; service: 22; proto: tcp;"

	ev, ok := p.Parse(line)
	require.True(t, ok)
	assert.Equal(t, 22, ev.DestPort)
}

func TestGaiaParserDiscardsBlankLine(t *testing.T) {
	p := &GaiaParser{}
	_, ok := p.Parse("   ")
	assert.False(t, ok)
}

func TestGaiaParserName(t *testing.T) {
	assert.Equal(t, "gaia", (&GaiaParser{}).Name())
}
