package main

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleIR = `{"functions":[{"name":"main","instrs":[
	{"op":"const","dest":"a","type":"int","value":1},
	{"op":"const","dest":"b","type":"int","value":1},
	{"op":"add","dest":"c","type":"int","args":["a","b"]},
	{"op":"print","args":["c"]}
]}]}`

func TestRunWithNoPassRoundTripsJSON(t *testing.T) {
	var out bytes.Buffer
	err := run("", "", nil, strings.NewReader(sampleIR), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"op": "print"`)
}

func TestRunAppliesNamedPass(t *testing.T) {
	var out bytes.Buffer
	err := run("", "lvn", nil, strings.NewReader(sampleIR), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"op": "id"`)
}

func TestRunAppliesNamedAnalysis(t *testing.T) {
	var out bytes.Buffer
	err := run("", "reducible", nil, strings.NewReader(sampleIR), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "function main")
}

func TestRunUnknownPassNameFails(t *testing.T) {
	var out bytes.Buffer
	err := run("", "not-a-real-pass", nil, strings.NewReader(sampleIR), &out)
	assert.Error(t, err)
}

func TestRunSurfacesMalformedIRAsValidationFailure(t *testing.T) {
	badIR := `{"functions":[{"name":"main","instrs":[{"op":"jmp","labels":["nowhere"]}]}]}`
	var out bytes.Buffer
	err := run("", "", nil, strings.NewReader(badIR), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestRunMissingFileFails(t *testing.T) {
	var out bytes.Buffer
	err := run("/nonexistent/path/to/ir.json", "", nil, strings.NewReader(""), &out)
	assert.Error(t, err)
}

func TestRunInvalidJSONFailsWithDecodingError(t *testing.T) {
	var out bytes.Buffer
	err := run("", "", nil, strings.NewReader("not json"), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding failed")
}

func TestRunTraceLogsLICMIterations(t *testing.T) {
	loopIR := `{"functions":[{"name":"main","instrs":[
		{"op":"const","dest":"i","type":"int","value":0},
		{"label":"loop"},
		{"op":"const","dest":"x","type":"int","value":1},
		{"op":"const","dest":"one","type":"int","value":1},
		{"op":"add","dest":"i","type":"int","args":["i","one"]},
		{"op":"lt","dest":"cond","type":"bool","args":["i","x"]},
		{"op":"br","args":["cond"],"labels":["loop","done"]},
		{"label":"done"},
		{"op":"print","args":["i"]}
	]}]}`

	var out, traceBuf bytes.Buffer
	err := run("", "licm", log.New(&traceBuf, "", 0), strings.NewReader(loopIR), &out)
	require.NoError(t, err)
	assert.Contains(t, traceBuf.String(), "loop-invariant")
}
