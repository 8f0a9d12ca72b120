package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/dfopt/internal/opt"
	"github.com/cwbudde/dfopt/internal/runner"
	"github.com/cwbudde/dfopt/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest(t *testing.T, algo string) runRequest {
	t.Helper()
	return runRequest{
		Settings: runner.Settings{
			Algorithm:      algo,
			MaxEvaluations: 2000,
			MaxMutations:   1,
			TolX:           1e-8,
			TolF:           1e-8,
			Seed:           5,
		},
		Function:   "sphere",
		Dimension:  2,
		TraceEvery: 10,
		DataDir:    t.TempDir(),
		StoreKind:  "fs",
	}
}

func TestExecuteSavesRecordAndTrace(t *testing.T) {
	for _, algo := range []string{"crs", "cso", "esch"} {
		t.Run(algo, func(t *testing.T) {
			r := testRequest(t, algo)
			var out bytes.Buffer

			record, err := execute(context.Background(), r, &out)
			require.NoError(t, err)

			runs, err := store.NewFSStore(r.DataDir)
			require.NoError(t, err)
			loaded, err := runs.LoadRun(record.ID)
			require.NoError(t, err)
			assert.Equal(t, algo, loaded.Config.Algorithm)
			assert.Equal(t, uint64(5), loaded.Config.Seed)
			assert.LessOrEqual(t, loaded.Evaluations, 2000+opt.DefaultESCHConfig().Offspring)
			assert.Contains(t, []string{"converged", "exhausted"}, loaded.StopReason)

			entries, err := store.ReadTrace(r.DataDir, record.ID)
			require.NoError(t, err)
			require.NotEmpty(t, entries)
			assert.Equal(t, loaded.BestValue, entries[len(entries)-1].Best)

			assert.Contains(t, out.String(), "x*: [")
			assert.Contains(t, out.String(), "run: "+record.ID)
		})
	}
}

func TestExecuteIsReproducibleForAFixedSeed(t *testing.T) {
	a, err := execute(context.Background(), testRequest(t, "crs"), &bytes.Buffer{})
	require.NoError(t, err)
	b, err := execute(context.Background(), testRequest(t, "crs"), &bytes.Buffer{})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.BestPoint, b.BestPoint)
	assert.Equal(t, a.Evaluations, b.Evaluations)
}

func TestExecuteMayfly(t *testing.T) {
	r := testRequest(t, "mayfly")
	r.MaxEvaluations = 600
	r.PopSize = 10

	record, err := execute(context.Background(), r, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, "exhausted", record.StopReason)
	assert.Len(t, record.BestPoint, 2)
	assert.Positive(t, record.Evaluations)
	assert.LessOrEqual(t, record.Evaluations, 600)

	_, err = store.ReadTrace(r.DataDir, record.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "mayfly runs are not traced")
}

func TestExecuteCancelledRunIsRecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := testRequest(t, "crs")
	record, err := execute(ctx, r, &bytes.Buffer{})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, record)
	assert.Equal(t, "cancelled", record.StopReason)

	runs, err := store.NewFSStore(r.DataDir)
	require.NoError(t, err)
	_, err = runs.LoadRun(record.ID)
	assert.NoError(t, err)
}

func TestExecuteNoSave(t *testing.T) {
	r := testRequest(t, "esch")
	r.NoSave = true

	var out bytes.Buffer
	_, err := execute(context.Background(), r, &out)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(r.DataDir, "runs"))
	assert.True(t, os.IsNotExist(err))
	assert.NotContains(t, out.String(), "run: ")
}

func TestExecuteRejectsBadRequests(t *testing.T) {
	r := testRequest(t, "crs")
	r.Function = "nope"
	_, err := execute(context.Background(), r, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown function")

	r = testRequest(t, "simplex")
	_, err = execute(context.Background(), r, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown algorithm")

	r = testRequest(t, "crs")
	r.PopSize = 2 // fewer than dim+1 points
	_, err = execute(context.Background(), r, &bytes.Buffer{})
	assert.ErrorIs(t, err, opt.ErrInvalidArgument)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "dfopt version "+version+"\n", out.String())
}
