package fuzzing

import (
	"context"
	"math/rand"
	"os"
	"testing"

	"pastquestions-backend/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestRandomSwitch(t *testing.T) {
	sw := RandomSwitch(1, 3)
	rndm := rand.New(rand.NewSource(42))

	counts := [2]int{}
	for i := 0; i < 4000; i++ {
		counts[sw(rndm)]++
	}
	require.InDelta(t, 1000, counts[0], 150)
	require.InDelta(t, 3000, counts[1], 150)

	require.Panics(t, func() { RandomSwitch() })
	require.Panics(t, func() { RandomSwitch(1, 0) })
}

func TestParsePath(t *testing.T) {
	path, err := ParsePath("-81:20")
	require.NoError(t, err)
	require.Equal(t, Path{Seed: -81, Steps: 20}, path)
	require.Equal(t, "-81:20", path.String())

	for _, text := range []string{"", "1", "a:2", "1:b", "1:-2", "1:2:3"} {
		_, err := ParsePath(text)
		require.Error(t, err, text)
	}
}

type emptyTarget struct{}

func (emptyTarget) Helper(ctx context.Context, res *Results) error { return nil }

type emptyProvider struct{}

func (emptyProvider) CreateTarget(ctx context.Context, tel telemetry.API, rndm *rand.Rand) (Target, error) {
	return emptyTarget{}, nil
}

func TestNewRejectsTargetWithoutSteps(t *testing.T) {
	_, err := New(context.Background(), telemetry.NewRecorder(), emptyProvider{}, 1, 5)
	require.Error(t, err)

	_, err = New(context.Background(), telemetry.NewRecorder(), StoreProvider{}, 5, 5)
	require.Error(t, err)
}

func TestStoreInvariants(t *testing.T) {
	ctx := context.Background()
	f, err := New(ctx, telemetry.NewRecorder(), StoreProvider{}, 20, 60)
	require.NoError(t, err)

	// PASTQ_FUZZ_PATH replays a single failing path printed by a previous run.
	if text := os.Getenv("PASTQ_FUZZ_PATH"); text != "" {
		path, err := ParsePath(text)
		require.NoError(t, err)
		results, err := f.RunPath(ctx, path)
		require.NoError(t, err)
		require.Empty(t, results.Failures(), results.String())
		return
	}

	path, results, err := f.Explore(ctx, 1337, 30, 4)
	require.NoError(t, err)
	if results != nil {
		t.Fatalf("path %s failed:\n%s", path, results)
	}
}
