package fuzzing

import (
	"context"
	"fmt"
	"math/rand"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"pastquestions-backend/internal/components/telemetry"

	"golang.org/x/sync/errgroup"
)

// Target is a stateful object under test. Every possible mutation of its state
// is a "step", fuzzing picks steps and their inputs from a seeded random source
// and checks the invariants after each one.
//
// Steps are exposed as methods with the signature:
//
// `Step*(ctx context.Context, res *Results) error`
//
// A violated invariant is reported with res.Fail, a returned error means the
// step could not run at all (a failed setup, a broken dependency) and is also
// recorded as a failure.
//
// If a method matching the signature:
//
// `OnEnd(ctx context.Context, res *Results)`
//
// is present, it will be called at the end of the fuzz path.
type Target interface{}

func getTargetMethods(target Target) (steps []reflect.Method, onEnd *reflect.Method) {
	ctxType := reflect.TypeOf((*context.Context)(nil)).Elem()
	resType := reflect.TypeOf(&Results{})
	errType := reflect.TypeOf((*error)(nil)).Elem()

	t := reflect.TypeOf(target)
	for i := 0; i < t.NumMethod(); i++ {
		method := t.Method(i)
		methodType := method.Type

		if methodType.NumIn() != 3 || methodType.In(1) != ctxType || methodType.In(2) != resType {
			continue
		}
		if method.Name == "OnEnd" && methodType.NumOut() == 0 {
			onEnd = &method
			continue
		}
		if !strings.HasPrefix(method.Name, "Step") {
			continue
		}
		if methodType.NumOut() != 1 || methodType.Out(0) != errType {
			continue
		}
		steps = append(steps, method)
	}

	return steps, onEnd
}

// Results collects the invariant violations of a single path.
type Results struct {
	failures []error
}

func (r *Results) Fail(err error) {
	r.failures = append(r.failures, err)
}

func (r *Results) Failures() []error {
	return r.failures
}

func (r *Results) String() string {
	var out strings.Builder
	out.WriteString("====== CHECKS FAILED ======\n\n")
	for _, err := range r.failures {
		out.WriteString(fmt.Sprintf("\t- %v\n", err))
	}
	return out.String()
}

type TargetProvider interface {
	CreateTarget(ctx context.Context, tel telemetry.API, rndm *rand.Rand) (Target, error)
}

// F is a fuzzing job on a given fuzz target.
type F struct {
	tel      telemetry.API
	provider TargetProvider
	steps    []reflect.Method
	onEnd    *reflect.Method
	minSteps int
	maxSteps int
}

// New creates a fuzzing job, every explored path takes [minSteps, maxSteps) steps.
func New(ctx context.Context, tel telemetry.API, provider TargetProvider, minSteps, maxSteps int) (F, error) {
	if minSteps <= 0 || maxSteps <= minSteps {
		return F{}, fmt.Errorf("invalid step range [%d, %d)", minSteps, maxSteps)
	}

	target, err := provider.CreateTarget(ctx, tel, rand.New(rand.NewSource(0)))
	if err != nil {
		return F{}, err
	}
	steps, onEnd := getTargetMethods(target)
	if onEnd != nil {
		onEnd.Func.Call([]reflect.Value{
			reflect.ValueOf(target),
			reflect.ValueOf(ctx),
			reflect.ValueOf(&Results{}),
		})
	}
	if len(steps) == 0 {
		return F{}, fmt.Errorf("target %T has no Step methods", target)
	}

	return F{
		tel:      telemetry.NewScopedAPI("fuzzer", tel),
		provider: provider,
		steps:    steps,
		onEnd:    onEnd,
		minSteps: minSteps,
		maxSteps: maxSteps,
	}, nil
}

func (f F) runStep(ctx context.Context, target Target, step reflect.Method, results *Results) {
	outs := step.Func.Call([]reflect.Value{
		reflect.ValueOf(target),
		reflect.ValueOf(ctx),
		reflect.ValueOf(results),
	})
	if err, ok := outs[0].Interface().(error); ok && err != nil {
		results.Fail(fmt.Errorf("%s: %w", step.Name, err))
	}
}

// RunPath replays a single path, this is how a failure found by Explore is
// reproduced.
func (f F) RunPath(ctx context.Context, path Path) (*Results, error) {
	rndm := rand.New(rand.NewSource(path.Seed))
	target, err := f.provider.CreateTarget(ctx, f.tel, rndm)
	if err != nil {
		return nil, fmt.Errorf("create target: %w", err)
	}

	results := &Results{}
	for i := int64(0); i < path.Steps; i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.runStep(ctx, target, f.steps[rndm.Intn(len(f.steps))], results)
	}
	if f.onEnd != nil {
		f.onEnd.Func.Call([]reflect.Value{
			reflect.ValueOf(target),
			reflect.ValueOf(ctx),
			reflect.ValueOf(results),
		})
	}
	return results, nil
}

// Explore runs `paths` paths derived from `seed` on up to `workers` goroutines
// and returns the first path that violated an invariant, or a zero Path.
func (f F) Explore(ctx context.Context, seed int64, paths, workers int) (Path, *Results, error) {
	rndm := rand.New(rand.NewSource(seed))
	planned := make([]Path, paths)
	for i := range planned {
		planned[i] = Path{
			Seed:  rndm.Int63(),
			Steps: int64(f.minSteps + rndm.Intn(f.maxSteps-f.minSteps)),
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mutex sync.Mutex
	var failedPath Path
	var failed *Results

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for _, path := range planned {
		group.Go(func() error {
			results, err := f.RunPath(groupCtx, path)
			if err != nil {
				return err
			}
			if len(results.failures) == 0 {
				return nil
			}

			mutex.Lock()
			defer mutex.Unlock()
			if failed == nil {
				failedPath = path
				failed = results
				f.tel.ReportBroken("explore", results.String(), "path", path.String())
			}
			cancel()
			return nil
		})
	}
	err := group.Wait()
	if failed != nil {
		return failedPath, failed, nil
	}
	if err != nil {
		return Path{}, nil, err
	}
	f.tel.ReportDebug("explored paths", "count", paths)
	return Path{}, nil, nil
}

// Path is a seed and a step count, it identifies a fuzz run exactly.
type Path struct {
	Seed  int64
	Steps int64
}

func (p Path) String() string {
	return fmt.Sprintf("%d:%d", p.Seed, p.Steps)
}

// ParsePath parses the "<seed>:<steps>" form printed by Path.String.
func ParsePath(text string) (Path, error) {
	segments := strings.Split(text, ":")
	if len(segments) != 2 {
		return Path{}, fmt.Errorf("parse fuzz path '%s': expected <seed>:<steps>", text)
	}

	seed, err := strconv.ParseInt(segments[0], 10, 64)
	if err != nil {
		return Path{}, fmt.Errorf("parse fuzz path: %w", err)
	}
	steps, err := strconv.ParseInt(segments[1], 10, 64)
	if err != nil {
		return Path{}, fmt.Errorf("parse fuzz path: %w", err)
	}
	if steps < 0 {
		return Path{}, fmt.Errorf("parse fuzz path: negative step count %d", steps)
	}

	return Path{Seed: seed, Steps: steps}, nil
}
