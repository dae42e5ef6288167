package activation

import "time"

// Annotations are the per-activation metadata the proxy attaches before
// acking and storing a result, per the init/run accounting rules.
type Annotations struct {
	// InitTime is the duration of the initialize interval. It is nil on warm
	// runs, where no initialize step occurred — callers must not synthesize
	// a zero duration in its place, since a present-but-zero InitTime would
	// falsely claim a (degenerate) cold start.
	InitTime *time.Duration

	// WaitTime is the wall time from the originating message's arrival to
	// the start of initialize (cold) or run (warm).
	WaitTime time.Duration

	// Duration is initTime+runTime on cold runs, runTime alone on warm runs.
	Duration time.Duration

	// Limits, Path and Kind are copied from the action definition.
	Limits string
	Path   string
	Kind   string
}

// ColdAnnotations computes the annotations for a run preceded by an
// initialize step. messageArrival is the time the triggering Run message
// arrived (transid.start in the source system); initIv and runIv are the
// measured initialize and run intervals.
func ColdAnnotations(messageArrival time.Time, initIv, runIv Interval, limits, path, kind string) Annotations {
	initDur := initIv.Duration()
	return Annotations{
		InitTime: &initDur,
		WaitTime: initIv.Start.Sub(messageArrival),
		Duration: initDur + runIv.Duration(),
		Limits:   limits,
		Path:     path,
		Kind:     kind,
	}
}

// WarmAnnotations computes the annotations for a run on an already-warmed
// sandbox: no initialize step occurred, so InitTime is omitted.
func WarmAnnotations(messageArrival time.Time, runIv Interval, limits, path, kind string) Annotations {
	return Annotations{
		InitTime: nil,
		WaitTime: runIv.Start.Sub(messageArrival),
		Duration: runIv.Duration(),
		Limits:   limits,
		Path:     path,
		Kind:     kind,
	}
}
