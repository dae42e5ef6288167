package activation

import (
	"testing"
	"time"
)

func TestColdAnnotationsSatisfiesDurationLaw(t *testing.T) {
	t.Parallel()

	arrival := time.Unix(1000, 0)
	initIv := Interval{Start: arrival.Add(10 * time.Millisecond), End: arrival.Add(60 * time.Millisecond)}
	runIv := Interval{Start: initIv.End, End: initIv.End.Add(25 * time.Millisecond)}

	ann := ColdAnnotations(arrival, initIv, runIv, "256m", "ns/pkg/action", "nodejs:20")

	if ann.InitTime == nil {
		t.Fatal("cold annotations must carry InitTime")
	}
	if *ann.InitTime != initIv.Duration() {
		t.Errorf("InitTime = %v, want %v", *ann.InitTime, initIv.Duration())
	}
	wantDuration := initIv.Duration() + runIv.Duration()
	if ann.Duration != wantDuration {
		t.Errorf("Duration = %v, want %v", ann.Duration, wantDuration)
	}
	if ann.WaitTime != initIv.Start.Sub(arrival) {
		t.Errorf("WaitTime = %v, want %v", ann.WaitTime, initIv.Start.Sub(arrival))
	}
}

func TestWarmAnnotationsOmitsInitTime(t *testing.T) {
	t.Parallel()

	arrival := time.Unix(2000, 0)
	runIv := Interval{Start: arrival.Add(5 * time.Millisecond), End: arrival.Add(20 * time.Millisecond)}

	ann := WarmAnnotations(arrival, runIv, "256m", "ns/pkg/action", "nodejs:20")

	if ann.InitTime != nil {
		t.Errorf("warm annotations must not carry InitTime, got %v", *ann.InitTime)
	}
	if ann.Duration != runIv.Duration() {
		t.Errorf("Duration = %v, want %v (runTime alone)", ann.Duration, runIv.Duration())
	}
}
