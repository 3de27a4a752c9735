package submission

import (
	"context"
	"errors"
	"testing"
)

func TestSupervisorSingleSlot(t *testing.T) {
	s := NewSupervisor()
	release := make(chan struct{})
	started := make(chan struct{})
	results := make(chan Result, 1)

	id, err := s.Start(context.Background(), "submit B01-01", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}, func(r Result) { results <- r })
	if err != nil || id == "" {
		t.Fatalf("Start() = %q, %v", id, err)
	}
	<-started

	if !s.Busy() {
		t.Error("Busy() = false while a task runs")
	}
	if task, ok := s.Current(); !ok || task.ID != id || task.Name != "submit B01-01" {
		t.Errorf("Current() = %+v, %v", task, ok)
	}

	ran := false
	if _, err := s.Start(context.Background(), "submit B01-02", func(ctx context.Context) error {
		ran = true
		return nil
	}, nil); !errors.Is(err, ErrBusy) {
		t.Errorf("second Start() error = %v, want ErrBusy", err)
	}

	close(release)
	s.Wait()

	if ran {
		t.Error("rejected task ran")
	}
	r := <-results
	if r.Task.ID != id || r.Err != nil {
		t.Errorf("result = %+v", r)
	}
	if s.Busy() {
		t.Error("Busy() = true after the task finished")
	}

	if _, err := s.Start(context.Background(), "submit B01-02", func(ctx context.Context) error { return nil }, nil); err != nil {
		t.Errorf("Start() after release error = %v", err)
	}
	s.Wait()
}

func TestSupervisorReportsFailures(t *testing.T) {
	s := NewSupervisor()
	boom := errors.New("portal down")

	var failed, panicked Result
	if _, err := s.Start(context.Background(), "fails", func(ctx context.Context) error { return boom },
		func(r Result) { failed = r }); err != nil {
		t.Fatal(err)
	}
	s.Wait()
	if !errors.Is(failed.Err, boom) {
		t.Errorf("failed.Err = %v, want %v", failed.Err, boom)
	}

	if _, err := s.Start(context.Background(), "panics", func(ctx context.Context) error { panic("nil map") },
		func(r Result) { panicked = r }); err != nil {
		t.Fatal(err)
	}
	s.Wait()
	if panicked.Err == nil {
		t.Error("panic was not reported as an error")
	}
	if s.Busy() {
		t.Error("slot not released after a panic")
	}
}

func TestSupervisorCallbackMayStartNextTask(t *testing.T) {
	s := NewSupervisor()
	second := make(chan error, 1)

	_, err := s.Start(context.Background(), "first", func(ctx context.Context) error { return nil }, func(Result) {
		_, err := s.Start(context.Background(), "second", func(ctx context.Context) error { return nil }, nil)
		second <- err
	})
	if err != nil {
		t.Fatal(err)
	}
	s.Wait()
	if err := <-second; err != nil {
		t.Errorf("Start() from callback error = %v", err)
	}
}
