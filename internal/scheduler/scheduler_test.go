package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/cinemarco/cinemarco/internal/testutil"
)

func TestRegisterRejectsDuplicates(t *testing.T) {
	s, err := New(testutil.NopLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Stop()

	task := Task{
		ID:   "refresh",
		Name: "Refresh",
		Cron: "0 4 * * *",
		Run:  func(ctx context.Context) error { return nil },
	}
	if err := s.Register(task); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := s.Register(task); err == nil {
		t.Error("Register() with duplicate ID should fail")
	}
}

func TestRegisterRejectsBadCron(t *testing.T) {
	s, err := New(testutil.NopLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Stop()

	err = s.Register(Task{
		ID:   "bad",
		Name: "Bad",
		Cron: "not a cron expression",
		Run:  func(ctx context.Context) error { return nil },
	})
	if err == nil {
		t.Error("Register() with invalid cron should fail")
	}
}

func TestRunNow(t *testing.T) {
	s, err := New(testutil.NopLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Stop()

	ran := make(chan struct{})
	if err := s.Register(Task{
		ID:   "refresh",
		Name: "Refresh",
		Cron: "0 4 * * *",
		Run: func(ctx context.Context) error {
			close(ran)
			return nil
		},
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := s.RunNow("refresh"); err != nil {
		t.Fatalf("RunNow() error = %v", err)
	}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}

	if err := s.RunNow("missing"); err == nil {
		t.Error("RunNow() with unknown ID should fail")
	}
}

func TestTasksReportsStatus(t *testing.T) {
	s, err := New(testutil.NopLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Stop()

	if err := s.Register(Task{
		ID:   "refresh",
		Name: "Refresh metadata",
		Cron: "0 4 * * *",
		Run:  func(ctx context.Context) error { return nil },
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tasks := s.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(tasks))
	}
	if tasks[0].ID != "refresh" || tasks[0].Cron != "0 4 * * *" {
		t.Errorf("tasks[0] = %+v", tasks[0])
	}
	if tasks[0].Running {
		t.Error("task should not be running")
	}
	if tasks[0].LastRun != nil {
		t.Error("LastRun should be nil before first run")
	}
}
