package services

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/validator"
)

func TestServiceManager_Lifecycle(t *testing.T) {
	sm := NewServiceManager(ServiceDependencies{
		Repo:      newFakeRepo(),
		Logger:    discardLogger(),
		Validator: validator.New(),
	}, DefaultServiceManagerConfig())

	if sm.Exam() != nil {
		t.Error("Exam() before Initialize is not nil")
	}
	if err := sm.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Initialize succeeded")
	}

	if err := sm.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if sm.QuestionBank() == nil || sm.Batch() == nil || sm.Exam() == nil || sm.Session() == nil ||
		sm.Result() == nil || sm.Generation() == nil || sm.Dashboard() == nil || sm.Policy() == nil {
		t.Fatal("service missing after Initialize")
	}
	if sm.Generation().Enabled() {
		t.Error("generation enabled without a generator")
	}
	if err := sm.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		sm.RunSessionSweeper(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunSessionSweeper did not stop with its context")
	}

	if err := sm.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := sm.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() after Shutdown succeeded")
	}
}
