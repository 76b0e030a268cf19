package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type cachedQuestion struct {
	ID    string `json:"id"`
	Marks int    `json:"marks"`
}

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestCacheHelper_SetGet(t *testing.T) {
	_, client := newTestClient(t)
	helper := NewCacheHelper(client, QuestionCacheConfig.Prefix)
	ctx := context.Background()

	if err := helper.Set(ctx, QuestionKey("q1"), cachedQuestion{ID: "q1", Marks: 3}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got cachedQuestion
	if err := helper.Get(ctx, QuestionKey("q1"), &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != "q1" || got.Marks != 3 {
		t.Errorf("Get() = %+v", got)
	}

	if err := helper.Get(ctx, QuestionKey("missing"), &got); !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrCacheNotFound", err)
	}
}

func TestCacheHelper_NilClient(t *testing.T) {
	helper := NewCacheHelper(nil, "question:")
	ctx := context.Background()

	if err := helper.Set(ctx, "k", 1, time.Minute); err != nil {
		t.Errorf("Set() on nil client error = %v", err)
	}
	var v int
	if err := helper.Get(ctx, "k", &v); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("Get() on nil client error = %v, want ErrCacheNotAvailable", err)
	}

	calls := 0
	err := helper.CacheOrExecute(ctx, "k", &v, time.Minute, func() (interface{}, error) {
		calls++
		return 7, nil
	})
	if err != nil || v != 7 || calls != 1 {
		t.Errorf("CacheOrExecute() = %v, v=%d calls=%d", err, v, calls)
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	_, client := newTestClient(t)
	helper := NewCacheHelper(client, ExamCacheConfig.Prefix)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return cachedQuestion{ID: "e1", Marks: 10}, nil
	}

	for i := 0; i < 3; i++ {
		var got cachedQuestion
		if err := helper.CacheOrExecute(ctx, ExamKey("e1"), &got, time.Minute, fetch); err != nil {
			t.Fatalf("CacheOrExecute() error = %v", err)
		}
		if got.ID != "e1" {
			t.Fatalf("CacheOrExecute() = %+v", got)
		}
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}

	fetchErr := errors.New("boom")
	var got cachedQuestion
	err := helper.CacheOrExecute(ctx, ExamKey("e2"), &got, time.Minute, func() (interface{}, error) {
		return nil, fetchErr
	})
	if !errors.Is(err, fetchErr) {
		t.Errorf("CacheOrExecute() error = %v, want %v", err, fetchErr)
	}
}

func TestInvalidateQuestionCache(t *testing.T) {
	mr, client := newTestClient(t)
	cm := NewCacheManager(client)
	ctx := context.Background()

	_ = cm.Question.Set(ctx, QuestionKey("q1"), 1, time.Minute)
	_ = cm.Question.Set(ctx, SubjectQuestionsKey("math", "all"), []int{1}, time.Minute)
	_ = cm.Question.Set(ctx, SubjectQuestionsKey("math", "teacher:t1"), []int{1}, time.Minute)
	_ = cm.Question.Set(ctx, SubjectQuestionsKey("physics", "all"), []int{2}, time.Minute)

	InvalidateQuestionCache(ctx, cm, "q1", "math")

	tests := []struct {
		key  string
		want bool
	}{
		{"question:id:q1", false},
		{"question:subject:math:all", false},
		{"question:subject:math:teacher:t1", false},
		{"question:subject:physics:all", true},
	}
	for _, tt := range tests {
		if got := mr.Exists(tt.key); got != tt.want {
			t.Errorf("Exists(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestCacheManager_HealthCheck(t *testing.T) {
	if err := NewCacheManager(nil).HealthCheck(context.Background()); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("HealthCheck() without client = %v", err)
	}

	_, client := newTestClient(t)
	if err := NewCacheManager(client).HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() = %v", err)
	}
}
