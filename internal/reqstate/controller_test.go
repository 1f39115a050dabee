package reqstate

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"finsight/internal/api"
)

func TestController_InitialState(t *testing.T) {
	c := New(func(ctx context.Context, n int) (int, error) { return n, nil })
	s := c.State()
	if !s.Idle() {
		t.Errorf("new controller state = %+v, want idle", s)
	}
}

func TestController_Success(t *testing.T) {
	var called []string
	c := New(
		func(ctx context.Context, name string) (string, error) { return "hello " + name, nil },
		OnSuccess(func(v string) { called = append(called, v) }),
	)

	got, err := c.Execute(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got != "hello alice" {
		t.Errorf("Execute() = %q", got)
	}
	s := c.State()
	if !s.HasData || s.Data != "hello alice" || s.IsLoading || s.Err != nil {
		t.Errorf("state = %+v", s)
	}
	if len(called) != 1 || called[0] != "hello alice" {
		t.Errorf("OnSuccess calls = %v", called)
	}
}

func TestController_ErrorKeepsAPIError(t *testing.T) {
	want := &api.APIError{Message: "Bad Request", StatusCode: 400, Detail: "email already in use"}
	var seen *api.APIError
	c := New(
		func(ctx context.Context, _ NoArgs) (int, error) { return 0, want },
		OnError[int](func(e *api.APIError) { seen = e }),
	)

	_, err := c.Execute(context.Background(), NoArgs{})
	if err != want {
		t.Fatalf("Execute() error = %v, want the backend error unchanged", err)
	}
	s := c.State()
	if s.Err != want || s.HasData || s.IsLoading {
		t.Errorf("state = %+v", s)
	}
	if seen != want {
		t.Errorf("OnError got %v", seen)
	}
}

func TestController_NormalisesUnknownErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"plain error", errors.New("boom"), "boom"},
		{"empty message", errors.New(""), "Unknown error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(func(ctx context.Context, _ NoArgs) (int, error) { return 0, tt.err })
			_, err := c.Execute(context.Background(), NoArgs{})
			apiErr, ok := api.AsAPIError(err)
			if !ok {
				t.Fatalf("error = %T, want *api.APIError", err)
			}
			if apiErr.StatusCode != http.StatusInternalServerError {
				t.Errorf("StatusCode = %d, want 500", apiErr.StatusCode)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
		})
	}
}

func TestController_ErrorClearsData(t *testing.T) {
	fail := false
	c := New(func(ctx context.Context, _ NoArgs) (int, error) {
		if fail {
			return 0, &api.APIError{Message: "Not Found", StatusCode: 404}
		}
		return 42, nil
	})

	if _, err := c.Execute(context.Background(), NoArgs{}); err != nil {
		t.Fatal(err)
	}
	fail = true
	_, _ = c.Execute(context.Background(), NoArgs{})

	s := c.State()
	if s.HasData || s.Data != 0 {
		t.Errorf("data survived a failure: %+v", s)
	}
	if s.Err == nil || s.Err.StatusCode != 404 {
		t.Errorf("Err = %v", s.Err)
	}
}

func TestController_LoadingKeepsPreviousData(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	calls := 0
	c := New(func(ctx context.Context, _ NoArgs) (int, error) {
		calls++
		if calls == 2 {
			close(started)
			<-release
		}
		return calls, nil
	})

	if _, err := c.Execute(context.Background(), NoArgs{}); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Execute(context.Background(), NoArgs{})
	}()
	<-started

	s := c.State()
	if !s.IsLoading {
		t.Error("IsLoading = false while in flight")
	}
	if !s.HasData || s.Data != 1 {
		t.Errorf("previous data not kept while loading: %+v", s)
	}
	if s.Err != nil {
		t.Errorf("Err = %v while loading", s.Err)
	}

	close(release)
	<-done
	if s := c.State(); s.IsLoading || s.Data != 2 {
		t.Errorf("final state = %+v", s)
	}
}

func TestController_LoadingClearsPreviousError(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	first := true
	c := New(func(ctx context.Context, _ NoArgs) (int, error) {
		if first {
			first = false
			return 0, errors.New("first failure")
		}
		close(started)
		<-release
		return 1, nil
	})

	_, _ = c.Execute(context.Background(), NoArgs{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Execute(context.Background(), NoArgs{})
	}()
	<-started
	if s := c.State(); s.Err != nil || !s.IsLoading {
		t.Errorf("state while retrying = %+v", s)
	}
	close(release)
	<-done
}

func TestController_Reset(t *testing.T) {
	c := New(func(ctx context.Context, _ NoArgs) (int, error) {
		return 0, errors.New("x")
	})
	_, _ = c.Execute(context.Background(), NoArgs{})
	c.Reset()
	if s := c.State(); !s.Idle() {
		t.Errorf("state after Reset = %+v", s)
	}
}

func TestController_LatestSettledWins(t *testing.T) {
	slow := make(chan struct{})
	c := New(func(ctx context.Context, n int) (int, error) {
		if n == 1 {
			<-slow
		}
		return n, nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = c.Execute(context.Background(), 1)
	}()

	// The second call settles first; the slow first call settles last.
	if _, err := c.Execute(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	close(slow)
	wg.Wait()

	if got := c.State().Data; got != 1 {
		t.Errorf("Data = %d, want 1 (the last to settle)", got)
	}
}

func TestController_Serialized(t *testing.T) {
	var mu sync.Mutex
	active, maxActive := 0, 0
	c := New(func(ctx context.Context, n int) (int, error) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return n, nil
	}, Serialized[int]())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _ = c.Execute(context.Background(), n)
		}(i)
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("max concurrent operations = %d, want 1", maxActive)
	}
	if s := c.State(); s.IsLoading || !s.HasData {
		t.Errorf("final state = %+v", s)
	}
}

func TestBind0(t *testing.T) {
	op := Bind0(func(ctx context.Context) (string, error) { return "ok", nil })
	c := New(op)
	got, err := c.Execute(context.Background(), NoArgs{})
	if err != nil || got != "ok" {
		t.Errorf("Execute() = %q, %v", got, err)
	}
}
