package workflow_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vibetube/internal/acquire"
	"vibetube/internal/catalog"
	"vibetube/internal/logging"
	"vibetube/internal/sources"
	"vibetube/internal/workflow"
)

type countingTask struct {
	name  string
	wait  time.Duration
	err   error
	calls atomic.Int32
}

func (c *countingTask) Name() string { return c.name }

func (c *countingTask) RunOnce(context.Context) (time.Duration, error) {
	c.calls.Add(1)
	return c.wait, c.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestManagerStartsAndStopsLoopsIndependently(t *testing.T) {
	queue := &countingTask{name: workflow.LoopQueue, wait: time.Millisecond}
	poller := &countingTask{name: workflow.LoopPoller, wait: time.Hour}
	m := workflow.NewManager(logging.NewNop(), 5*time.Millisecond, queue, poller)

	m.Start(context.Background())
	defer m.Stop()
	waitFor(t, func() bool { return queue.calls.Load() >= 3 })

	stopped, err := m.StopLoop(workflow.LoopQueue)
	if err != nil || !stopped {
		t.Fatalf("StopLoop: %v %v", stopped, err)
	}
	after := queue.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if queue.calls.Load() != after {
		t.Fatal("stopped loop kept running")
	}
	if poller.calls.Load() != 1 {
		t.Fatalf("poller ran %d times, want 1", poller.calls.Load())
	}

	status := m.Status()
	if len(status) != 2 || status[0].Running || !status[1].Running {
		t.Fatalf("unexpected status %+v", status)
	}

	started, err := m.StartLoop(workflow.LoopQueue)
	if err != nil || !started {
		t.Fatalf("StartLoop: %v %v", started, err)
	}
	if again, _ := m.StartLoop(workflow.LoopQueue); again {
		t.Fatal("second start should report already running")
	}
	if _, err := m.StartLoop("bogus"); !errors.Is(err, workflow.ErrUnknownLoop) {
		t.Fatalf("expected ErrUnknownLoop, got %v", err)
	}
}

func TestLoopSurvivesErrors(t *testing.T) {
	task := &countingTask{name: "flaky", wait: time.Millisecond, err: errors.New("boom")}
	loop := workflow.NewLoop(task, 5*time.Millisecond, logging.NewNop())
	loop.Start(context.Background())
	waitFor(t, func() bool { return task.calls.Load() >= 3 })
	loop.Stop()

	status := loop.Status()
	if status.LastError != "boom" || status.Running {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestSleepObservesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	if workflow.Sleep(ctx, time.Hour, 5*time.Millisecond) {
		t.Fatal("expected Sleep to report cancellation")
	}
	if time.Since(start) > time.Second {
		t.Fatal("Sleep did not return promptly after cancel")
	}
	if !workflow.Sleep(context.Background(), 10*time.Millisecond, 5*time.Millisecond) {
		t.Fatal("expected uncancelled Sleep to complete")
	}
}

type fakeSettings struct {
	auto  bool
	delay time.Duration
}

func (f fakeSettings) AutoDownload(context.Context) (bool, error) { return f.auto, nil }
func (f fakeSettings) DownloadDelay(_ context.Context, floor time.Duration) (time.Duration, error) {
	if f.delay < floor {
		return floor, nil
	}
	return f.delay, nil
}
func (f fakeSettings) CheckInterval(context.Context) (time.Duration, error) { return time.Hour, nil }
func (f fakeSettings) ScanInterval(context.Context) (time.Duration, error)  { return 24 * time.Hour, nil }

type fakeSelector struct {
	item *catalog.Item
	err  error
}

func (f fakeSelector) NextEligible(context.Context) (*catalog.Item, error) { return f.item, f.err }

type blockingWorker struct {
	mu       sync.Mutex
	started  chan struct{}
	release  chan struct{}
	finished bool
}

func (b *blockingWorker) Acquire(ctx context.Context, id string) (acquire.Outcome, error) {
	close(b.started)
	<-b.release
	if ctx.Err() != nil {
		return acquire.Outcome{Detail: "cancelled"}, nil
	}
	b.mu.Lock()
	b.finished = true
	b.mu.Unlock()
	return acquire.Outcome{Success: true, OutputPath: "/x/" + id + ".mp4"}, nil
}

func TestQueueTaskPacing(t *testing.T) {
	pacing := workflow.QueuePacing{Idle: 10 * time.Second, Cooldown: 11 * time.Second, MinDelay: 5 * time.Second}
	ctx := context.Background()

	disabled := workflow.NewQueueTask(fakeSettings{auto: false}, fakeSelector{}, nil, pacing, logging.NewNop())
	if wait, err := disabled.RunOnce(ctx); err != nil || wait != pacing.Idle {
		t.Fatalf("disabled: wait=%v err=%v", wait, err)
	}

	empty := workflow.NewQueueTask(fakeSettings{auto: true, delay: time.Minute}, fakeSelector{}, nil, pacing, logging.NewNop())
	if wait, err := empty.RunOnce(ctx); err != nil || wait != pacing.Idle {
		t.Fatalf("empty: wait=%v err=%v", wait, err)
	}

	broken := workflow.NewQueueTask(fakeSettings{auto: true}, fakeSelector{err: errors.New("db locked")}, nil, pacing, logging.NewNop())
	if wait, err := broken.RunOnce(ctx); err == nil || wait != pacing.Cooldown {
		t.Fatalf("broken: wait=%v err=%v", wait, err)
	}

	worker := &blockingWorker{started: make(chan struct{}), release: make(chan struct{})}
	close(worker.release)
	busy := workflow.NewQueueTask(fakeSettings{auto: true, delay: time.Second}, fakeSelector{item: &catalog.Item{ExternalID: "v1"}}, worker, pacing, logging.NewNop())
	wait, err := busy.RunOnce(ctx)
	if err != nil || wait != pacing.MinDelay {
		t.Fatalf("busy: wait=%v err=%v", wait, err)
	}
	if busy.LastResult() != "acquired v1" {
		t.Fatalf("unexpected last result %q", busy.LastResult())
	}
}

func TestStoppingQueueLoopWaitsForAcquisition(t *testing.T) {
	worker := &blockingWorker{started: make(chan struct{}), release: make(chan struct{})}
	task := workflow.NewQueueTask(
		fakeSettings{auto: true, delay: time.Hour},
		fakeSelector{item: &catalog.Item{ExternalID: "v1"}},
		worker,
		workflow.QueuePacing{Idle: time.Hour, Cooldown: time.Hour},
		logging.NewNop(),
	)
	loop := workflow.NewLoop(task, 5*time.Millisecond, logging.NewNop())
	loop.Start(context.Background())
	<-worker.started

	stopped := make(chan struct{})
	go func() {
		loop.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while acquisition in flight")
	case <-time.After(30 * time.Millisecond):
	}
	close(worker.release)
	<-stopped

	worker.mu.Lock()
	defer worker.mu.Unlock()
	if !worker.finished {
		t.Fatal("in-flight acquisition was cancelled")
	}
}

type fakeRefresher struct{ err error }

func (f fakeRefresher) Refresh(context.Context) (sources.RefreshResult, error) {
	return sources.RefreshResult{Sources: 2, NewItems: 1}, f.err
}

type fakeScanner struct{ err error }

func (f fakeScanner) Scan(context.Context) (int, error) { return 3, f.err }

func TestPollAndScanTasks(t *testing.T) {
	ctx := context.Background()
	poll := workflow.NewPollTask(fakeSettings{}, fakeRefresher{}, time.Minute)
	if wait, err := poll.RunOnce(ctx); err != nil || wait != time.Hour {
		t.Fatalf("poll: wait=%v err=%v", wait, err)
	}
	if poll.LastResult() != "2 sources, 1 new items" {
		t.Fatalf("unexpected poll result %q", poll.LastResult())
	}
	failing := workflow.NewPollTask(fakeSettings{}, fakeRefresher{err: errors.New("x")}, time.Minute)
	if wait, err := failing.RunOnce(ctx); err == nil || wait != time.Minute {
		t.Fatalf("failing poll: wait=%v err=%v", wait, err)
	}

	scan := workflow.NewScanTask(fakeSettings{}, fakeScanner{}, time.Minute)
	if wait, err := scan.RunOnce(ctx); err != nil || wait != 24*time.Hour {
		t.Fatalf("scan: wait=%v err=%v", wait, err)
	}
	if scan.LastResult() != "3 items marked missing" {
		t.Fatalf("unexpected scan result %q", scan.LastResult())
	}
}

type overlapTask struct {
	active  atomic.Int32
	overlap atomic.Bool
	calls   atomic.Int32
}

func (o *overlapTask) Name() string { return workflow.LoopQueue }

func (o *overlapTask) RunOnce(context.Context) (time.Duration, error) {
	if o.active.Add(1) > 1 {
		o.overlap.Store(true)
	}
	o.calls.Add(1)
	time.Sleep(2 * time.Millisecond)
	o.active.Add(-1)
	return time.Millisecond, nil
}

func TestLoopRestartDuringStopNeverOverlaps(t *testing.T) {
	task := &overlapTask{}
	loop := workflow.NewLoop(task, time.Millisecond, logging.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				loop.Start(context.Background())
				time.Sleep(time.Millisecond)
				loop.Stop()
			}
		}()
	}
	wg.Wait()
	loop.Stop()

	if task.overlap.Load() {
		t.Fatal("two iterations of the same loop ran at once")
	}
	if task.calls.Load() == 0 {
		t.Fatal("loop never ran")
	}
	if loop.Running() {
		t.Fatal("loop still running after final stop")
	}
	if task.active.Load() != 0 {
		t.Fatal("iteration still active after Stop returned")
	}
}
