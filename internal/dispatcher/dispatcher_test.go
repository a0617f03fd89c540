package dispatcher

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recordingLogger captures log lines for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) append(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("%s: %s %v", level, msg, kv))
}

func (l *recordingLogger) Debug(msg string, kv ...any) { l.append("DEBUG", msg, kv) }
func (l *recordingLogger) Info(msg string, kv ...any)  { l.append("INFO", msg, kv) }
func (l *recordingLogger) Error(msg string, kv ...any) { l.append("ERROR", msg, kv) }

func (l *recordingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}

func (l *recordingLogger) hasLevel(level string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.HasPrefix(line, level) {
			return true
		}
	}
	return false
}

func newDispatcher(t *testing.T) (*Dispatcher, *recordingLogger) {
	t.Helper()
	log := &recordingLogger{}
	d, err := New(log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, log
}

func TestDispatch_Sync(t *testing.T) {
	d, _ := newDispatcher(t)

	var got Event
	d.Register(":RADII:", func(e Event) (any, error) {
		got = e
		return "p=10.0km s=5.6km", nil
	})

	result, err := d.Dispatch(Event{Command: ":RADII:", Args: []string{"x"}})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result != "p=10.0km s=5.6km" {
		t.Errorf("result = %v", result)
	}
	if len(got.Args) != 1 || got.Args[0] != "x" {
		t.Errorf("handler saw args %v", got.Args)
	}
}

func TestDispatch_UnknownCommand(t *testing.T) {
	d, _ := newDispatcher(t)
	if _, err := d.Dispatch(Event{Command: ":NOPE:"}); err == nil {
		t.Fatal("expected error for unregistered command")
	}
}

func TestHasHandler(t *testing.T) {
	d, _ := newDispatcher(t)
	d.Register(":STATUS:", func(Event) (any, error) { return nil, nil })

	if !d.HasHandler(":STATUS:") {
		t.Error("registered command not found")
	}
	if d.HasHandler(":RESET:") {
		t.Error("unregistered command reported as present")
	}
}

func TestDispatch_Buffered(t *testing.T) {
	d, _ := newDispatcher(t)

	var handled atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)
	d.Register(":METRIC:", func(Event) (any, error) {
		handled.Add(1)
		wg.Done()
		return nil, nil
	}, Buffered(16))

	for i := 0; i < 3; i++ {
		result, err := d.Dispatch(Event{Command: ":METRIC:"})
		if err != nil {
			t.Fatalf("Dispatch %d: %v", i, err)
		}
		if result != "queued" {
			t.Fatalf("result = %v", result)
		}
	}

	wg.Wait()
	if handled.Load() != 3 {
		t.Errorf("handled %d events", handled.Load())
	}
}

func TestDispatch_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newDispatcher(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var enteredOnce sync.Once
	d.Register(":METRIC:", func(Event) (any, error) {
		enteredOnce.Do(func() { close(entered) })
		<-release
		return nil, nil
	}, Buffered(2))
	defer close(release)

	// Park the worker inside the handler, then fill the queue.
	d.Dispatch(Event{Command: ":METRIC:"})
	<-entered
	d.Dispatch(Event{Command: ":METRIC:"})
	d.Dispatch(Event{Command: ":METRIC:"})

	if _, err := d.Dispatch(Event{Command: ":METRIC:"}); err == nil {
		t.Fatal("expected queue-full error")
	}
}

func TestDispatch_BufferedBlocking(t *testing.T) {
	d, _ := newDispatcher(t)

	release := make(chan struct{})
	d.Register(":METRIC:", func(Event) (any, error) {
		<-release
		return nil, nil
	}, Buffered(1), Blocking())
	defer close(release)

	d.Dispatch(Event{Command: ":METRIC:"}) // picked up by the worker
	d.Dispatch(Event{Command: ":METRIC:"}) // fills the queue

	blocked := make(chan struct{})
	go func() {
		d.Dispatch(Event{Command: ":METRIC:"})
		close(blocked)
	}()

	select {
	case <-blocked:
		t.Fatal("dispatch returned instead of waiting for queue space")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatch_Logged(t *testing.T) {
	d, log := newDispatcher(t)

	d.Register(":START:", func(Event) (any, error) {
		return "Simulation started", nil
	}, Logged())

	if _, err := d.Dispatch(Event{Command: ":START:"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if log.count() < 2 {
		t.Errorf("expected begin+complete log lines, got %d", log.count())
	}
}

func TestDispatch_LoggedError(t *testing.T) {
	d, log := newDispatcher(t)

	d.Register(":START:", func(Event) (any, error) {
		return nil, fmt.Errorf("no epicenter set")
	}, Logged())

	d.Dispatch(Event{Command: ":START:"})
	if !log.hasLevel("ERROR") {
		t.Error("handler failure was not logged at error level")
	}
}

func TestDispatch_BufferedAndLogged(t *testing.T) {
	d, log := newDispatcher(t)

	var wg sync.WaitGroup
	wg.Add(1)
	d.Register(":METRIC:", func(Event) (any, error) {
		wg.Done()
		return nil, nil
	}, Buffered(16), Logged())

	result, err := d.Dispatch(Event{Command: ":METRIC:"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result != "queued" {
		t.Errorf("result = %v", result)
	}

	wg.Wait()
	if log.count() < 2 {
		t.Errorf("expected log lines from the enqueue, got %d", log.count())
	}
}
