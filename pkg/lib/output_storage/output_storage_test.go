package output_storage

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"
)

func TestNewOutputStorage_Empty(t *testing.T) {
	s := RunNewOutputStorage()
	defer s.Stop()

	cnt := 0
	s.ForEach(func(b []byte) bool {
		cnt++
		return true
	})
	if cnt != 0 {
		t.Fatalf("expected 0 chunks, got %d", cnt)
	}
	if got := s.String(); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestAppendAndForEach_OrderAndEarlyStop(t *testing.T) {
	s := RunNewOutputStorage()
	defer s.Stop()
	s.Append([]byte("Collecting flask\n"))
	s.Append([]byte("Collecting requests\n"))
	s.Append([]byte("Successfully installed\n"))

	var got []string
	calls := 0
	s.ForEach(func(b []byte) bool {
		calls++
		got = append(got, string(b))
		return calls < 2
	})
	want := []string{"Collecting flask\n", "Collecting requests\n"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("early stop failed: got=%q want=%q", got, want)
	}
}

func TestNilReceiverSafety(t *testing.T) {
	var s *OutputStorage

	s.ForEach(nil)
	s.Append([]byte("x"))
	s.Stop()
	if n, err := s.Write([]byte("abc")); n != 3 || err != nil {
		t.Fatalf("nil Write: n=%d err=%v", n, err)
	}
	if got := s.Bytes(); len(got) != 0 {
		t.Fatalf("expected empty bytes from nil receiver, got %q", string(got))
	}
}

func TestWrite_CopiesCallerBuffer(t *testing.T) {
	s := RunNewOutputStorage()
	defer s.Stop()

	buf := []byte("pip: ok\n")
	if _, err := s.Write(buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	buf[0] = 'X'
	if got := s.String(); got != "pip: ok\n" {
		t.Fatalf("stored output changed with caller buffer: %q", got)
	}
}

func TestSubscribe_AfterStopReplaysEverything(t *testing.T) {
	s := RunNewOutputStorage()
	s.Append([]byte("a"))
	s.Append([]byte("b"))
	s.Stop()

	// Give the dispatch goroutine a moment to observe Stop.
	time.Sleep(20 * time.Millisecond)

	ch := s.Subscribe(1)
	var out []byte
	for b := range ch {
		out = append(out, b...)
	}
	if string(out) != "ab" {
		t.Fatalf("late subscriber got %q", out)
	}
}

func TestSubscribe_ChannelClosesOnStop(t *testing.T) {
	s := RunNewOutputStorage()
	s.Append([]byte("x"))

	ch := s.Subscribe(1)
	if v, ok := recvWithTimeout[[]byte](t, ch, 200*time.Millisecond); !ok || string(v) != "x" {
		t.Fatalf("expected initial chunk 'x', ok=%v v=%q", ok, string(v))
	}

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()

	s.Stop()

	select {
	case <-done:
	case <-time.After(300 * time.Millisecond):
		t.Fatalf("subscription channel did not close after Stop")
	}
}

func TestCopyTo_StreamsCommandOutput(t *testing.T) {
	s := RunNewOutputStorage()

	cmd := exec.Command("sh", "-c", "echo creating; echo installing 1>&2")
	cmd.Stdout = s
	cmd.Stderr = s

	var live bytes.Buffer
	copied := make(chan error, 1)
	go func() { copied <- s.CopyTo(context.Background(), &live) }()

	if err := cmd.Run(); err != nil {
		t.Fatalf("command failed: %v", err)
	}
	s.Stop()

	select {
	case err := <-copied:
		if err != nil {
			t.Fatalf("CopyTo failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("CopyTo did not return after Stop")
	}

	want := "creating\ninstalling\n"
	if live.String() != want || s.String() != want {
		t.Fatalf("output mismatch: live=%q stored=%q want=%q", live.String(), s.String(), want)
	}
}

func TestCopyTo_ContextCancel(t *testing.T) {
	s := RunNewOutputStorage()
	defer s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.CopyTo(ctx, &bytes.Buffer{}); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
