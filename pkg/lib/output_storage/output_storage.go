// Package output_storage captures the combined output of short-lived helper
// commands (environment creation, dependency installation) so it can be
// replayed verbatim on failure and streamed live to the terminal.
package output_storage

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/Protezhe/OrionSupport/pkg/lib/logging"
)

var logger = logging.New("output")

// chunk is an element of the append-only singly linked list.
type chunk struct {
	data []byte
	next atomic.Pointer[chunk]
}

// OutputStorage is an append-only list of output chunks with a single writer and
// any number of concurrent readers. Readers never block the writer.
type OutputStorage struct {
	head *chunk // sentinel, never carries data
	tail *chunk

	notifier *Broadcaster[struct{}]
}

// RunNewOutputStorage creates an empty OutputStorage and starts its notifier.
func RunNewOutputStorage() *OutputStorage {
	sentinel := &chunk{}
	return &OutputStorage{
		head:     sentinel,
		tail:     sentinel,
		notifier: RunNewBroadcaster[struct{}](),
	}
}

// Stop marks the output as complete. Subscribers drain what is stored and then see their channel closed.
func (s *OutputStorage) Stop() {
	if s == nil {
		return
	}
	s.notifier.Stop()
}

// Append stores data as-is. Only one goroutine may append at a time; exec.Cmd
// guarantees that when Stdout and Stderr are the same writer.
func (s *OutputStorage) Append(data []byte) {
	if s == nil {
		return
	}

	c := &chunk{data: data}
	s.tail.next.Store(c)
	s.tail = c

	s.notifier.Publish(struct{}{})
}

func (s *OutputStorage) follow(wake chan struct{}, ch chan []byte) {
	prev := s.head
	for {
		cur := prev.next.Load()
		if cur == nil {
			if _, ok := <-wake; !ok {
				// Writer is done; flush anything appended after the last wake-up.
				for cur = prev.next.Load(); cur != nil; cur = cur.next.Load() {
					ch <- cur.data
				}
				close(ch)
				return
			}
			continue
		}
		prev = cur
		ch <- cur.data
	}
}

func (s *OutputStorage) replay(ch chan []byte) {
	for cur := s.head.next.Load(); cur != nil; cur = cur.next.Load() {
		ch <- cur.data
	}
	close(ch)
}

// Subscribe returns a channel that delivers every chunk from the beginning and is
// closed once the storage is stopped and fully delivered.
func (s *OutputStorage) Subscribe(capacity int) <-chan []byte {
	ch := make(chan []byte, capacity)
	wake, err := s.notifier.Subscribe()
	if err != nil {
		logger.Debug("subscribing to completed output")
		go s.replay(ch)
	} else {
		go s.follow(wake, ch)
	}
	return ch
}

// CopyTo streams the output to w until the storage is stopped or ctx is done.
func (s *OutputStorage) CopyTo(ctx context.Context, w io.Writer) error {
	ch := s.Subscribe(16)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := w.Write(b); err != nil {
				return err
			}
		}
	}
}

// ForEach iterates over stored chunks in insertion order until iter returns false.
func (s *OutputStorage) ForEach(iter func([]byte) bool) {
	if s == nil || iter == nil {
		return
	}
	for cur := s.head.next.Load(); cur != nil; cur = cur.next.Load() {
		if !iter(cur.data) {
			return
		}
	}
}

// Bytes concatenates everything stored so far.
func (s *OutputStorage) Bytes() []byte {
	var out []byte
	s.ForEach(func(b []byte) bool {
		out = append(out, b...)
		return true
	})
	return out
}

func (s *OutputStorage) String() string {
	return string(s.Bytes())
}
