// Package logfanout implements the Log Fanout (spec §4.9, C9): during an
// execution, live log lines tagged with that execution id are pushed to
// any subscriber registered for the owning command. Grounded on the
// teacher's internal/realtime.EventBus (Subscribe/Unsubscribe/Publish,
// buffered channel, per-subscriber concurrent send, broken-subscriber
// removal with no retry) generalized from dashboard events to tagged
// log lines.
package logfanout

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Subscriber receives log lines for one command. Implementations (e.g.
// the WebSocket hub in internal/httpapi) must not block for long in
// Send; a slow or erroring subscriber is dropped, never retried.
type Subscriber interface {
	ID() string
	Send(commandName string, lines []string) error
}

var redactionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)token=\S+`),
	regexp.MustCompile(`(?i)password=\S+`),
	regexp.MustCompile(`(?i)key=\S+`),
	regexp.MustCompile(`(?i)secret=\S+`),
}

// lowValuePatterns match recurring chatter that would otherwise flood a
// streaming client with no diagnostic value (spec §4.9).
var lowValuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)cache (hit|miss)`),
	regexp.MustCompile(`(?i)library[- ]cache lookup`),
}

// Fanout tails the rolling log file and forwards tagged lines to
// subscribers of the owning command.
type Fanout struct {
	logPath      string
	pollInterval time.Duration
	logger       *slog.Logger

	mu          sync.Mutex
	subscribers map[string]map[Subscriber]struct{} // command -> subscribers
	streams     map[string]*stream                 // "command|execID" -> active tail
}

type stream struct {
	commandName string
	execTag     string
	cancel      context.CancelFunc
	done        chan struct{}
}

// New constructs a Fanout tailing logPath.
func New(logPath string, pollInterval time.Duration, logger *slog.Logger) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Fanout{
		logPath:      logPath,
		pollInterval: pollInterval,
		logger:       logger,
		subscribers:  make(map[string]map[Subscriber]struct{}),
		streams:      make(map[string]*stream),
	}
}

// Subscribe registers subscriber for commandName's log updates.
func (f *Fanout) Subscribe(commandName string, subscriber Subscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribers[commandName] == nil {
		f.subscribers[commandName] = make(map[Subscriber]struct{})
	}
	f.subscribers[commandName][subscriber] = struct{}{}
}

// Unsubscribe removes subscriber from every command it was registered
// under.
func (f *Fanout) Unsubscribe(subscriber Subscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for command, subs := range f.subscribers {
		delete(subs, subscriber)
		if len(subs) == 0 {
			delete(f.subscribers, command)
		}
	}
}

// StartStreaming begins tailing the log file for commandName/executionID,
// from the file's current length (spec §4.9 implementation constraint).
// A second call for the same (command, execution) is a no-op.
func (f *Fanout) StartStreaming(commandName, executionID string) error {
	key := commandName + "|" + executionID
	f.mu.Lock()
	if _, exists := f.streams[key]; exists {
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()

	offset, err := currentLength(f.logPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &stream{commandName: commandName, execTag: "[EXEC:" + executionID + "]", cancel: cancel, done: make(chan struct{})}

	f.mu.Lock()
	f.streams[key] = s
	f.mu.Unlock()

	go f.tailLoop(ctx, s, offset)
	return nil
}

// StopStreaming ends the tail loop for commandName's most recently
// started execution. Since only one execution of a command runs at a
// time (spec §8 concurrency invariant), there is at most one active
// stream per command name.
func (f *Fanout) StopStreaming(commandName string) {
	f.mu.Lock()
	var toStop []string
	for key, s := range f.streams {
		if s.commandName == commandName {
			toStop = append(toStop, key)
		}
	}
	f.mu.Unlock()

	for _, key := range toStop {
		f.mu.Lock()
		s := f.streams[key]
		delete(f.streams, key)
		f.mu.Unlock()
		if s != nil {
			s.cancel()
			<-s.done
		}
	}
}

func (f *Fanout) tailLoop(ctx context.Context, s *stream, startOffset int64) {
	defer close(s.done)
	offset := startOffset
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			chunk, newOffset, err := readFrom(f.logPath, offset)
			if err != nil {
				f.logger.Warn("log fanout tail read failed", "command", s.commandName, "error", err)
				continue
			}
			offset = newOffset
			if len(chunk) == 0 {
				continue
			}
			lines := filterLines(chunk, s.execTag)
			if len(lines) > 0 {
				f.broadcast(s.commandName, lines)
			}
		}
	}
}

func (f *Fanout) broadcast(commandName string, lines []string) {
	f.mu.Lock()
	subs := make([]Subscriber, 0, len(f.subscribers[commandName]))
	for sub := range f.subscribers[commandName] {
		subs = append(subs, sub)
	}
	f.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Send(commandName, lines); err != nil {
			f.logger.Debug("log fanout subscriber send failed, dropping", "subscriber", sub.ID(), "error", err)
			f.Unsubscribe(sub)
		}
	}
}

// filterLines splits chunk into lines, keeping only those tagged with
// execTag, and dropping low-value chatter and lines carrying a sensitive
// substring (spec §4.9: matching lines are dropped, not masked).
func filterLines(chunk []byte, execTag string) []string {
	var out []string
	scanner := bufio.NewScanner(bytes.NewReader(chunk))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, execTag) {
			continue
		}
		if isLowValue(line) || isSensitive(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func isLowValue(line string) bool {
	for _, p := range lowValuePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func isSensitive(line string) bool {
	for _, p := range redactionPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func currentLength(path string) (int64, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// readFrom reads newly appended bytes since offset, returning the new
// offset. A file shorter than offset (rotated) resets to 0.
func readFrom(path string, offset int64) ([]byte, int64, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, offset, nil
	}
	if err != nil {
		return nil, offset, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, offset, err
	}
	if info.Size() < offset {
		offset = 0
	}
	if info.Size() == offset {
		return nil, offset, nil
	}

	if _, err := f.Seek(offset, 0); err != nil {
		return nil, offset, err
	}
	buf := make([]byte, info.Size()-offset)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return nil, offset, err
	}
	return buf[:n], offset + int64(n), nil
}
