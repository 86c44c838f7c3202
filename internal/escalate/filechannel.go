package escalate

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// FileChannel delivers escalations as files in an outbox directory and
// watches an inbox directory for human responses. It is the default
// channel for local and development setups; chat or email channels plug
// in through the same Notifier interface.
//
// A response file's first line is the escalation id, the second line the
// chosen option id, and any remaining lines the rationale.
type FileChannel struct {
	outbox string
	inbox  string
}

// NewFileChannel creates the outbox and inbox directories under root.
func NewFileChannel(root string) (*FileChannel, error) {
	outbox := filepath.Join(root, "outbox")
	inbox := filepath.Join(root, "inbox")
	for _, dir := range []string{outbox, inbox} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating escalation dir %s: %w", dir, err)
		}
	}
	return &FileChannel{outbox: outbox, inbox: inbox}, nil
}

// Send writes the message to a file named after the target and returns
// the file path as the delivery id.
func (c *FileChannel) Send(ctx context.Context, target, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%d.txt", sanitize(target), countFiles(c.outbox)+1)
	path := filepath.Join(c.outbox, name)
	if err := os.WriteFile(path, []byte(message), 0o644); err != nil {
		return "", fmt.Errorf("writing escalation file: %w", err)
	}
	return path, nil
}

// Watch feeds response files dropped into the inbox to the manager until
// ctx is cancelled. Files already present at start are processed first,
// so responses written while the watcher was down are not lost.
func (c *FileChannel) Watch(ctx context.Context, m *Manager) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating response watcher: %w", err)
	}
	if err := watcher.Add(c.inbox); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", c.inbox, err)
	}

	entries, err := os.ReadDir(c.inbox)
	if err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				c.consume(filepath.Join(c.inbox, e.Name()), m)
			}
		}
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
					c.consume(event.Name, m)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[escalate] response watcher error: %v", err)
			}
		}
	}()
	return nil
}

// consume parses one response file and applies it. Processed files are
// removed so editors re-saving them do not double-apply.
func (c *FileChannel) consume(path string, m *Manager) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	lines := strings.SplitN(strings.TrimSpace(string(data)), "\n", 3)
	if len(lines) < 2 {
		log.Printf("[escalate] ignoring malformed response file %s", path)
		return
	}
	requestID := strings.TrimSpace(lines[0])
	option := strings.TrimSpace(lines[1])
	rationale := ""
	if len(lines) == 3 {
		rationale = strings.TrimSpace(lines[2])
	}

	if m.ProcessResponse(requestID, option, rationale) {
		log.Printf("[escalate] escalation %s resolved with %q", requestID, option)
		os.Remove(path)
	} else {
		log.Printf("[escalate] response file %s references no pending escalation", path)
	}
}

func sanitize(s string) string {
	if s == "" {
		return "escalation"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}

func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	return len(entries)
}
