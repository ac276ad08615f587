package rules

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/shoresys/httpd/pkg/reqres"
)

// Logger is the subset of logrus.FieldLogger the loader needs; passing a
// *logrus.Logger from pkg/serverlog satisfies it without pkg/rules taking
// a direct logging dependency.
type Logger interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// LoadFile reads and parses the rule file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// Set holds the compiled rule set currently in effect and serializes
// reads against reloads. A worker goroutine calls Apply once per
// request; the watcher goroutine (if any) calls Swap after a successful
// reload.
type Set struct {
	mu   sync.RWMutex
	file *File
}

// NewSet wraps an already-parsed File.
func NewSet(file *File) *Set {
	return &Set{file: file}
}

// Apply evaluates the current rule set against req/resp.
func (s *Set) Apply(req *reqres.Request, resp *reqres.Response, logFn Callable) error {
	s.mu.RLock()
	file := s.file
	s.mu.RUnlock()

	if file == nil {
		return nil
	}
	return Eval(file, req, resp, logFn)
}

func (s *Set) swap(file *File) {
	s.mu.Lock()
	s.file = file
	s.mu.Unlock()
}

// LoadOnce loads path a single time, logging a parse/semantic failure at
// Error level and leaving the rule set empty rather than returning an
// error, matching Watch's startup-load behavior but without a watcher
// goroutine.
func LoadOnce(path string, log Logger) *Set {
	set := NewSet(nil)

	file, err := LoadFile(path)
	if err != nil {
		log.Errorf("rules: failed to load %s: %v", path, err)
		return set
	}
	set.swap(file)
	log.Infof("rules: loaded %s (%d rules)", path, len(file.Rules))
	return set
}

// Watch loads path, logging parse/semantic errors at load and leaving the
// rule set empty when the initial load fails, then watches the file for
// writes and hot-reloads on each one, logging success/failure exactly as
// at startup. The returned Set reflects the most recently successful
// load; the watcher goroutine runs until stop is closed.
func Watch(path string, log Logger) (*Set, func(), error) {
	set := NewSet(nil)

	if file, err := LoadFile(path); err != nil {
		log.Errorf("rules: failed to load %s: %v", path, err)
	} else {
		set.swap(file)
		log.Infof("rules: loaded %s (%d rules)", path, len(file.Rules))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return set, func() {}, err
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return set, func() {}, err
	}

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				file, err := LoadFile(path)
				if err != nil {
					log.Errorf("rules: failed to reload %s: %v", path, err)
					continue
				}
				set.swap(file)
				log.Infof("rules: reloaded %s (%d rules)", path, len(file.Rules))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Errorf("rules: watcher error: %v", err)
			case <-stop:
				_ = watcher.Close()
				return
			}
		}
	}()

	return set, func() { close(stop) }, nil
}
