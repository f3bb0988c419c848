package settings

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay is how long the file has to stay untouched before it is reloaded. Editors tend to write
// a file in several steps.
const reloadDelay = 100 * time.Millisecond

// Watcher reloads a settings file whenever it changes on disk.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher

	// Updates receives the settings every time the file was changed and loaded successfully.
	Updates chan Settings
	// Errors receives errors loading the file and errors of the underlying watcher. It must be drained
	// alongside Updates.
	Errors chan error

	closeCh chan struct{}
	once    sync.Once
}

// Watch starts watching the settings file at path. The directory is watched rather than the file so that
// editors replacing the file are noticed too.
func Watch(path string) (*Watcher, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, err
	}

	watcher := &Watcher{
		path:    path,
		watcher: w,
		Updates: make(chan Settings, 1),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) run() {
	reload := time.NewTimer(reloadDelay)
	reload.Stop()
	defer reload.Stop()

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			reload.Reset(reloadDelay)
		case <-reload.C:
			s, err := Load(w.path)
			if err != nil {
				w.sendErr(err)
				continue
			}
			select {
			case w.Updates <- s:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendErr(err)
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) sendErr(err error) {
	select {
	case w.Errors <- err:
	case <-w.closeCh:
	}
}
