package lsblk

import (
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nixplan/nixplan/pkg/nixplan/logging"
)

// debounceDelay batches the burst of /dev events udev emits when a device
// is plugged or removed into a single refresh notification.
const debounceDelay = 500 * time.Millisecond

// blockDevPrefixes are the device-node name prefixes worth reacting to.
var blockDevPrefixes = []string{"sd", "nvme", "vd", "hd", "mmcblk", "loop"}

// Watcher watches /dev for block devices appearing or disappearing, so the
// disk selection page can re-run enumeration while the installer is open.
type Watcher struct {
	fsw     *fsnotify.Watcher
	changes chan struct{}
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewWatcher starts watching devDir (normally "/dev") for block device
// hotplug. Callers receive coalesced notifications on Changes and must
// Close the watcher when done.
func NewWatcher(devDir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(devDir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Changes delivers one notification per batch of device add/remove events.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) run() {
	log := logging.Get("lsblk")
	var debounce *time.Timer

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Remove) {
				continue
			}
			if !isBlockDeviceName(ev.Name) {
				continue
			}
			log.Debug("device node changed", "name", ev.Name, "op", ev.Op.String())
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.notify)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn("device watch error", "error", err)
		}
	}
}

func (w *Watcher) notify() {
	select {
	case w.changes <- struct{}{}:
	default:
		// A refresh is already pending.
	}
}

func isBlockDeviceName(path string) bool {
	name := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		name = path[i+1:]
	}
	for _, prefix := range blockDevPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
