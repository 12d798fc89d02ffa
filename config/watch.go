/*
DESCRIPTION
  watch.go provides watching of a variable file, folding changed
  name=value pairs through Config.Update whenever the file is written.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/ausocean/utils/logging"
)

// Used to indicate package in logging.
const pkg = "config: "

// Watcher watches a variable file and applies its values to a Config
// each time the file is written. A session built from a copy of the
// Config keeps the configuration it was built with.
type Watcher struct {
	w        *fsnotify.Watcher
	path     string
	cfg      *Config
	log      logging.Logger
	done     chan struct{}
	onChange func()
}

// Watch loads the variable file into c, then watches it, re-applying on
// every write. onChange, if non-nil, is called after each successful
// re-apply. Close the returned watcher to stop.
func Watch(path string, c *Config, l logging.Logger, onChange func()) (*Watcher, error) {
	w := &Watcher{path: path, cfg: c, log: l, done: make(chan struct{}), onChange: onChange}
	err := w.apply()
	if err != nil {
		return nil, err
	}

	w.w, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}
	err = w.w.Add(path)
	if err != nil {
		w.w.Close()
		return nil, fmt.Errorf("could not watch %s: %w", path, err)
	}

	go w.run()
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	return w.w.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			w.log.Debug(pkg+"variable file changed", "event", ev.Op.String())
			err := w.apply()
			if err != nil {
				w.log.Warning(pkg+"could not apply variable file", "error", err.Error())
				continue
			}
			if w.onChange != nil {
				w.onChange()
			}
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.log.Error(pkg+"file watcher error", "error", err.Error())
		}
	}
}

// apply parses the variable file and folds it through Update and
// Validate.
func (w *Watcher) apply() error {
	f, err := os.Open(w.path)
	if err != nil {
		return fmt.Errorf("could not open variable file: %w", err)
	}
	defer f.Close()

	vars, err := ParseVars(f)
	if err != nil {
		return err
	}
	w.cfg.Update(vars)
	return w.cfg.Validate()
}

// ParseVars reads name=value pairs, one per line, from r. Blank lines
// and lines starting with '#' are ignored.
func ParseVars(r io.Reader) (map[string]string, error) {
	vars := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("malformed variable line: %q", line)
		}
		vars[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return vars, sc.Err()
}
