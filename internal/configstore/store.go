// Package configstore holds the set of known LocalStack instances, which one
// is active, and keeps both in durable key/value slots.
package configstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arencloud/stackdeck/internal/logging"
	"github.com/arencloud/stackdeck/internal/models"
)

const (
	// StorageKey is the slot holding the configuration document.
	StorageKey = "localstack-config-v2"
	// currentKey holds the name of the selected instance.
	currentKey = StorageKey + ":current"
)

// ErrDuplicateInstance is returned when a name is already taken by another instance.
var ErrDuplicateInstance = errors.New("instance name already in use")

// Slots is durable string storage addressed by fixed keys.
type Slots interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// EventKind names the kind of change an Event reports.
type EventKind string

const (
	EventLoaded          EventKind = "loaded"
	EventCurrentChanged  EventKind = "current"
	EventInstanceAdded   EventKind = "instance.added"
	EventInstanceRemoved EventKind = "instance.removed"
	EventInstanceUpdated EventKind = "instance.updated"
	EventReset           EventKind = "reset"
)

// Event is published after every successful state change.
type Event struct {
	Kind     EventKind `json:"kind"`
	Instance string    `json:"instance,omitempty"`
	Current  string    `json:"current,omitempty"`
}

// Default returns the bundled configuration: a single LocalStack on the
// standard edge port with dummy credentials.
func Default() models.Configuration {
	return models.Configuration{
		Instances: []models.Instance{{
			Name:            "localstack",
			Endpoint:        "http://localhost:4566",
			Region:          "us-east-1",
			AccessKeyID:     "test",
			SecretAccessKey: "test",
		}},
		DefaultInstanceName: "localstack",
	}
}

// Store is the single source of truth for the instance list and the current
// selection. All mutation goes through its methods; each one persists before
// the in-memory state changes.
type Store struct {
	mu      sync.Mutex
	slots   Slots
	logger  logging.Logger
	cfg     models.Configuration
	current *models.Instance

	subMu sync.RWMutex
	subs  map[chan Event]struct{}
}

// New reads the persisted configuration, seeding the slot from Default when
// it is empty. A stored document that no longer decodes is logged and
// replaced in memory by Default; the slot is left alone until the next write.
func New(ctx context.Context, slots Slots, logger logging.Logger) (*Store, error) {
	s := &Store{slots: slots, logger: logger.With("component", "configstore"), subs: map[chan Event]struct{}{}}

	raw, ok, err := slots.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}
	switch {
	case !ok:
		s.cfg = Default()
		if err := s.persistConfig(ctx, s.cfg); err != nil {
			return nil, err
		}
		s.logger.Info("configuration seeded from defaults")
	default:
		cfg, err := Decode([]byte(raw))
		if err != nil {
			s.logger.Error("stored configuration unreadable, using defaults", "error", err)
			cfg = Default()
		}
		s.cfg = cfg
	}

	if name, ok, err := slots.Get(ctx, currentKey); err == nil && ok {
		if inst, found := s.cfg.Find(name); found {
			s.current = &inst
		}
	}
	if s.current == nil {
		if inst, found := s.cfg.Find(s.cfg.DefaultInstanceName); found {
			s.current = &inst
		}
	}
	return s, nil
}

// Configuration returns a copy of the whole configuration.
func (s *Store) Configuration() models.Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone()
}

// Current returns the active instance; ok is false when none is selected.
func (s *Store) Current() (models.Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.Instance{}, false
	}
	return *s.current, true
}

// Instance looks up an instance by exact name.
func (s *Store) Instance(name string) (models.Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Find(name)
}

// Load replaces the whole configuration. When the default name resolves the
// matching instance becomes current; otherwise the selection is kept as is.
func (s *Store) Load(ctx context.Context, cfg models.Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg = cfg.Clone()
	current := s.current
	if inst, ok := cfg.Find(cfg.DefaultInstanceName); ok {
		current = &inst
	}
	if err := s.commit(ctx, cfg, current); err != nil {
		return err
	}
	s.logger.Info("configuration loaded", "instances", len(cfg.Instances), "default", cfg.DefaultInstanceName)
	s.publish(Event{Kind: EventLoaded})
	return nil
}

// Import decodes a configuration document and loads it. Malformed input
// returns *ParseError and leaves the store untouched.
func (s *Store) Import(ctx context.Context, data []byte) error {
	cfg, err := Decode(data)
	if err != nil {
		s.logger.Error("configuration import rejected", "error", err)
		return err
	}
	return s.Load(ctx, cfg)
}

// Export renders the current configuration in the import shape.
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Encode(s.cfg)
}

// SetCurrent selects the named instance. An unknown name is a silent no-op so
// stale references to deleted instances cannot break callers; the return
// value reports whether the name resolved.
func (s *Store) SetCurrent(ctx context.Context, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.cfg.Find(name)
	if !ok {
		s.logger.Debug("select ignored, unknown instance", "instance", name)
		return false
	}
	s.current = &inst
	s.persistCurrent(ctx, s.current)
	s.publish(Event{Kind: EventCurrentChanged})
	return true
}

// AddInstance appends inst. Names must be unique; the new instance is not selected.
func (s *Store) AddInstance(ctx context.Context, inst models.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cfg.Find(inst.Name); exists {
		return fmt.Errorf("%w: %q", ErrDuplicateInstance, inst.Name)
	}
	cfg := s.cfg.Clone()
	cfg.Instances = append(cfg.Instances, inst)
	if err := s.commit(ctx, cfg, s.current); err != nil {
		return err
	}
	s.publish(Event{Kind: EventInstanceAdded, Instance: inst.Name})
	return nil
}

// RemoveInstance drops every instance named name. Removing the current
// instance clears the selection. An unknown name changes nothing.
func (s *Store) RemoveInstance(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := models.Configuration{DefaultInstanceName: s.cfg.DefaultInstanceName, Instances: make([]models.Instance, 0, len(s.cfg.Instances))}
	for _, i := range s.cfg.Instances {
		if i.Name != name {
			cfg.Instances = append(cfg.Instances, i)
		}
	}
	if len(cfg.Instances) == len(s.cfg.Instances) {
		return nil
	}
	current := s.current
	if current != nil && current.Name == name {
		current = nil
	}
	if err := s.commit(ctx, cfg, current); err != nil {
		return err
	}
	s.publish(Event{Kind: EventInstanceRemoved, Instance: name})
	return nil
}

// UpdateInstance replaces the instance(s) named name in place. When name is
// the current instance the selection follows the new values, and a rename
// carries the default name along.
func (s *Store) UpdateInstance(ctx context.Context, name string, inst models.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst.Name != name {
		if _, exists := s.cfg.Find(inst.Name); exists {
			return fmt.Errorf("%w: %q", ErrDuplicateInstance, inst.Name)
		}
	}
	cfg := s.cfg.Clone()
	matched := false
	for idx := range cfg.Instances {
		if cfg.Instances[idx].Name == name {
			cfg.Instances[idx] = inst
			matched = true
		}
	}
	if !matched {
		return nil
	}
	if cfg.DefaultInstanceName == name {
		cfg.DefaultInstanceName = inst.Name
	}
	current := s.current
	if current != nil && current.Name == name {
		updated := inst
		current = &updated
	}
	if err := s.commit(ctx, cfg, current); err != nil {
		return err
	}
	s.publish(Event{Kind: EventInstanceUpdated, Instance: inst.Name})
	return nil
}

// ResetToDefaults overwrites the persisted slots with Default and selects its
// default instance. A failed write leaves both the slots and memory as they were.
func (s *Store) ResetToDefaults(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := Default()
	var current *models.Instance
	if inst, ok := cfg.Find(cfg.DefaultInstanceName); ok {
		current = &inst
	}
	if err := s.persistConfig(ctx, cfg); err != nil {
		return err
	}
	s.cfg = cfg
	s.persistCurrent(ctx, current)
	s.current = current
	s.logger.Info("configuration reset to defaults")
	s.publish(Event{Kind: EventReset})
	return nil
}

// commit persists cfg and installs it with the given selection. Must be
// called with mu held.
func (s *Store) commit(ctx context.Context, cfg models.Configuration, current *models.Instance) error {
	if err := s.persistConfig(ctx, cfg); err != nil {
		return err
	}
	s.cfg = cfg
	if !sameSelection(s.current, current) {
		s.persistCurrent(ctx, current)
	}
	s.current = current
	return nil
}

func (s *Store) persistConfig(ctx context.Context, cfg models.Configuration) error {
	b, err := Encode(cfg)
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	if err := s.slots.Put(ctx, StorageKey, string(b)); err != nil {
		return fmt.Errorf("persist configuration: %w", err)
	}
	return nil
}

// persistCurrent records the selected name. Failures are logged only: the
// selection is re-derivable from the default name.
func (s *Store) persistCurrent(ctx context.Context, current *models.Instance) {
	var err error
	if current == nil {
		err = s.slots.Delete(ctx, currentKey)
	} else {
		err = s.slots.Put(ctx, currentKey, current.Name)
	}
	if err != nil {
		s.logger.Error("persist current instance failed", "error", err)
	}
}

func sameSelection(a, b *models.Instance) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Subscribe returns a channel receiving store events. Call the returned cancel func to unsubscribe.
func (s *Store) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, ch)
			close(ch)
			s.subMu.Unlock()
		})
	}
	return ch, cancel
}

// publish fills in the current name and fans out without blocking. Must be
// called with mu held.
func (s *Store) publish(e Event) {
	if s.current != nil {
		e.Current = s.current.Name
	}
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for ch := range s.subs {
		select {
		case ch <- e:
		default: // drop if slow
		}
	}
}
