package store

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/AngelCh415/fakestat/internal/metrics"
	"github.com/AngelCh415/fakestat/internal/models"
)

// Store operations reported to subscribers.
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpReassign = "reassign"
	OpDelete   = "delete"
	OpClear    = "clear"
	OpImport   = "import"
)

// Event is delivered to subscribers after every successful mutation.
type Event struct {
	Op      string               `json:"op"`
	Records []models.TrafficStat `json:"records"`
}

// ID allocation ranges.
const (
	idMin         = 500
	idMax         = 3000
	fallbackIDMin = 3001
	fallbackIDMax = 13000
	maxIDAttempts = 100
)

// MemoryStore is the authoritative in-memory collection of traffic stats.
// Every operation runs to completion under one lock.
type MemoryStore struct {
	mu    sync.RWMutex
	stats []models.TrafficStat
	used  map[int]struct{} // ids currently assigned
	rng   *rand.Rand

	notifyMu sync.Mutex // delivers events in mutation order
	subMu    sync.Mutex
	subs     map[int]func(Event)
	nextSub  int
}

type Option func(*MemoryStore)

// WithRand sets the random source used for id allocation.
func WithRand(r *rand.Rand) Option {
	return func(s *MemoryStore) { s.rng = r }
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		stats: []models.TrafficStat{},
		used:  make(map[int]struct{}),
		subs:  make(map[int]func(Event)),
	}
	for _, o := range opts {
		o(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// List returns a copy of the collection in store order.
func (s *MemoryStore) List() []models.TrafficStat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *MemoryStore) Get(id int) (models.TrafficStat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return models.TrafficStat{}, false
	}
	return s.stats[i].Clone(), true
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stats)
}

// Create assigns a fresh id, derives the conversion ratio and appends.
func (s *MemoryStore) Create(req models.CreateRequest) models.TrafficStat {
	s.mu.Lock()
	var origin *string
	if req.Origin != nil {
		o := *req.Origin
		origin = &o
	}
	stat := models.TrafficStat{
		ID:              s.allocateIDLocked(),
		Name:            req.Name,
		Origin:          origin,
		SuccessfulLeads: req.SuccessfulLeads,
		TotalFTDs:       req.TotalFTDs,
		TotalLeads:      req.TotalLeads,
		LateTotalFTDs:   req.LateTotalFTDs,
		Revenue:         req.Revenue,
		ConversionRatio: metrics.ConversionRatio(req.TotalFTDs, req.TotalLeads),
	}
	s.stats = append(s.stats, stat)
	s.unlockAndNotify(OpCreate)
	return stat.Clone()
}

// Update merges p over the record with the given id in place. ok is false
// when no such record exists.
func (s *MemoryStore) Update(id int, p models.Patch) (stat models.TrafficStat, ok bool) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return models.TrafficStat{}, false
	}
	stat = p.Apply(s.stats[i])
	stat.ConversionRatio = metrics.ConversionRatio(stat.TotalFTDs, stat.TotalLeads)
	s.stats[i] = stat
	s.unlockAndNotify(OpUpdate)
	return stat.Clone(), true
}

// ReassignID changes a record's id. It fails when oldID is absent or newID
// belongs to a different record.
func (s *MemoryStore) ReassignID(oldID, newID int) bool {
	s.mu.Lock()
	i := s.indexLocked(oldID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	if oldID == newID {
		s.mu.Unlock()
		return true
	}
	if s.indexLocked(newID) >= 0 {
		s.mu.Unlock()
		return false
	}
	s.stats[i].ID = newID
	delete(s.used, oldID)
	s.used[newID] = struct{}{}
	s.unlockAndNotify(OpReassign)
	return true
}

func (s *MemoryStore) Delete(id int) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.stats = append(s.stats[:i], s.stats[i+1:]...)
	delete(s.used, id)
	s.unlockAndNotify(OpDelete)
	return true
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.stats = []models.TrafficStat{}
	s.used = make(map[int]struct{})
	s.unlockAndNotify(OpClear)
}

// ExportJSON serializes the collection as a JSON array, indented with two
// spaces when pretty is set and on a single line otherwise.
func (s *MemoryStore) ExportJSON(pretty bool) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return encode(s.stats, pretty)
}

func encode(stats []models.TrafficStat, pretty bool) ([]byte, error) {
	if stats == nil {
		stats = []models.TrafficStat{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(stats); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ImportJSON replaces the whole collection with the records in data.
// On any error the store is left untouched. The conversion ratio of every
// incoming record is derived again from its ftds and leads.
func (s *MemoryStore) ImportJSON(data []byte) error {
	stats, err := decodeStats(data)
	if err != nil {
		return err
	}
	used := make(map[int]struct{}, len(stats))
	for i := range stats {
		stats[i].ConversionRatio = metrics.ConversionRatio(stats[i].TotalFTDs, stats[i].TotalLeads)
		used[stats[i].ID] = struct{}{}
	}

	s.mu.Lock()
	s.stats = stats
	s.used = used
	s.unlockAndNotify(OpImport)
	return nil
}

// LoadSample replaces the collection with the two demo records the editor
// starts with.
func (s *MemoryStore) LoadSample() {
	sample := []models.TrafficStat{
		{ID: 581, Name: "BBB", SuccessfulLeads: 3, TotalLeads: 3},
		{ID: 2891, Name: "AAA", SuccessfulLeads: 1, TotalLeads: 1},
	}
	s.mu.Lock()
	s.stats = sample
	s.used = map[int]struct{}{581: {}, 2891: {}}
	s.unlockAndNotify(OpImport)
}

// Subscribe registers fn to be called after each mutation, outside the store
// lock. The returned func removes the subscription.
func (s *MemoryStore) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// unlockAndNotify must be called with mu held. It takes notifyMu before
// releasing mu, so subscribers see events in the order the mutations
// happened. Subscribers may read the store but must not mutate it.
func (s *MemoryStore) unlockAndNotify(op string) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(op, snap)
}

func (s *MemoryStore) notify(op string, snap []models.TrafficStat) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(Event{Op: op, Records: snap})
	}
}

// allocateIDLocked draws from [idMin, idMax], then from the fallback range,
// then scans upward past it. The id is reserved before returning.
func (s *MemoryStore) allocateIDLocked() int {
	id := -1
	for i := 0; i < maxIDAttempts && id < 0; i++ {
		if c := idMin + s.rng.Intn(idMax-idMin+1); !s.inUseLocked(c) {
			id = c
		}
	}
	for i := 0; i < maxIDAttempts && id < 0; i++ {
		if c := fallbackIDMin + s.rng.Intn(fallbackIDMax-fallbackIDMin+1); !s.inUseLocked(c) {
			id = c
		}
	}
	if id < 0 {
		id = fallbackIDMax + 1
		for s.inUseLocked(id) {
			id++
		}
	}
	s.used[id] = struct{}{}
	return id
}

func (s *MemoryStore) inUseLocked(id int) bool {
	_, ok := s.used[id]
	return ok
}

func (s *MemoryStore) indexLocked(id int) int {
	for i := range s.stats {
		if s.stats[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) snapshotLocked() []models.TrafficStat {
	out := make([]models.TrafficStat, len(s.stats))
	for i, st := range s.stats {
		out[i] = st.Clone()
	}
	return out
}
