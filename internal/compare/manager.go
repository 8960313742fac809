// Package compare maintains the set of named comparison areas, their
// ordering strategies, and the cross-area comparison matrix.
package compare

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/areascope/areascope/internal/geometry"
	"github.com/areascope/areascope/internal/model"
)

// DefaultMaxAreas is the number of comparison areas that may coexist unless
// configured otherwise.
const DefaultMaxAreas = 8

var (
	// ErrTooManyAreas is returned by Add when the configured area limit is
	// reached. The caller must surface it; no state changes.
	ErrTooManyAreas = eris.New("compare: too many areas")
	// ErrAreaNotFound is returned for operations on an unknown area id.
	ErrAreaNotFound = eris.New("compare: area not found")
	// ErrDegeneratePolygon is returned by Add for polygons without an
	// interior; an area must carry a usable polygon from creation.
	ErrDegeneratePolygon = eris.New("compare: degenerate polygon")
)

// SortStrategy selects the area ordering.
type SortStrategy string

const (
	SortManual SortStrategy = "manual"
	SortName   SortStrategy = "name"
	SortSize   SortStrategy = "size"
)

// Direction moves an area within the manual order.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// palette is the fixed color cycle assigned by creation index, so colors
// are reproducible across sessions for the same creation history.
var palette = []model.RGBA{
	{R: 0xe6, G: 0x39, B: 0x46, A: 0xff},
	{R: 0x45, G: 0x7b, B: 0x9d, A: 0xff},
	{R: 0x2a, G: 0x9d, B: 0x8f, A: 0xff},
	{R: 0xe9, G: 0xc4, B: 0x6a, A: 0xff},
	{R: 0xf4, G: 0xa2, B: 0x61, A: 0xff},
	{R: 0x9d, G: 0x4e, B: 0xdd, A: 0xff},
	{R: 0x6a, G: 0x99, B: 0x4e, A: 0xff},
	{R: 0x80, G: 0x5b, B: 0x36, A: 0xff},
}

// Manager owns the comparison area list. All mutations replace the
// underlying slice wholesale so concurrent readers never observe a
// half-updated list.
type Manager struct {
	mu          sync.RWMutex
	maxAreas    int
	areas       []*model.ComparisonArea
	manualOrder []string
	created     int
}

// NewManager returns a Manager enforcing the given area limit; zero or
// negative means DefaultMaxAreas.
func NewManager(maxAreas int) *Manager {
	if maxAreas <= 0 {
		maxAreas = DefaultMaxAreas
	}
	return &Manager{maxAreas: maxAreas}
}

// Add creates a comparison area from the given polygon. Creation is atomic:
// the polygon, its area, and the palette color are all set before the area
// becomes visible. Fails with ErrTooManyAreas at the limit.
func (m *Manager) Add(name string, polygon orb.Polygon) (*model.ComparisonArea, error) {
	if geometry.PolygonDegenerate(polygon) {
		return nil, ErrDegeneratePolygon
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.areas) >= m.maxAreas {
		return nil, ErrTooManyAreas
	}

	area := &model.ComparisonArea{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     palette[m.created%len(palette)],
		Polygon:   polygon,
		AreaM2:    geometry.PolygonArea(polygon),
		CreatedAt: time.Now(),
		Seq:       m.created,
	}
	m.created++

	next := make([]*model.ComparisonArea, len(m.areas), len(m.areas)+1)
	copy(next, m.areas)
	m.areas = append(next, area)
	m.manualOrder = append(append([]string{}, m.manualOrder...), area.ID)
	return area, nil
}

// Restore reinstates a previously persisted area without assigning a new id
// or color. Used when loading areas from the store at startup.
func (m *Manager) Restore(area *model.ComparisonArea) error {
	if area == nil || geometry.PolygonDegenerate(area.Polygon) {
		return ErrDegeneratePolygon
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.areas) >= m.maxAreas {
		return ErrTooManyAreas
	}
	next := make([]*model.ComparisonArea, len(m.areas), len(m.areas)+1)
	copy(next, m.areas)
	m.areas = append(next, area)
	m.manualOrder = append(append([]string{}, m.manualOrder...), area.ID)
	if area.Seq >= m.created {
		m.created = area.Seq + 1
	}
	return nil
}

// Remove deletes an area. Other areas keep their colors and manual
// positions; only the removed id leaves the order list.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(id)
	if idx < 0 {
		return ErrAreaNotFound
	}

	next := make([]*model.ComparisonArea, 0, len(m.areas)-1)
	next = append(next, m.areas[:idx]...)
	next = append(next, m.areas[idx+1:]...)
	m.areas = next

	order := make([]string, 0, len(m.manualOrder))
	for _, oid := range m.manualOrder {
		if oid != id {
			order = append(order, oid)
		}
	}
	m.manualOrder = order
	return nil
}

// Rename sets an area's display name. Names need not be unique.
func (m *Manager) Rename(id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(id)
	if idx < 0 {
		return ErrAreaNotFound
	}
	updated := *m.areas[idx]
	updated.Name = name

	next := make([]*model.ComparisonArea, len(m.areas))
	copy(next, m.areas)
	next[idx] = &updated
	m.areas = next
	return nil
}

// SetLayerData attaches computed per-layer data to an area, replacing any
// previous computation (last write wins, never merged).
func (m *Manager) SetLayerData(id string, layers map[string]*model.LayerData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(id)
	if idx < 0 {
		return ErrAreaNotFound
	}
	updated := *m.areas[idx]
	updated.Layers = layers

	next := make([]*model.ComparisonArea, len(m.areas))
	copy(next, m.areas)
	next[idx] = &updated
	m.areas = next
	return nil
}

// ReorderManual swaps the area with its neighbor in the manual order.
// No-op at either end of the list.
func (m *Manager) ReorderManual(id string, dir Direction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOf(id) < 0 {
		return ErrAreaNotFound
	}
	order := m.effectiveManualOrder()

	pos := -1
	for i, oid := range order {
		if oid == id {
			pos = i
			break
		}
	}
	switch dir {
	case DirectionUp:
		if pos > 0 {
			order[pos-1], order[pos] = order[pos], order[pos-1]
		}
	case DirectionDown:
		if pos < len(order)-1 {
			order[pos+1], order[pos] = order[pos], order[pos+1]
		}
	}
	m.manualOrder = order
	return nil
}

// SortBy returns the areas ordered by the given strategy. Derived
// strategies (name, size) never mutate the stored manual order, so
// switching back to manual restores the previous ordering exactly.
func (m *Manager) SortBy(strategy SortStrategy) []*model.ComparisonArea {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch strategy {
	case SortName:
		out := m.copyAreas()
		coll := collate.New(language.Und, collate.IgnoreCase)
		sort.SliceStable(out, func(i, j int) bool {
			if c := coll.CompareString(out[i].Name, out[j].Name); c != 0 {
				return c < 0
			}
			return out[i].Seq < out[j].Seq
		})
		return out

	case SortSize:
		out := m.copyAreas()
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].AreaM2 != out[j].AreaM2 {
				return out[i].AreaM2 > out[j].AreaM2
			}
			return out[i].Seq < out[j].Seq
		})
		return out

	default:
		byID := make(map[string]*model.ComparisonArea, len(m.areas))
		for _, a := range m.areas {
			byID[a.ID] = a
		}
		out := make([]*model.ComparisonArea, 0, len(m.areas))
		for _, id := range m.effectiveManualOrderLocked(byID) {
			out = append(out, byID[id])
		}
		return out
	}
}

// List returns the areas in manual order.
func (m *Manager) List() []*model.ComparisonArea {
	return m.SortBy(SortManual)
}

// Get returns the area with the given id.
func (m *Manager) Get(id string) (*model.ComparisonArea, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if idx := m.indexOf(id); idx >= 0 {
		return m.areas[idx], nil
	}
	return nil, ErrAreaNotFound
}

// Len returns the current area count.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.areas)
}

// ManualOrder returns a copy of the effective manual order ids.
func (m *Manager) ManualOrder() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.effectiveManualOrder()
}

// indexOf requires m.mu held.
func (m *Manager) indexOf(id string) int {
	for i, a := range m.areas {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// effectiveManualOrder self-heals the stored order: stale ids are dropped
// and areas missing from the sequence are appended in creation order.
// Requires m.mu held.
func (m *Manager) effectiveManualOrder() []string {
	byID := make(map[string]*model.ComparisonArea, len(m.areas))
	for _, a := range m.areas {
		byID[a.ID] = a
	}
	return m.effectiveManualOrderLocked(byID)
}

func (m *Manager) effectiveManualOrderLocked(byID map[string]*model.ComparisonArea) []string {
	seen := make(map[string]bool, len(m.manualOrder))
	order := make([]string, 0, len(m.areas))
	for _, id := range m.manualOrder {
		if byID[id] != nil && !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}
	missing := make([]*model.ComparisonArea, 0)
	for _, a := range m.areas {
		if !seen[a.ID] {
			missing = append(missing, a)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].Seq < missing[j].Seq })
	for _, a := range missing {
		order = append(order, a.ID)
	}
	return order
}

// copyAreas requires m.mu held.
func (m *Manager) copyAreas() []*model.ComparisonArea {
	out := make([]*model.ComparisonArea, len(m.areas))
	copy(out, m.areas)
	return out
}
