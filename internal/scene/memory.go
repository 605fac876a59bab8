package scene

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Memory is a Scene that only records what was added to it. The server
// publishes it to the browser client, and tests inspect it.
type Memory struct {
	mu          sync.RWMutex
	dataSources []*DataSource
	imagery     []*Imagery
	primitives  []*Tileset

	renders atomic.Int64
}

// NewMemory returns an empty scene.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) AddDataSource(ds *DataSource) {
	m.mu.Lock()
	m.dataSources = append(m.dataSources, ds)
	m.mu.Unlock()
}

func (m *Memory) RemoveDataSource(ds *DataSource) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.Index(m.dataSources, ds)
	if i < 0 {
		return false
	}
	m.dataSources = slices.Delete(m.dataSources, i, i+1)
	return true
}

func (m *Memory) DataSourcesByName(name string) []*DataSource {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*DataSource
	for _, ds := range m.dataSources {
		if ds.Name() == name {
			out = append(out, ds)
		}
	}
	return out
}

// DataSources returns all data sources in insertion order.
func (m *Memory) DataSources() []*DataSource {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.dataSources)
}

func (m *Memory) AddImagery(layer *Imagery, index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := slices.Index(m.imagery, layer); i >= 0 {
		m.imagery = slices.Delete(m.imagery, i, i+1)
	}
	if index < 0 || index > len(m.imagery) {
		index = len(m.imagery)
	}
	m.imagery = slices.Insert(m.imagery, index, layer)
}

func (m *Memory) RemoveImagery(layer *Imagery) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.Index(m.imagery, layer)
	if i < 0 {
		return false
	}
	m.imagery = slices.Delete(m.imagery, i, i+1)
	return true
}

func (m *Memory) ImageryLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.imagery)
}

// ImageryLayers returns the overlay stack, bottom first.
func (m *Memory) ImageryLayers() []*Imagery {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.imagery)
}

func (m *Memory) AddPrimitive(ts *Tileset) {
	m.mu.Lock()
	m.primitives = append(m.primitives, ts)
	m.mu.Unlock()
}

// Primitives returns all tilesets in insertion order.
func (m *Memory) Primitives() []*Tileset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.primitives)
}

func (m *Memory) RequestRender() {
	m.renders.Add(1)
}

// RenderRequests returns how many redraws were requested.
func (m *Memory) RenderRequests() int64 {
	return m.renders.Load()
}

var _ Scene = (*Memory)(nil)
