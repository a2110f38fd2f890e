package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Adapter abre conexiones a un backend de almacenamiento.
type Adapter interface {
	// Name: "postgres", "memory".
	Name() string
	Connect(ctx context.Context, cfg AdapterConfig) (Connection, error)
}

// Connection es una conexión abierta. UnitOfWork es el único acceso a los
// repositorios.
type Connection interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error
	UnitOfWork() UnitOfWork
}

// AdapterConfig configura Connect.
type AdapterConfig struct {
	Name string
	DSN  string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter. Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("store: adapter %q already registered", name))
	}
	adapters[name] = a
}

// ListAdapters retorna los nombres registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open conecta usando el adapter cfg.Name.
func Open(ctx context.Context, cfg AdapterConfig) (Connection, error) {
	registryMu.RLock()
	a, ok := adapters[cfg.Name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store: adapter %q not registered (have %v)", cfg.Name, ListAdapters())
	}
	return a.Connect(ctx, cfg)
}
