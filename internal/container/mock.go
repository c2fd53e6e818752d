package container

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockEngine is an in-memory Engine for tests.
type MockEngine struct {
	mu sync.Mutex

	// Containers tracks mock container state by id.
	Containers map[string]*MockContainer

	// Errors injects an error per method name.
	Errors map[string]error

	// Healthy controls WaitForHealthy results per container id; ids not
	// present default to HealthyByDefault.
	Healthy          map[string]bool
	HealthyByDefault bool

	// Logs is returned by ContainerLogs.
	Logs map[string]string

	// NextHostPort is assigned to created containers and incremented.
	NextHostPort int

	// Calls records method invocations for verification.
	Calls []MockCall

	handlers []func(Event)
	nextID   int
}

// MockContainer is the state of one mock container.
type MockContainer struct {
	ID       string
	Name     string
	Running  bool
	HostPort int
	Networks []string
	Env      map[string]string
}

// MockCall records one Engine method call.
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMockEngine creates an empty MockEngine where containers are healthy.
func NewMockEngine() *MockEngine {
	return &MockEngine{
		Containers:       make(map[string]*MockContainer),
		Errors:           make(map[string]error),
		Healthy:          make(map[string]bool),
		Logs:             make(map[string]string),
		HealthyByDefault: true,
		NextHostPort:     42001,
	}
}

// SetError injects an error for a method name.
func (m *MockEngine) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[method] = err
}

func (m *MockEngine) record(method string, args ...interface{}) error {
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	return m.Errors[method]
}

// CallsFor returns the recorded calls for a method.
func (m *MockEngine) CallsFor(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockCall
	for _, c := range m.Calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockEngine) CreateContainer(ctx context.Context, opts CreateOptions) (Created, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("CreateContainer", opts); err != nil {
		return Created{}, err
	}

	m.nextID++
	id := fmt.Sprintf("mock-container-%d", m.nextID)
	hostPort := opts.HostPort
	if hostPort == 0 {
		hostPort = m.NextHostPort
		m.NextHostPort++
	}

	c := &MockContainer{
		ID:       id,
		Name:     opts.Name,
		Running:  true,
		HostPort: hostPort,
		Env:      opts.Env,
	}
	if opts.Network != "" {
		c.Networks = append(c.Networks, opts.Network)
	}
	m.Containers[id] = c

	return Created{ID: id, HostPort: hostPort}, nil
}

func (m *MockEngine) StartContainer(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("StartContainer", id); err != nil {
		return err
	}
	c, ok := m.Containers[id]
	if !ok {
		return fmt.Errorf("no such container: %s", id)
	}
	c.Running = true
	return nil
}

func (m *MockEngine) StopContainer(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("StopContainer", id); err != nil {
		return err
	}
	if c, ok := m.Containers[id]; ok {
		c.Running = false
	}
	return nil
}

func (m *MockEngine) RemoveContainer(ctx context.Context, id string, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("RemoveContainer", id, force); err != nil {
		return err
	}
	delete(m.Containers, id)
	return nil
}

func (m *MockEngine) WaitForHealthy(ctx context.Context, id string, timeout time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("WaitForHealthy", id, timeout); err != nil {
		return false, err
	}
	if healthy, ok := m.Healthy[id]; ok {
		return healthy, nil
	}
	return m.HealthyByDefault, nil
}

func (m *MockEngine) ContainerLogs(ctx context.Context, id string, tailLines int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("ContainerLogs", id, tailLines); err != nil {
		return "", err
	}
	return m.Logs[id], nil
}

func (m *MockEngine) ContainerHostPort(ctx context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("ContainerHostPort", id); err != nil {
		return 0, err
	}
	c, ok := m.Containers[id]
	if !ok {
		return 0, fmt.Errorf("no such container: %s", id)
	}
	return c.HostPort, nil
}

func (m *MockEngine) EnsureOnSharedNetwork(ctx context.Context, network, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("EnsureOnSharedNetwork", network, id); err != nil {
		return err
	}
	if c, ok := m.Containers[id]; ok {
		for _, n := range c.Networks {
			if n == network {
				return nil
			}
		}
		c.Networks = append(c.Networks, network)
	}
	return nil
}

func (m *MockEngine) RemoveNetwork(ctx context.Context, network string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record("RemoveNetwork", network)
}

func (m *MockEngine) CleanupProjectContainers(ctx context.Context, name, excludeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record("CleanupProjectContainers", name, excludeID)
}

func (m *MockEngine) SubscribeEvents(ctx context.Context, handler func(Event)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("SubscribeEvents"); err != nil {
		return nil, err
	}
	m.handlers = append(m.handlers, handler)
	return func() {}, nil
}

// Emit delivers an event to all subscribed handlers, as the engine's event
// stream would.
func (m *MockEngine) Emit(ev Event) {
	m.mu.Lock()
	handlers := append([]func(Event){}, m.handlers...)
	m.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

var _ Engine = (*MockEngine)(nil)
