package system

import (
	"context"
	"strings"
	"sync"
)

// MockExecutor implements CommandExecutor for testing.
//
// Responses are matched by the longest registered prefix of the full command
// line ("name arg1 arg2 ..."), so a test can register "git merge" and have it
// match "git -C /repo merge --no-ff feature" via normalized matching on the
// subcommand words. Exact full-line patterns win over shorter prefixes.
type MockExecutor struct {
	mu sync.Mutex

	// Commands records all executed commands for verification.
	Commands []MockCommand

	// Responses maps command-line prefixes to responses.
	Responses map[string]MockResponse

	// DefaultResponse is used when no matching response is found.
	DefaultResponse MockResponse
}

// MockCommand records an executed command.
type MockCommand struct {
	Name  string
	Args  []string
	Stdin string
}

// Line returns the full command line for matching and assertions.
func (c MockCommand) Line() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// MockResponse defines the response for a command.
type MockResponse struct {
	Output []byte
	Err    error
}

// NewMockExecutor creates a new MockExecutor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		Commands:  make([]MockCommand, 0),
		Responses: make(map[string]MockResponse),
	}
}

// AddResponse registers a response for a command-line prefix.
func (m *MockExecutor) AddResponse(prefix string, output []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[prefix] = MockResponse{Output: output, Err: err}
}

func (m *MockExecutor) lookup(line string) MockResponse {
	best := ""
	for prefix := range m.Responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return m.Responses[best]
	}
	// Fall back to substring matching so "git merge" hits
	// "git -C /repo merge ..." without tests spelling out -C paths.
	for prefix, resp := range m.Responses {
		fields := strings.Fields(prefix)
		if containsInOrder(strings.Fields(line), fields) {
			return resp
		}
	}
	return m.DefaultResponse
}

// containsInOrder reports whether want appears as a subsequence of have.
func containsInOrder(have, want []string) bool {
	if len(want) == 0 {
		return false
	}
	i := 0
	for _, w := range have {
		if w == want[i] {
			i++
			if i == len(want) {
				return true
			}
		}
	}
	return false
}

func (m *MockExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := MockCommand{Name: name, Args: args}
	m.Commands = append(m.Commands, cmd)

	resp := m.lookup(cmd.Line())
	return resp.Output, resp.Err
}

func (m *MockExecutor) ExecuteWithStdin(ctx context.Context, stdin string, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := MockCommand{Name: name, Args: args, Stdin: stdin}
	m.Commands = append(m.Commands, cmd)

	resp := m.lookup(cmd.Line())
	return resp.Output, resp.Err
}

// CommandsMatching returns all recorded commands whose line contains the
// given words in order.
func (m *MockExecutor) CommandsMatching(words ...string) []MockCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockCommand
	for _, c := range m.Commands {
		if containsInOrder(strings.Fields(c.Line()), words) {
			out = append(out, c)
		}
	}
	return out
}

// LastCommand returns the most recently executed command.
func (m *MockExecutor) LastCommand() (MockCommand, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Commands) == 0 {
		return MockCommand{}, false
	}
	return m.Commands[len(m.Commands)-1], true
}

// Reset clears all recorded commands and responses.
func (m *MockExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands = make([]MockCommand, 0)
	m.Responses = make(map[string]MockResponse)
	m.DefaultResponse = MockResponse{}
}
