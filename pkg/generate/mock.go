package generate

import (
	"context"
	"strings"
	"sync"
)

// Mock returns scripted responses for tests and offline runs. Responses
// are keyed by stage name embedded in the prompt or matched in order;
// Err, when set, is returned for every call.
type Mock struct {
	mu        sync.Mutex
	Responses map[string]string // prompt substring -> response
	Default   string
	Err       error
	calls     int
	prompts   []string
}

func NewMock() *Mock {
	return &Mock{Responses: make(map[string]string), Default: `{"note": "mock response"}`}
}

func (m *Mock) Name() string {
	return "mock"
}

func (m *Mock) Models() []string {
	return []string{"mock-1"}
}

// Generate records the call and returns the first scripted response
// whose key occurs in the prompt, or the default.
func (m *Mock) Generate(_ context.Context, _ string, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	for key, resp := range m.Responses {
		if key != "" && strings.Contains(prompt, key) {
			return resp, nil
		}
	}
	return m.Default, nil
}

// Calls reports how many generation calls were made.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompts returns the prompts received so far.
func (m *Mock) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}
