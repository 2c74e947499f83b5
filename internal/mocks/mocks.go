// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
	"github.com/xkilldash9x/codesmith-cli/internal/config"
	"github.com/xkilldash9x/codesmith-cli/internal/journal"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Agent() config.AgentConfig {
	args := m.Called()
	return args.Get(0).(config.AgentConfig)
}

func (m *MockConfig) LLM() config.LLMConfig {
	args := m.Called()
	return args.Get(0).(config.LLMConfig)
}

func (m *MockConfig) Generation() config.GenerationConfig {
	args := m.Called()
	return args.Get(0).(config.GenerationConfig)
}

func (m *MockConfig) Consistency() config.ConsistencyConfig {
	args := m.Called()
	return args.Get(0).(config.ConsistencyConfig)
}

func (m *MockConfig) Journal() config.JournalConfig {
	args := m.Called()
	return args.Get(0).(config.JournalConfig)
}

func (m *MockConfig) Snapshot() config.SnapshotConfig {
	args := m.Called()
	return args.Get(0).(config.SnapshotConfig)
}

// --- Setters ---

func (m *MockConfig) SetAgentMaxIterations(n int) {
	m.Called(n)
}

func (m *MockConfig) SetGenerationBaseOutputDir(d string) {
	m.Called(d)
}

func (m *MockConfig) SetLoggerLevel(l string) {
	m.Called(l)
}

// -- LLM Client Mock --

// MockLLMClient mocks the schemas.LLMClient interface.
type MockLLMClient struct {
	mock.Mock
}

var _ schemas.LLMClient = (*MockLLMClient)(nil)

// Generate provides a mock function for LLM calls.
func (m *MockLLMClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// Close provides a mock function for releasing the client.
func (m *MockLLMClient) Close() error {
	return m.Called().Error(0)
}

// -- Journal Mock --

// MockJournal mocks the journal.Journal interface.
type MockJournal struct {
	mock.Mock
}

var _ journal.Journal = (*MockJournal)(nil)

func (m *MockJournal) RunID() string { return m.Called().String(0) }

// RecordStep provides a mock function for recording loop steps.
func (m *MockJournal) RecordStep(ctx context.Context, step journal.Step) error {
	return m.Called(ctx, step).Error(0)
}

// RecordError provides a mock function for recording errors.
func (m *MockJournal) RecordError(ctx context.Context, entry journal.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

// Close provides a mock function for finishing a run.
func (m *MockJournal) Close(ctx context.Context, outcome string) error {
	return m.Called(ctx, outcome).Error(0)
}
