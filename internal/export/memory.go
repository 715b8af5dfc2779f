package export

import (
	"context"
	"fmt"
	"sync"

	"riyalmind/internal/core"
)

// MemoryWriter is an in-process LedgerWriter for tests and local runs
// without Sheets credentials.
type MemoryWriter struct {
	mu          sync.Mutex
	Personal    []core.PersonalExpense
	Shared      []core.Expense
	Settlements []core.Settlement

	// FailNext makes the next append return an error.
	FailNext bool
}

var _ LedgerWriter = (*MemoryWriter)(nil)

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{}
}

func (m *MemoryWriter) failIfSet() error {
	if m.FailNext {
		m.FailNext = false
		return fmt.Errorf("simulated export failure")
	}
	return nil
}

func (m *MemoryWriter) AppendPersonal(_ context.Context, e core.PersonalExpense) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failIfSet(); err != nil {
		return "", err
	}
	m.Personal = append(m.Personal, e)
	return fmt.Sprintf("mem-personal-%d", len(m.Personal)), nil
}

func (m *MemoryWriter) AppendShared(_ context.Context, e core.Expense) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failIfSet(); err != nil {
		return "", err
	}
	m.Shared = append(m.Shared, e)
	return fmt.Sprintf("mem-shared-%d", len(m.Shared)), nil
}

func (m *MemoryWriter) AppendSettlement(_ context.Context, s core.Settlement) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failIfSet(); err != nil {
		return "", err
	}
	m.Settlements = append(m.Settlements, s)
	return fmt.Sprintf("mem-settlement-%d", len(m.Settlements)), nil
}
