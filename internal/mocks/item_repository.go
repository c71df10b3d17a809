// Package mocks provides testify mocks for the ports interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jsamuelsen/go-history-context/internal/domain"
	"github.com/jsamuelsen/go-history-context/internal/ports"
)

var _ ports.ItemRepository = (*MockItemRepository)(nil)

// MockItemRepository is a mock of ports.ItemRepository.
type MockItemRepository struct {
	mock.Mock
}

// Each method accepts either fixed return values or, as the first return
// value, a function with the method's signature that computes them.

// NewMockItemRepository creates a mock whose expectations are asserted when
// the test ends.
func NewMockItemRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockItemRepository {
	m := &MockItemRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockItemRepository) Get(ctx context.Context, id string) (*domain.Item, error) {
	args := m.Called(ctx, id)
	if fn, ok := args.Get(0).(func(context.Context, string) (*domain.Item, error)); ok {
		return fn(ctx, id)
	}
	item, _ := args.Get(0).(*domain.Item)
	return item, args.Error(1)
}

func (m *MockItemRepository) Save(ctx context.Context, item *domain.Item) (*domain.Event, error) {
	args := m.Called(ctx, item)
	if fn, ok := args.Get(0).(func(context.Context, *domain.Item) (*domain.Event, error)); ok {
		return fn(ctx, item)
	}
	ev, _ := args.Get(0).(*domain.Event)
	return ev, args.Error(1)
}

func (m *MockItemRepository) Delete(ctx context.Context, id string) (*domain.Event, error) {
	args := m.Called(ctx, id)
	if fn, ok := args.Get(0).(func(context.Context, string) (*domain.Event, error)); ok {
		return fn(ctx, id)
	}
	ev, _ := args.Get(0).(*domain.Event)
	return ev, args.Error(1)
}

func (m *MockItemRepository) Events(ctx context.Context, itemID string) ([]domain.Event, error) {
	args := m.Called(ctx, itemID)
	events, _ := args.Get(0).([]domain.Event)
	return events, args.Error(1)
}
