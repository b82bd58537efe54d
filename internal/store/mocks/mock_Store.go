// Package mocks provides test doubles for the run store.
package mocks

import (
	"context"

	model "github.com/sells-group/contact-enricher/internal/model"
	resilience "github.com/sells-group/contact-enricher/internal/resilience"
	store "github.com/sells-group/contact-enricher/internal/store"
	mock "github.com/stretchr/testify/mock"
)

// MockStore is a mock type for the Store interface.
type MockStore struct {
	mock.Mock
}

// CreateRun provides a mock function with given fields: ctx, id
func (_m *MockStore) CreateRun(ctx context.Context, id string) (*model.Run, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for CreateRun")
	}

	var r0 *model.Run
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.Run, error)); ok {
		return rf(ctx, id)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.Run); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Run)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// UpdateRunStatus provides a mock function with given fields: ctx, runID, status
func (_m *MockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	ret := _m.Called(ctx, runID, status)

	if len(ret) == 0 {
		panic("no return value specified for UpdateRunStatus")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, model.RunStatus) error); ok {
		r0 = rf(ctx, runID, status)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// CompleteRun provides a mock function with given fields: ctx, runID, status, summary
func (_m *MockStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error {
	ret := _m.Called(ctx, runID, status, summary)

	if len(ret) == 0 {
		panic("no return value specified for CompleteRun")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, model.RunStatus, *model.RunSummary) error); ok {
		r0 = rf(ctx, runID, status, summary)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// GetRun provides a mock function with given fields: ctx, runID
func (_m *MockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	ret := _m.Called(ctx, runID)

	if len(ret) == 0 {
		panic("no return value specified for GetRun")
	}

	var r0 *model.Run
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.Run, error)); ok {
		return rf(ctx, runID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.Run); ok {
		r0 = rf(ctx, runID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Run)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, runID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListRuns provides a mock function with given fields: ctx, filter
func (_m *MockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	ret := _m.Called(ctx, filter)

	if len(ret) == 0 {
		panic("no return value specified for ListRuns")
	}

	var r0 []model.Run
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, store.RunFilter) ([]model.Run, error)); ok {
		return rf(ctx, filter)
	}
	if rf, ok := ret.Get(0).(func(context.Context, store.RunFilter) []model.Run); ok {
		r0 = rf(ctx, filter)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.Run)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, store.RunFilter) error); ok {
		r1 = rf(ctx, filter)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// SaveRecord provides a mock function with given fields: ctx, runID, rec
func (_m *MockStore) SaveRecord(ctx context.Context, runID string, rec model.OutputRecord) error {
	ret := _m.Called(ctx, runID, rec)

	if len(ret) == 0 {
		panic("no return value specified for SaveRecord")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, model.OutputRecord) error); ok {
		r0 = rf(ctx, runID, rec)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// ListRecords provides a mock function with given fields: ctx, runID
func (_m *MockStore) ListRecords(ctx context.Context, runID string) ([]model.OutputRecord, error) {
	ret := _m.Called(ctx, runID)

	if len(ret) == 0 {
		panic("no return value specified for ListRecords")
	}

	var r0 []model.OutputRecord
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) ([]model.OutputRecord, error)); ok {
		return rf(ctx, runID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) []model.OutputRecord); ok {
		r0 = rf(ctx, runID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.OutputRecord)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, runID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// EnqueueDLQ provides a mock function with given fields: ctx, entry
func (_m *MockStore) EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error {
	ret := _m.Called(ctx, entry)

	if len(ret) == 0 {
		panic("no return value specified for EnqueueDLQ")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, resilience.DLQEntry) error); ok {
		r0 = rf(ctx, entry)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// ListDLQ provides a mock function with given fields: ctx, filter
func (_m *MockStore) ListDLQ(ctx context.Context, filter store.DLQFilter) ([]resilience.DLQEntry, error) {
	ret := _m.Called(ctx, filter)

	if len(ret) == 0 {
		panic("no return value specified for ListDLQ")
	}

	var r0 []resilience.DLQEntry
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, store.DLQFilter) ([]resilience.DLQEntry, error)); ok {
		return rf(ctx, filter)
	}
	if rf, ok := ret.Get(0).(func(context.Context, store.DLQFilter) []resilience.DLQEntry); ok {
		r0 = rf(ctx, filter)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]resilience.DLQEntry)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, store.DLQFilter) error); ok {
		r1 = rf(ctx, filter)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// CountDLQ provides a mock function with given fields: ctx
func (_m *MockStore) CountDLQ(ctx context.Context) (int, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for CountDLQ")
	}

	var r0 int
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) (int, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) int); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Get(0).(int)
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Migrate provides a mock function with given fields: ctx
func (_m *MockStore) Migrate(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Migrate")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Close provides a mock function with no fields
func (_m *MockStore) Close() error {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Close")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockStore creates a new instance of MockStore.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	mock := &MockStore{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
