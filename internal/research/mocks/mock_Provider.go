// Package mocks provides test doubles for the research provider.
package mocks

import (
	"context"

	research "github.com/sells-group/contact-research/internal/research"
	mock "github.com/stretchr/testify/mock"
)

// MockProvider is a mock type for the Provider interface.
type MockProvider struct {
	mock.Mock
}

// Name provides a mock function with no fields
func (_m *MockProvider) Name() string {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Name")
	}

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}

// Model provides a mock function with no fields
func (_m *MockProvider) Model() string {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Model")
	}

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}

// Complete provides a mock function with given fields: ctx, d
func (_m *MockProvider) Complete(ctx context.Context, d research.Directive) (string, error) {
	ret := _m.Called(ctx, d)

	if len(ret) == 0 {
		panic("no return value specified for Complete")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, research.Directive) (string, error)); ok {
		return rf(ctx, d)
	}
	if rf, ok := ret.Get(0).(func(context.Context, research.Directive) string); ok {
		r0 = rf(ctx, d)
	} else {
		r0 = ret.Get(0).(string)
	}

	if rf, ok := ret.Get(1).(func(context.Context, research.Directive) error); ok {
		r1 = rf(ctx, d)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockProvider creates a new instance of MockProvider.
func NewMockProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProvider {
	mock := &MockProvider{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
