package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"slides-server/internal/generator"
)

// MockURLExtractor is a mock type for the generator.URLExtractor type
type MockURLExtractor struct {
	mock.Mock
}

// Extract provides a mock function with given fields: ctx, rawURL
func (_m *MockURLExtractor) Extract(ctx context.Context, rawURL string) (generator.ExtractedContent, error) {
	ret := _m.Called(ctx, rawURL)

	var r0 generator.ExtractedContent
	if rf, ok := ret.Get(0).(func(context.Context, string) generator.ExtractedContent); ok {
		r0 = rf(ctx, rawURL)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(generator.ExtractedContent)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, rawURL)
	} else {
		err := ret.Error(1)
		if err != nil {
			r1 = err
		}
	}

	return r0, r1
}

// NewMockURLExtractor creates a new instance of MockURLExtractor.
// The first argument is typically a *testing.T value.
func NewMockURLExtractor(t interface {
	mock.TestingT
	Helper()
}) *MockURLExtractor {
	m := &MockURLExtractor{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ generator.URLExtractor = (*MockURLExtractor)(nil)
