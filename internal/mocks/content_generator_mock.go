package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"slides-server/internal/generator"
	"slides-server/internal/model"
)

// MockContentGenerator is a mock type for the generator.ContentGenerator type
type MockContentGenerator struct {
	mock.Mock
}

// GenerateSlides provides a mock function with given fields: ctx, sourceText
func (_m *MockContentGenerator) GenerateSlides(ctx context.Context, sourceText string) ([]model.SlideContent, error) {
	ret := _m.Called(ctx, sourceText)

	var r0 []model.SlideContent
	if rf, ok := ret.Get(0).(func(context.Context, string) []model.SlideContent); ok {
		r0 = rf(ctx, sourceText)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.SlideContent)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, sourceText)
	} else {
		err := ret.Error(1)
		if err != nil {
			r1 = err
		}
	}

	return r0, r1
}

// NewMockContentGenerator creates a new instance of MockContentGenerator.
// The first argument is typically a *testing.T value.
func NewMockContentGenerator(t interface {
	mock.TestingT
	Helper()
}) *MockContentGenerator {
	m := &MockContentGenerator{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ generator.ContentGenerator = (*MockContentGenerator)(nil)
