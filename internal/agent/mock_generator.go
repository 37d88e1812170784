package agent

import (
	"context"
	"errors"
)

// MockResponse 定义了 MockGenerator 的单次预期响应
type MockResponse struct {
	Content string
	Error   error
}

// MockGenerator 是用于测试的 ContentGenerator 模拟实现
type MockGenerator struct {
	// 单一固定响应模式
	ExpectedResponse string
	ExpectedError    error

	// 顺序响应模式
	SequentialResponses []MockResponse
	ResponseIndex       int
	IsSequential        bool

	// 记录收到的全部提示词，供断言用
	ReceivedPrompts []string
}

// 确保MockGenerator实现了ContentGenerator接口
var _ ContentGenerator = (*MockGenerator)(nil)

// NewMockGenerator 创建一个返回固定响应的 MockGenerator
func NewMockGenerator(expectedResponse string, expectedError error) *MockGenerator {
	return &MockGenerator{
		ExpectedResponse: expectedResponse,
		ExpectedError:    expectedError,
		IsSequential:     false,
		ReceivedPrompts:  make([]string, 0),
	}
}

// NewMockGeneratorSequential 创建一个按顺序返回不同响应的 MockGenerator
func NewMockGeneratorSequential(responses []MockResponse) *MockGenerator {
	if len(responses) == 0 {
		// 避免越界panic，空脚本退化为总是报错
		return &MockGenerator{
			IsSequential:        true,
			SequentialResponses: []MockResponse{{Error: errors.New("mock生成器没有配置任何响应")}},
			ReceivedPrompts:     make([]string, 0),
		}
	}
	return &MockGenerator{
		SequentialResponses: responses,
		IsSequential:        true,
		ReceivedPrompts:     make([]string, 0),
	}
}

// Generate 按脚本返回预设响应
func (m *MockGenerator) Generate(ctx context.Context, prompt string, opts ...CallOption) (string, error) {
	m.ReceivedPrompts = append(m.ReceivedPrompts, prompt)

	if m.IsSequential {
		if m.ResponseIndex >= len(m.SequentialResponses) {
			return "", errors.New("mock生成器的顺序响应已耗尽")
		}
		resp := m.SequentialResponses[m.ResponseIndex]
		m.ResponseIndex++

		if resp.Error != nil {
			return "", resp.Error
		}
		return resp.Content, nil
	}

	if m.ExpectedError != nil {
		return "", m.ExpectedError
	}
	return m.ExpectedResponse, nil
}

// CallCount 返回累计调用次数
func (m *MockGenerator) CallCount() int {
	return len(m.ReceivedPrompts)
}
