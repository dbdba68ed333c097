package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTokenCounter(t *testing.T) {
	// 测试单例模式
	counter1, err := GetTokenCounter()
	require.NoError(t, err, "should create counter without error")
	require.NotNil(t, counter1, "counter should not be nil")

	counter2, err := GetTokenCounter()
	require.NoError(t, err, "should get counter without error")
	require.NotNil(t, counter2, "counter should not be nil")

	// 确保是同一个实例
	assert.Same(t, counter1, counter2, "should return the same instance")
}

func TestTokenCounter_CountTokens(t *testing.T) {
	counter, err := GetTokenCounter()
	require.NoError(t, err)

	tests := []struct {
		name     string
		text     string
		minCount int // 最小预期 token 数
		maxCount int // 最大预期 token 数
	}{
		{
			name:     "空字符串",
			text:     "",
			minCount: 0,
			maxCount: 0,
		},
		{
			name:     "简单英文",
			text:     "Hello, world!",
			minCount: 3,
			maxCount: 5,
		},
		{
			name:     "维修手册片段",
			text:     "Check the tire pressure when the tires are cold. The recommended pressure is 32 PSI for front tires.",
			minCount: 15,
			maxCount: 30,
		},
		{
			name:     "混合中英文",
			text:     "Hello 你好，这是一个测试 test",
			minCount: 5,
			maxCount: 15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count := counter.CountTokens(tt.text)
			assert.GreaterOrEqual(t, count, tt.minCount, "token count should be >= minCount")
			assert.LessOrEqual(t, count, tt.maxCount, "token count should be <= maxCount")
		})
	}
}

func TestTokenCounter_CountTokensBatch(t *testing.T) {
	counter, err := GetTokenCounter()
	require.NoError(t, err)

	texts := []string{
		"Hello, world!",
		"你好世界",
		"Replace the oil filter every 10,000 km.",
	}

	// 批量计数应该等于单独计数之和
	batchCount := counter.CountTokensBatch(texts)

	var singleSum int
	for _, text := range texts {
		singleSum += counter.CountTokens(text)
	}

	assert.Equal(t, singleSum, batchCount, "batch count should equal sum of individual counts")
}

func TestTokenCounter_Consistency(t *testing.T) {
	counter, err := GetTokenCounter()
	require.NoError(t, err)

	// 相同文本应该返回相同的 token 数
	text := "This is a test for consistency."
	count1 := counter.CountTokens(text)
	count2 := counter.CountTokens(text)

	assert.Equal(t, count1, count2, "token count should be consistent")
}
