package tokencount_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaizaiboom/futureu913/internal/adapter/ai/tokencount"
)

func TestCountTokens(t *testing.T) {
	t.Parallel()
	c := tokencount.NewCounter()
	n, err := c.CountTokens("hello world", "gpt-4")
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	zh, err := c.CountTokens("AI产品经理需要理解模型能力边界。", "deepseek-ai/DeepSeek-V3")
	require.NoError(t, err)
	assert.Greater(t, zh, 0)
}

func TestCountTokens_EmptyText(t *testing.T) {
	t.Parallel()
	c := tokencount.NewCounter()
	n, err := c.CountTokens("", "gpt-4")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCountChatTokens_IncludesOverhead(t *testing.T) {
	t.Parallel()
	c := tokencount.NewCounter()
	plain, err := c.CountTokens("hi", "gpt-4")
	require.NoError(t, err)
	chat, err := c.CountChatTokens("", "hi", "gpt-4")
	require.NoError(t, err)
	assert.Greater(t, chat, plain)
}

func TestTruncateToTokens(t *testing.T) {
	t.Parallel()
	c := tokencount.NewCounter()

	short := "short answer"
	assert.Equal(t, short, c.TruncateToTokens(short, "gpt-4", 100))

	long := ""
	for i := 0; i < 500; i++ {
		long += "这是一段很长的中文回答，用于测试截断逻辑。"
	}
	cut := c.TruncateToTokens(long, "gpt-4", 50)
	assert.Less(t, len(cut), len(long))
	n, err := c.CountTokens(cut, "gpt-4")
	require.NoError(t, err)
	assert.LessOrEqual(t, n, 50)

	// Zero budget disables truncation rather than emptying the text.
	assert.Equal(t, long, c.TruncateToTokens(long, "gpt-4", 0))
}

func TestTruncateToTokens_UnknownModelStillBudgets(t *testing.T) {
	t.Parallel()
	c := tokencount.NewCounter()
	long := ""
	for i := 0; i < 500; i++ {
		long += "budget this answer down to size "
	}
	cut := c.TruncateToTokens(long, "qwen/qwen-2.5-72b-instruct:free", 20)
	assert.Less(t, len(cut), len(long))
}
