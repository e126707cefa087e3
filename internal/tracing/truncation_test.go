package tracing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateString(t *testing.T) {
	cases := []struct {
		name      string
		in        string
		maxLength int
		want      string
	}{
		{"短于上限原样返回", "hello", 10, "hello"},
		{"等于上限原样返回", "hello", 5, "hello"},
		{"超长保留首尾", "abcdefghijklmnop", 9, "abc...nop"},
		{"上限不足放省略号时直接截断", "abcdef", 3, "abc"},
		{"空字符串", "", 5, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TruncateString(tc.in, tc.maxLength))
		})
	}
}

func TestMaskPII(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"空值", "", ""},
		{"单字符", "a", "*"},
		{"两字符", "ab", "a*"},
		{"四字符", "abcd", "a**d"},
		{"较长的值保留前后两位", "myemail@example.com", "my***************om"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MaskPII(tc.in))
		})
	}
}

func TestSafeAttributeValue(t *testing.T) {
	// 敏感字段名触发掩码
	masked := SafeAttributeValue("user.email", "someone@example.com", DefaultMaxLength)
	assert.NotContains(t, masked, "someone@example")
	assert.Contains(t, masked, "*")

	// 普通字段只做截断
	long := strings.Repeat("x", DefaultMaxLength+50)
	safe := SafeAttributeValue("search.query", long, DefaultMaxLength)
	assert.LessOrEqual(t, len(safe), DefaultMaxLength)
	assert.Contains(t, safe, "...")
}

func TestSafeSQL(t *testing.T) {
	short := "SELECT * FROM users WHERE username = ?"
	assert.Equal(t, short, SafeSQL(short))

	long := "SELECT " + strings.Repeat("col, ", 200) + "id FROM run_archives"
	safe := SafeSQL(long)
	assert.LessOrEqual(t, len(safe), MaxSQLLength)
	assert.Contains(t, safe, "...")
}
