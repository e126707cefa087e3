package capability

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoTool 测试用能力实现，记录收到的参数
type echoTool struct {
	mu       sync.Mutex
	received []string
	output   string
	err      error
}

func (t *echoTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{Name: "echo"}, nil
}

func (t *echoTool) InvokableRun(_ context.Context, argsJSON string, _ ...tool.Option) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.received = append(t.received, argsJSON)
	if t.err != nil {
		return "", t.err
	}
	return t.output, nil
}

func (t *echoTool) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.received)
}

var _ tool.InvokableTool = (*echoTool)(nil)

func stringParam(desc string, required bool) *schema.ParameterInfo {
	return &schema.ParameterInfo{Type: "string", Desc: desc, Required: required}
}

func newTestRegistry(entries ...*Entry) *Registry {
	return NewRegistry(NewLocalSource(entries...))
}

func TestRegistryListStableOrder(t *testing.T) {
	// 来源故意乱序，List必须按名称排序
	r := newTestRegistry(
		&Entry{Name: "zeta", Tool: &echoTool{}},
		&Entry{Name: "alpha", Tool: &echoTool{}},
		&Entry{Name: "mike", Tool: &echoTool{}},
	)

	entries, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "alpha", entries[0].Name)
	assert.Equal(t, "mike", entries[1].Name)
	assert.Equal(t, "zeta", entries[2].Name)

	infos, err := r.ToolInfos(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, "alpha", infos[0].Name)
}

func TestRegistryInvokeUnknownCapability(t *testing.T) {
	r := newTestRegistry(&Entry{Name: "known", Tool: &echoTool{}})

	_, err := r.Invoke(context.Background(), "missing", `{}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownCapability)
}

func TestRegistryInvokeValidatesArguments(t *testing.T) {
	impl := &echoTool{output: "ok"}
	r := newTestRegistry(&Entry{
		Name: "parse",
		Params: map[string]*schema.ParameterInfo{
			"resume": stringParam("resume ref", true),
			"titles": {Type: "array", Required: false},
			"job":    {Type: "object", Required: false},
		},
		Tool: impl,
	})

	cases := []struct {
		name string
		args string
	}{
		{"非JSON对象", `"just a string"`},
		{"缺少必填参数", `{}`},
		{"未声明的键", `{"resume": "a.pdf", "extra": 1}`},
		{"类型不匹配-字符串", `{"resume": 42}`},
		{"类型不匹配-数组", `{"resume": "a.pdf", "titles": "oops"}`},
		{"类型不匹配-对象", `{"resume": "a.pdf", "job": [1, 2]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Invoke(context.Background(), "parse", tc.args)
			require.Error(t, err)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}

	// 校验失败的调用绝不能到达底层能力
	assert.Equal(t, 0, impl.callCount())

	out, err := r.Invoke(context.Background(), "parse",
		`{"resume": "a.pdf", "titles": ["Engineer"], "job": {"job_title": "x"}}`)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, impl.callCount())
}

func TestRegistryInvokePropagatesToolError(t *testing.T) {
	toolErr := errors.New("backend down")
	r := newTestRegistry(&Entry{
		Name:   "flaky",
		Params: map[string]*schema.ParameterInfo{},
		Tool:   &echoTool{err: toolErr},
	})

	_, err := r.Invoke(context.Background(), "flaky", `{}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, toolErr)
}

// mutableSource 测试目录失效重载
type mutableSource struct {
	mu      sync.Mutex
	entries []*Entry
}

func (s *mutableSource) Capabilities(_ context.Context) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries, nil
}

func (s *mutableSource) set(entries []*Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
}

func TestRegistryInvalidateReloadsCatalog(t *testing.T) {
	src := &mutableSource{entries: []*Entry{{Name: "one", Tool: &echoTool{}}}}
	r := NewRegistry(src)

	entries, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	src.set([]*Entry{
		{Name: "one", Tool: &echoTool{}},
		{Name: "two", Tool: &echoTool{}},
	})

	// 失效前仍然读到旧快照
	entries, err = r.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	r.Invalidate()
	entries, err = r.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "two", entries[1].Name)
}

func TestEntryToolInfo(t *testing.T) {
	e := &Entry{
		Name:   "parse",
		Desc:   "parse resumes",
		Params: map[string]*schema.ParameterInfo{"resume": stringParam("ref", true)},
	}

	info := e.ToolInfo()
	assert.Equal(t, "parse", info.Name)
	assert.Equal(t, "parse resumes", info.Desc)
	require.NotNil(t, info.ParamsOneOf)
}
