package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfigFromFile 验证配置文件能被正确加载并应用默认值
func TestLoadConfigFromFile(t *testing.T) {
	yamlContent := `
server:
  address: ":9999"
  api_secret: "s3cret"
llm:
  api_url: "https://api.groq.com/openai/v1/chat/completions"
  model: "llama-3.3-70b-versatile"
  task_models:
    profile_extraction: "llama-3.1-8b-instant"
search:
  base_url: "https://api.linkup.so/v1"
  top_n: 3
orchestrator:
  eval_workers: 2
capability:
  remote_url: "http://capability-server:8080"
model_qpm_limits:
  llama-3.3-70b-versatile: 30
`
	tmpDir, err := os.MkdirTemp("", "config-test")
	require.NoError(t, err, "无法创建临时目录")
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err, "无法写入临时配置文件")

	config, err := LoadConfig(configPath)
	require.NoError(t, err, "加载合法配置不应返回错误")
	require.NotNil(t, config)

	assert.Equal(t, ":9999", config.Server.Address)
	assert.Equal(t, "s3cret", config.Server.APISecret)
	assert.Equal(t, 3, config.Search.TopN)
	assert.Equal(t, 2, config.Orchestrator.EvalWorkers)
	assert.Equal(t, 30, config.ModelQPMLimits["llama-3.3-70b-versatile"])

	// 未显式配置的字段走默认值
	assert.Equal(t, 7, config.Search.RecencyDays, "recency_days 应使用默认值")
	assert.Equal(t, []string{"EU"}, config.Search.Regions)
	assert.Equal(t, 12, config.Orchestrator.MaxSteps)
	assert.Equal(t, "1m", config.Server.RateLimitWindow)

	// 远端能力目录地址按配置生效，重连间隔走默认值
	assert.Equal(t, "http://capability-server:8080", config.Capability.RemoteURL)
	assert.Equal(t, 5, config.Capability.WatchRetrySeconds)
}

// TestGetModelForTask 验证任务专用模型的回退逻辑
func TestGetModelForTask(t *testing.T) {
	cfg := &Config{}
	cfg.LLM.Model = "llama-3.3-70b-versatile"
	cfg.LLM.TaskModels = map[string]string{
		"profile_extraction": "llama-3.1-8b-instant",
	}

	assert.Equal(t, "llama-3.1-8b-instant", cfg.GetModelForTask("profile_extraction"))
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.GetModelForTask("match_evaluation"), "未配置的任务应回退到默认模型")
}

// TestGetDuration 验证时长解析及非法输入时的默认值回退
func TestGetDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, GetDuration("30s", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("not-a-duration", time.Minute))
}
