package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trendmint.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"agent": {"name": "Trend Bot", "topics": ["ai"]},
		"engage": {"enabled": true},
		"logging": {"output_paths": ["stdout", "logs/trendmint.log"], "audit_path": "logs/audit.log"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("默认监听地址不对: %s", cfg.Server.Address)
	}
	if cfg.Engage.MinIntervalMin != 60 || cfg.Engage.MaxIntervalMin != 120 {
		t.Errorf("默认回复间隔不对: %d-%d", cfg.Engage.MinIntervalMin, cfg.Engage.MaxIntervalMin)
	}
	if cfg.Engage.SearchLimit != 20 || cfg.Engage.TimelineLimit != 50 {
		t.Errorf("默认抓取上限不对: %d/%d", cfg.Engage.SearchLimit, cfg.Engage.TimelineLimit)
	}
	if cfg.Engage.PacingDelaySec != 30 {
		t.Errorf("默认发帖停顿应当是 30 秒: %d", cfg.Engage.PacingDelaySec)
	}
	if cfg.Agent.Handle != "trendbot" {
		t.Errorf("默认 handle 应当由名称推导: %s", cfg.Agent.Handle)
	}

	wantData := filepath.Join(filepath.Dir(path), "data")
	if cfg.Runtime.DataDir != wantData {
		t.Errorf("默认数据目录不对: %s", cfg.Runtime.DataDir)
	}
	if want := filepath.Join(wantData, "logs/audit.log"); cfg.Logging.AuditPath != want {
		t.Errorf("相对审计日志路径应当解析到数据目录: %s", cfg.Logging.AuditPath)
	}
	if cfg.Logging.OutputPaths[0] != "stdout" {
		t.Errorf("stdout 不应被改写: %s", cfg.Logging.OutputPaths[0])
	}
	if want := filepath.Join(wantData, "logs/trendmint.log"); cfg.Logging.OutputPaths[1] != want {
		t.Errorf("相对日志路径应当解析到数据目录: %s", cfg.Logging.OutputPaths[1])
	}
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `{
		"agent": {"name": "Trend Bot", "topics": ["ai"]},
		"engage": {"enabled": true, "pacing_delay_seconds": 5},
		"runtime": {"data_dir": "/srv/trendmint"},
		"logging": {"audit_path": "/var/log/trendmint/audit.log"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}

	if cfg.Engage.PacingDelaySec != 5 {
		t.Errorf("显式停顿配置被覆盖: %d", cfg.Engage.PacingDelaySec)
	}
	if cfg.Runtime.DataDir != "/srv/trendmint" {
		t.Errorf("绝对数据目录不应被改写: %s", cfg.Runtime.DataDir)
	}
	if cfg.Logging.AuditPath != "/var/log/trendmint/audit.log" {
		t.Errorf("绝对审计日志路径不应被改写: %s", cfg.Logging.AuditPath)
	}
}

func TestLoadRejectsEngageWithoutTopics(t *testing.T) {
	path := writeConfig(t, `{"engage": {"enabled": true}}`)
	if _, err := Load(path); err == nil {
		t.Fatal("话题为空时开启互动流程应当报错")
	}
}

func TestLoadRejectsMinterWithoutChain(t *testing.T) {
	path := writeConfig(t, `{"minter": {"enabled": true}}`)
	if _, err := Load(path); err == nil {
		t.Fatal("缺少链配置时开启铸币流程应当报错")
	}
}
