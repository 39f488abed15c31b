package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gxliu28/gas-bot/internal/sheets"
)

const sampleConfig = `
timezone: Asia/Tokyo
slack:
  bot_token: ${GASBOT_TEST_TOKEN}
run_log:
  path: /tmp/gasbot-test/log.txt
targets:
  - name: tasks
    enable: true
    sheet_id: 1abcDEF
    sheet_name: Tasks
    channel: "#reminders"
    columns:
      due: 期限
      task: 案件
      assignee_name: 担当者
      assignee_email: メール
    daysFromNow: [3, 1, -1]
    filters:
      and:
        - column: 進捗状況
          op: in
          value: ["対応中", "未着手"]
        - not:
            column: 情報区分
            op: ==
            value: 社外秘
    comments:
      "3": "$name さん、「$task」の期限が3日後です"
      "1": "$name さん、「$task」の期限は明日です"
      "-1": "$name さん、「$task」の期限が過ぎています"
    boss_cc: true
  - name: disabled
    enable: false
    sheet_id: x
    sheet_name: y
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("GASBOT_TEST_TOKEN", "xoxb-secret")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Slack.BotToken != "xoxb-secret" {
		t.Errorf("bot token = %q, env expansion failed", cfg.Slack.BotToken)
	}
	if len(cfg.Targets) != 2 {
		t.Fatalf("got %d targets, want 2", len(cfg.Targets))
	}

	target := cfg.Targets[0]
	if !target.Enable || target.Channel != "#reminders" {
		t.Errorf("unexpected target: %+v", target)
	}
	if target.Columns["due"] != "期限" {
		t.Errorf("columns[due] = %q", target.Columns["due"])
	}
	if len(target.DaysFromNow) != 3 || target.DaysFromNow[2] != -1 {
		t.Errorf("daysFromNow = %v", target.DaysFromNow)
	}
	if target.Comments["-1"] == "" {
		t.Error("negative offset template missing")
	}
	if got := target.Comments["3"]; got != "$name さん、「$task」の期限が3日後です" {
		t.Errorf("template tokens mangled by env expansion: %q", got)
	}
	if target.Filters == nil {
		t.Fatal("filters not parsed")
	}

	hit := map[string]any{"進捗状況": "対応中", "情報区分": "一般"}
	if !target.Filters.Evaluate(hit) {
		t.Error("parsed filter should match active record")
	}
	confidential := map[string]any{"進捗状況": "対応中", "情報区分": "社外秘"}
	if target.Filters.Evaluate(confidential) {
		t.Error("parsed filter should reject confidential record")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Timezone != DefaultTimezone {
		t.Errorf("timezone = %q, want default %q", cfg.Timezone, DefaultTimezone)
	}
}

func TestSheetRef(t *testing.T) {
	legacy := &Target{SheetID: "1abc", SheetName: "Tasks"}
	ref := legacy.SheetRef()
	if ref.Kind != sheets.KindGoogle || ref.SpreadsheetID != "1abc" || ref.SheetName != "Tasks" {
		t.Errorf("legacy ref = %+v", ref)
	}

	local := &Target{Source: &sheets.Ref{Kind: sheets.KindCSV, Path: "tasks.csv"}}
	if got := local.SheetRef(); got.Kind != sheets.KindCSV || got.Path != "tasks.csv" {
		t.Errorf("source ref = %+v", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("GASBOT_TEST_TOKEN", "xoxb-secret")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	out := filepath.Join(t.TempDir(), "saved", "config.yaml")
	if err := Save(cfg, out); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := Load(out)
	if err != nil {
		t.Fatalf("Load(saved) error: %v", err)
	}
	if len(loaded.Targets) != 2 {
		t.Fatalf("round trip lost targets: %d", len(loaded.Targets))
	}
	if loaded.Targets[0].Filters == nil {
		t.Fatal("round trip lost filter tree")
	}
	if !loaded.Targets[0].Filters.Evaluate(map[string]any{"進捗状況": "対応中", "情報区分": "一般"}) {
		t.Error("round-tripped filter no longer matches")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad timezone", func(c *Config) { c.Timezone = "Not/AZone" }, true},
		{
			"enabled target without channel",
			func(c *Config) { c.Targets[0].Channel = "" },
			true,
		},
		{
			"disabled target may be incomplete",
			func(c *Config) {
				c.Targets[0].Enable = false
				c.Targets[0].Channel = ""
			},
			false,
		},
		{
			"google source without sheet name",
			func(c *Config) { c.Targets[0].SheetName = "" },
			true,
		},
		{
			"csv source without path",
			func(c *Config) { c.Targets[0].Source = &sheets.Ref{Kind: sheets.KindCSV} },
			true,
		},
		{
			"sqlite source requires table",
			func(c *Config) {
				c.Targets[0].Source = &sheets.Ref{Kind: sheets.KindSQLite, Path: "a.db"}
			},
			true,
		},
		{
			"unknown source kind",
			func(c *Config) { c.Targets[0].Source = &sheets.Ref{Kind: "ftp", Path: "x"} },
			true,
		},
		{
			"missing columns mapping",
			func(c *Config) { c.Targets[0].Columns = nil },
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Timezone: "Asia/Tokyo",
				Targets: []*Target{{
					Name:      "t",
					Enable:    true,
					SheetID:   "1abc",
					SheetName: "Tasks",
					Channel:   "#c",
					Columns:   map[string]string{"due": "期限"},
				}},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
