package reminder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gxliu28/gas-bot/internal/config"
	"github.com/gxliu28/gas-bot/internal/filter"
	"github.com/gxliu28/gas-bot/internal/sheets"
)

// mockSource serves a fixed grid regardless of ref
type mockSource struct {
	grid  [][]any
	err   error
	calls int
}

func (m *mockSource) Fetch(ctx context.Context, ref sheets.Ref) ([][]any, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.grid, nil
}

// mockResolver resolves emails from a fixed table
type mockResolver struct {
	ids   map[string]string
	calls []string
}

func (m *mockResolver) LookupByEmail(ctx context.Context, email string) (string, bool) {
	m.calls = append(m.calls, email)
	id, ok := m.ids[email]
	return id, ok
}

type sentMessage struct {
	channel string
	text    string
}

// mockDispatcher records sends and optionally fails them
type mockDispatcher struct {
	sent []sentMessage
	err  error
}

func (m *mockDispatcher) Send(ctx context.Context, channel, text string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{channel: channel, text: text})
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testHeaders = []any{"期限", "案件", "担当者", "メール", "上司名", "上司メール", "進捗状況"}

func testTarget() *config.Target {
	return &config.Target{
		Name:   "tasks",
		Enable: true,
		Source: &sheets.Ref{Kind: sheets.KindCSV, SheetName: "Tasks"},
		Columns: map[string]string{
			"due":            "期限",
			"task":           "案件",
			"assignee_name":  "担当者",
			"assignee_email": "メール",
			"boss_name":      "上司名",
			"boss_email":     "上司メール",
		},
		Comments: map[string]string{"3": "Reminder $name about $task"},
		Channel:  "#reminders",
	}
}

func testClock(t *testing.T) (time.Time, *time.Location) {
	t.Helper()
	loc := mustLoc(t, "Asia/Tokyo")
	return time.Date(2025, 6, 10, 9, 0, 0, 0, loc), loc
}

func newTestProcessor(src *mockSource, res *mockResolver, dis *mockDispatcher) *Processor {
	return NewProcessor(src, res, dis, WithLogger(quietLogger()))
}

func TestProcess_SendsReminderAtOffset(t *testing.T) {
	now, loc := testClock(t)

	target := testTarget()
	target.DaysFromNow = []int{3}
	target.Filters = filter.Leaf("進捗状況", "in", []any{"対応中", "未着手"})

	src := &mockSource{grid: [][]any{
		testHeaders,
		// due 2025-06-13 00:00 is 2.625 days out, ceiling 3
		{"2025-06-13", "Ship it", "Alice", "alice@example.com", "Boss", "boss@example.com", "対応中"},
	}}
	res := &mockResolver{ids: map[string]string{"alice@example.com": "U123"}}
	dis := &mockDispatcher{}

	lines, err := newTestProcessor(src, res, dis).Process(context.Background(), target, now, loc)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(dis.sent) != 1 {
		t.Fatalf("dispatched %d messages, want 1", len(dis.sent))
	}
	if dis.sent[0].channel != "#reminders" {
		t.Errorf("channel = %q, want #reminders", dis.sent[0].channel)
	}
	wantText := "<@U123>\nReminder Alice about Ship it"
	if dis.sent[0].text != wantText {
		t.Errorf("text = %q, want %q", dis.sent[0].text, wantText)
	}

	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1", len(lines))
	}
	wantLine := "[2025-06-10 09:00:00]\n| Tasks | Alice | Ship it | sent"
	if lines[0] != wantLine {
		t.Errorf("log line = %q, want %q", lines[0], wantLine)
	}
}

func TestProcess_UnresolvedAssigneeSkipsRow(t *testing.T) {
	now, loc := testClock(t)

	target := testTarget()
	target.DaysFromNow = []int{3}

	src := &mockSource{grid: [][]any{
		testHeaders,
		{"2025-06-13", "Ship it", "Alice", "alice@example.com", "", "", "対応中"},
	}}
	res := &mockResolver{ids: map[string]string{}} // nobody resolves
	dis := &mockDispatcher{}

	lines, err := newTestProcessor(src, res, dis).Process(context.Background(), target, now, loc)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(dis.sent) != 0 {
		t.Errorf("dispatched %d messages, want 0", len(dis.sent))
	}
	if len(lines) != 0 {
		t.Errorf("got %d log lines, want 0", len(lines))
	}
}

func TestProcess_BossCC(t *testing.T) {
	now, loc := testClock(t)

	target := testTarget()
	target.BossCC = true

	src := &mockSource{grid: [][]any{
		testHeaders,
		{"2025-06-13", "Ship it", "Alice", "alice@example.com", "Boss", "boss@example.com", "対応中"},
	}}
	res := &mockResolver{ids: map[string]string{
		"alice@example.com": "U123",
		"boss@example.com":  "U999",
	}}
	dis := &mockDispatcher{}

	lines, err := newTestProcessor(src, res, dis).Process(context.Background(), target, now, loc)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(dis.sent) != 1 {
		t.Fatalf("dispatched %d messages, want 1", len(dis.sent))
	}
	wantText := "<@U123> cc: <@U999>\nReminder Alice about Ship it"
	if dis.sent[0].text != wantText {
		t.Errorf("text = %q, want %q", dis.sent[0].text, wantText)
	}

	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1", len(lines))
	}
	wantLine := "[2025-06-10 09:00:00]\n| Tasks | Alice (cc: Boss) | Ship it | sent"
	if lines[0] != wantLine {
		t.Errorf("log line = %q, want %q", lines[0], wantLine)
	}
}

func TestProcess_UnresolvedBossDoesNotBlock(t *testing.T) {
	now, loc := testClock(t)

	target := testTarget()
	target.BossCC = true

	src := &mockSource{grid: [][]any{
		testHeaders,
		{"2025-06-13", "Ship it", "Alice", "alice@example.com", "Boss", "boss@example.com", "対応中"},
	}}
	res := &mockResolver{ids: map[string]string{"alice@example.com": "U123"}}
	dis := &mockDispatcher{}

	lines, err := newTestProcessor(src, res, dis).Process(context.Background(), target, now, loc)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(dis.sent) != 1 {
		t.Fatalf("dispatched %d messages, want 1", len(dis.sent))
	}
	wantText := "<@U123>\nReminder Alice about Ship it"
	if dis.sent[0].text != wantText {
		t.Errorf("text = %q, want %q", dis.sent[0].text, wantText)
	}
	if len(lines) != 1 || lines[0] != "[2025-06-10 09:00:00]\n| Tasks | Alice | Ship it | sent" {
		t.Errorf("unexpected log lines %q", lines)
	}
}

func TestProcess_EmptyDueSkipsRowEntirely(t *testing.T) {
	now, loc := testClock(t)

	target := testTarget()
	target.Filters = filter.Leaf("進捗状況", "==", "対応中")

	src := &mockSource{grid: [][]any{
		testHeaders,
		{"", "Ship it", "Alice", "alice@example.com", "", "", "対応中"},
		{nil, "Other", "Bob", "bob@example.com", "", "", "対応中"},
	}}
	res := &mockResolver{ids: map[string]string{"alice@example.com": "U123"}}
	dis := &mockDispatcher{}

	lines, err := newTestProcessor(src, res, dis).Process(context.Background(), target, now, loc)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(res.calls) != 0 {
		t.Errorf("resolver called %d times, want 0", len(res.calls))
	}
	if len(dis.sent) != 0 || len(lines) != 0 {
		t.Errorf("empty due must produce no dispatches or log lines")
	}
}

func TestProcess_FilterGatesOut(t *testing.T) {
	now, loc := testClock(t)

	target := testTarget()
	target.Filters = filter.And(
		filter.Leaf("進捗状況", "in", []any{"対応中"}),
		filter.Leaf("diffDays", "<=", 3),
	)

	src := &mockSource{grid: [][]any{
		testHeaders,
		{"2025-06-13", "Matched", "Alice", "alice@example.com", "", "", "対応中"},
		{"2025-06-13", "Wrong status", "Bob", "bob@example.com", "", "", "完了"},
		{"2025-06-30", "Too far out", "Carol", "carol@example.com", "", "", "対応中"},
	}}
	res := &mockResolver{ids: map[string]string{
		"alice@example.com": "U123",
		"bob@example.com":   "U456",
		"carol@example.com": "U789",
	}}
	dis := &mockDispatcher{}

	lines, err := newTestProcessor(src, res, dis).Process(context.Background(), target, now, loc)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(dis.sent) != 1 {
		t.Fatalf("dispatched %d messages, want 1", len(dis.sent))
	}
	if len(res.calls) != 1 || res.calls[0] != "alice@example.com" {
		t.Errorf("resolver calls = %v, want only alice", res.calls)
	}
	if len(lines) != 1 {
		t.Errorf("got %d log lines, want 1", len(lines))
	}
}

func TestProcess_NoTemplateForOffset(t *testing.T) {
	now, loc := testClock(t)

	target := testTarget()
	target.Comments = map[string]string{"1": "due tomorrow: $task"}

	src := &mockSource{grid: [][]any{
		testHeaders,
		{"2025-06-13", "Ship it", "Alice", "alice@example.com", "", "", "対応中"},
	}}
	res := &mockResolver{ids: map[string]string{"alice@example.com": "U123"}}
	dis := &mockDispatcher{}

	lines, err := newTestProcessor(src, res, dis).Process(context.Background(), target, now, loc)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(res.calls) != 0 {
		t.Errorf("resolver called %d times, want 0", len(res.calls))
	}
	if len(dis.sent) != 0 || len(lines) != 0 {
		t.Error("rows without a template for their offset must be skipped")
	}
}

func TestProcess_DispatchFailureProducesNoLogLine(t *testing.T) {
	now, loc := testClock(t)

	target := testTarget()

	src := &mockSource{grid: [][]any{
		testHeaders,
		{"2025-06-13", "Ship it", "Alice", "alice@example.com", "", "", "対応中"},
	}}
	res := &mockResolver{ids: map[string]string{"alice@example.com": "U123"}}
	dis := &mockDispatcher{err: errors.New("channel_not_found")}

	lines, err := newTestProcessor(src, res, dis).Process(context.Background(), target, now, loc)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(lines) != 0 {
		t.Errorf("a failed dispatch must never be logged as sent, got %q", lines)
	}
}

func TestProcess_FailedRowDoesNotAbortSiblings(t *testing.T) {
	now, loc := testClock(t)

	target := testTarget()

	src := &mockSource{grid: [][]any{
		testHeaders,
		{"not a date", "Broken", "Alice", "alice@example.com", "", "", "対応中"},
		{"2025-06-13", "Fine", "Bob", "bob@example.com", "", "", "対応中"},
	}}
	res := &mockResolver{ids: map[string]string{"bob@example.com": "U456"}}
	dis := &mockDispatcher{}

	lines, err := newTestProcessor(src, res, dis).Process(context.Background(), target, now, loc)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(dis.sent) != 1 {
		t.Fatalf("dispatched %d messages, want 1", len(dis.sent))
	}
	if len(lines) != 1 {
		t.Errorf("got %d log lines, want 1", len(lines))
	}
}

func TestProcess_MissingDueHeaderSkipsEveryRow(t *testing.T) {
	now, loc := testClock(t)

	target := testTarget()
	target.Columns["due"] = "no-such-header"

	src := &mockSource{grid: [][]any{
		testHeaders,
		{"2025-06-13", "Ship it", "Alice", "alice@example.com", "", "", "対応中"},
	}}
	res := &mockResolver{ids: map[string]string{"alice@example.com": "U123"}}
	dis := &mockDispatcher{}

	lines, err := newTestProcessor(src, res, dis).Process(context.Background(), target, now, loc)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(res.calls) != 0 || len(dis.sent) != 0 || len(lines) != 0 {
		t.Error("unresolved due column must skip every row silently")
	}
}

func TestProcess_RowOrderPreserved(t *testing.T) {
	now, loc := testClock(t)

	target := testTarget()

	src := &mockSource{grid: [][]any{
		testHeaders,
		{"2025-06-13", "First", "Alice", "alice@example.com", "", "", ""},
		{"2025-06-13", "Second", "Bob", "bob@example.com", "", "", ""},
	}}
	res := &mockResolver{ids: map[string]string{
		"alice@example.com": "U123",
		"bob@example.com":   "U456",
	}}
	dis := &mockDispatcher{}

	lines, err := newTestProcessor(src, res, dis).Process(context.Background(), target, now, loc)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2", len(lines))
	}
	for i, task := range []string{"First", "Second"} {
		want := fmt.Sprintf("[2025-06-10 09:00:00]\n| Tasks | %s | %s | sent",
			[]string{"Alice", "Bob"}[i], task)
		if lines[i] != want {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], want)
		}
	}
}

func TestProcess_FetchErrorPropagates(t *testing.T) {
	now, loc := testClock(t)

	src := &mockSource{err: errors.New("permission denied")}
	res := &mockResolver{}
	dis := &mockDispatcher{}

	_, err := newTestProcessor(src, res, dis).Process(context.Background(), testTarget(), now, loc)
	if err == nil {
		t.Fatal("expected fetch error to propagate")
	}
}
