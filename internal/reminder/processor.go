package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/gxliu28/gas-bot/internal/config"
	"github.com/gxliu28/gas-bot/internal/filter"
	"github.com/gxliu28/gas-bot/internal/metrics"
	"github.com/gxliu28/gas-bot/internal/sheets"
)

// Logical column keys recognized in a target's column mapping.
const (
	colDue           = "due"
	colTask          = "task"
	colAssigneeName  = "assignee_name"
	colAssigneeEmail = "assignee_email"
	colBossName      = "boss_name"
	colBossEmail     = "boss_email"
)

// diffDaysField is the synthetic record field carrying the day offset.
const diffDaysField = "diffDays"

// Row skip reasons (metrics labels).
const (
	skipEmptyDue           = "empty_due"
	skipBadDue             = "bad_due"
	skipDaysFromNow        = "days_from_now"
	skipFilter             = "filter"
	skipNoTemplate         = "no_template"
	skipAssigneeUnresolved = "assignee_unresolved"
	skipDispatchFailed     = "dispatch_failed"
)

// Processor runs the row-to-notification pipeline for one target.
type Processor struct {
	source     sheets.Source
	resolver   IdentityResolver
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// ProcessorOption configures the Processor.
type ProcessorOption func(*Processor)

// WithLogger sets the processor's logger.
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithMetrics attaches run metrics.
func WithMetrics(m *metrics.Metrics) ProcessorOption {
	return func(p *Processor) {
		p.metrics = m
	}
}

// NewProcessor creates a processor over the given collaborators.
func NewProcessor(source sheets.Source, resolver IdentityResolver, dispatcher Dispatcher, opts ...ProcessorOption) *Processor {
	p := &Processor{
		source:     source,
		resolver:   resolver,
		dispatcher: dispatcher,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process fetches the target's grid, evaluates every data row against the
// target's gates and dispatches reminders for the rows that pass all of
// them. It returns the run-log lines for the rows whose dispatch genuinely
// succeeded. Row-level failures never abort the remaining rows.
func (p *Processor) Process(ctx context.Context, target *config.Target, now time.Time, loc *time.Location) ([]string, error) {
	ref := target.SheetRef()
	grid, err := p.source.Fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref.Name(), err)
	}
	if len(grid) == 0 {
		return nil, nil
	}

	headers := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		headers[i] = filter.Stringify(h)
	}
	idx := resolveColumns(headers, target.Columns)

	var lines []string
	for _, row := range grid[1:] {
		if line, ok := p.processRow(ctx, target, ref.Name(), headers, idx, row, now, loc); ok {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// resolveColumns maps logical column keys to positional indices against
// the header row. Headers not present resolve to -1 and read as absent.
func resolveColumns(headers []string, mapping map[string]string) map[string]int {
	idx := make(map[string]int, len(mapping))
	for key, header := range mapping {
		idx[key] = slices.Index(headers, header)
	}
	return idx
}

func (p *Processor) processRow(ctx context.Context, target *config.Target, sheetName string, headers []string, idx map[string]int, row []any, now time.Time, loc *time.Location) (string, bool) {
	p.metrics.RowProcessed()

	dueVal, ok := cell(row, idx[colDue])
	if !ok || isEmptyCell(dueVal) {
		p.metrics.RowSkipped(skipEmptyDue)
		return "", false
	}

	due, err := parseDue(dueVal, loc)
	if err != nil {
		p.logger.Warn("skipping row with invalid due date",
			"target", target.DisplayName(),
			"due", filter.Stringify(dueVal),
			"error", err,
		)
		p.metrics.RowSkipped(skipBadDue)
		return "", false
	}
	days := diffDays(due, now)

	record := projectRecord(headers, row)
	record[diffDaysField] = days

	hit := target.Filters.Evaluate(record)
	name := stringCell(row, idx[colAssigneeName])
	task := stringCell(row, idx[colTask])

	p.logger.Debug("evaluated row",
		"target", target.DisplayName(),
		"task", task,
		"assignee", name,
		"diff_days", days,
		"filter_hit", hit,
	)

	if len(target.DaysFromNow) > 0 && !slices.Contains(target.DaysFromNow, days) {
		p.metrics.RowSkipped(skipDaysFromNow)
		return "", false
	}
	if !hit {
		p.metrics.RowSkipped(skipFilter)
		return "", false
	}

	tmpl, ok := target.Comments[strconv.Itoa(days)]
	if !ok {
		p.logger.Debug("no template for offset",
			"target", target.DisplayName(),
			"diff_days", days,
		)
		p.metrics.RowSkipped(skipNoTemplate)
		return "", false
	}
	comment := renderTemplate(tmpl, name, task)

	assigneeID, ok := p.resolver.LookupByEmail(ctx, stringCell(row, idx[colAssigneeEmail]))
	if !ok {
		p.logger.Warn("skipping row with unresolved assignee",
			"target", target.DisplayName(),
			"task", task,
			"assignee", name,
		)
		p.metrics.RowSkipped(skipAssigneeUnresolved)
		return "", false
	}

	var bossID string
	if target.BossCC {
		// An unresolved boss does not block the primary notification.
		bossID, _ = p.resolver.LookupByEmail(ctx, stringCell(row, idx[colBossEmail]))
	}

	var text string
	if bossID != "" {
		text = fmt.Sprintf("<@%s> cc: <@%s>\n%s", assigneeID, bossID, comment)
	} else {
		text = fmt.Sprintf("<@%s>\n%s", assigneeID, comment)
	}

	if err := p.dispatcher.Send(ctx, target.Channel, text); err != nil {
		p.logger.Error("failed to dispatch reminder",
			"target", target.DisplayName(),
			"channel", target.Channel,
			"task", task,
			"error", err,
		)
		p.metrics.DispatchFailed(target.DisplayName())
		p.metrics.RowSkipped(skipDispatchFailed)
		return "", false
	}
	p.metrics.ReminderSent(target.DisplayName())

	ccText := ""
	if bossID != "" {
		ccText = fmt.Sprintf(" (cc: %s)", stringCell(row, idx[colBossName]))
	}
	line := fmt.Sprintf("[%s]\n| %s | %s%s | %s | sent",
		now.Format("2006-01-02 15:04:05"), sheetName, name, ccText, task)
	return line, true
}

// stringCell reads a row cell as its string form; absent cells read empty.
func stringCell(row []any, i int) string {
	v, ok := cell(row, i)
	if !ok {
		return ""
	}
	return filter.Stringify(v)
}
