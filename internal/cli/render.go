package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/your-username/appsync-flow-simulator/internal/cache"
	"github.com/your-username/appsync-flow-simulator/internal/flow"
	"github.com/your-username/appsync-flow-simulator/internal/models"
)

// Renderer prints simulator events as colored terminal lines
type Renderer struct {
	w io.Writer

	red     func(a ...interface{}) string
	green   func(a ...interface{}) string
	yellow  func(a ...interface{}) string
	cyan    func(a ...interface{}) string
	magenta func(a ...interface{}) string
	faint   func(a ...interface{}) string
	bold    func(a ...interface{}) string
}

func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{
		w:       w,
		red:     color.New(color.FgRed).SprintFunc(),
		green:   color.New(color.FgGreen).SprintFunc(),
		yellow:  color.New(color.FgYellow).SprintFunc(),
		cyan:    color.New(color.FgCyan).SprintFunc(),
		magenta: color.New(color.FgMagenta).SprintFunc(),
		faint:   color.New(color.Faint).SprintFunc(),
		bold:    color.New(color.Bold).SprintFunc(),
	}
}

// Render prints one event. Events without a visible effect are skipped.
func (r *Renderer) Render(e models.Event) {
	switch e.Type {
	case models.EventStage:
		st := e.Stage
		fmt.Fprintf(r.w, "  %s %s\n", r.faint(fmt.Sprintf("%-12s", "["+string(st.Stage)+"]")), r.byState(st.State, st.Status))
	case models.EventDetail:
		d := e.Detail
		fmt.Fprintf(r.w, "  %s %s: %s\n", r.faint("•"), d.Field, r.byClass(d.Class, d.Value))
	case models.EventResponseTime:
		fmt.Fprintf(r.w, "  %s %s\n", r.faint("response time:"), r.bold(e.ResponseTime))
	case models.EventLog, models.EventLogCleared:
		fmt.Fprintln(r.w, r.bySeverity(e.Log.Severity, e.Log.String()))
	case models.EventFeed:
		fmt.Fprintf(r.w, "  %s %s\n", r.magenta("⇢"), r.magenta(e.Feed.String()))
	case models.EventCompleted:
		c := e.Completion
		switch c.Outcome {
		case models.OutcomeFailed:
			fmt.Fprintf(r.w, "%s %s failed: %s\n\n", r.red("✘"), r.bold(c.Name), c.Reason)
		default:
			fmt.Fprintf(r.w, "%s %s %s in %s\n\n", r.green("✔"), r.bold(c.Name), c.Outcome, c.ResponseTime)
		}
	}
}

func (r *Renderer) byState(state models.StageState, text string) string {
	switch state {
	case models.StateSuccess:
		return r.green(text)
	case models.StateError:
		return r.red(text)
	case models.StateActive, models.StateProcessing:
		return r.cyan(text)
	default:
		return r.faint(text)
	}
}

func (r *Renderer) byClass(class models.DetailClass, text string) string {
	switch class {
	case models.ClassSuccess:
		return r.green(text)
	case models.ClassError:
		return r.red(text)
	case models.ClassWarning:
		return r.yellow(text)
	default:
		return text
	}
}

func (r *Renderer) bySeverity(severity models.Severity, text string) string {
	switch severity {
	case models.SeveritySuccess:
		return r.green(text)
	case models.SeverityError:
		return r.red(text)
	case models.SeverityWarning:
		return r.yellow(text)
	default:
		return r.cyan(text)
	}
}

// WriteResults prints one table row per executed operation
func WriteResults(w io.Writer, results []*flow.Result) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"#", "Operation", "Data Source", "Resolver", "Outcome", "Response Time", "Trace"})

	data := make([][]string, 0, len(results))
	for i, res := range results {
		outcome := string(res.Outcome)
		if res.Reason != "" {
			outcome += " (" + res.Reason + ")"
		}
		data = append(data, []string{
			strconv.Itoa(i + 1),
			res.Operation.Name,
			res.Operation.DataSource.DisplayName(),
			res.Operation.Resolver.DisplayName(),
			outcome,
			orDash(res.ResponseTime),
			shortID(res.TraceID),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// WriteStats prints the counters and response cache statistics
func WriteStats(w io.Writer, stats models.Stats, cs cache.CacheStats) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Value"})

	data := [][]string{
		{"Total Operations", strconv.FormatInt(stats.TotalOperations, 10)},
		{"Queries", strconv.FormatInt(stats.QueryCount, 10)},
		{"Mutations", strconv.FormatInt(stats.MutationCount, 10)},
		{"Subscriptions", strconv.FormatInt(stats.SubscriptionCount, 10)},
		{"Cache Entries", strconv.Itoa(cs.Size)},
		{"Cache Hits", strconv.FormatInt(cs.Hits, 10)},
		{"Cache Misses", strconv.FormatInt(cs.Misses, 10)},
		{"Cache Hit Rate", fmt.Sprintf("%.0f%%", cs.HitRate*100)},
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return orDash(id)
}
