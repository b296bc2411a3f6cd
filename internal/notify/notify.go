// Package notify keeps GitHub watchdog issues in sync with the broken-since
// database: an issue is opened once a source's imagery has been broken for a
// number of consecutive days and closed again when it recovers.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"eliwatch/internal/checks"
	gh "eliwatch/internal/github"
	"eliwatch/internal/logging"
	"eliwatch/internal/output"
	"eliwatch/internal/report"
)

const (
	DefaultAfterDays = 5
	DefaultRepo      = "osmlab/editor-layer-index"

	IssueLabel       = "imagery"
	RecoveredComment = "Imagery seems to work again."
)

// Tracker is the issue tracker side of the notifier. *github.Repository implements it.
type Tracker interface {
	WatchdogIssues(ctx context.Context) (map[string]gh.WatchdogIssue, error)
	CreateIssue(ctx context.Context, title, body string, labels []string) (int, error)
	ReopenIssue(ctx context.Context, number int, comment string) error
	CloseIssue(ctx context.Context, number int, comment string) error
	Contributors(ctx context.Context, path string) ([]string, error)
}

type ActionKind string

const (
	ActionCreate ActionKind = "create"
	ActionReopen ActionKind = "reopen"
	ActionClose  ActionKind = "close"
)

// Action is one planned change to the tracker. Path is the registry path
// ("sources/…/x.geojson") the watchdog issue is keyed by.
type Action struct {
	Kind   ActionKind
	Path   string
	Name   string
	Number int
	Days   int
	Reason string
}

func (a Action) String() string {
	switch a.Kind {
	case ActionCreate:
		return fmt.Sprintf("create issue for %s (broken %d days)", a.Path, a.Days)
	case ActionReopen:
		return fmt.Sprintf("reopen #%d for %s (broken %d days)", a.Number, a.Path, a.Days)
	default:
		return fmt.Sprintf("close #%d for %s", a.Number, a.Path)
	}
}

type Notifier struct {
	tracker     Tracker
	afterDays   int
	dryRun      bool
	registryURL string
	now         func() time.Time
	log         *zap.Logger
}

type Option func(*Notifier)

func WithAfterDays(days int) Option {
	return func(n *Notifier) { n.afterDays = days }
}

// WithDryRun plans actions without touching the tracker.
func WithDryRun(enabled bool) Option {
	return func(n *Notifier) { n.dryRun = enabled }
}

// WithRegistryURL sets the prefix of the source links in issue bodies.
func WithRegistryURL(u string) Option {
	return func(n *Notifier) {
		if u != "" {
			n.registryURL = u
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(n *Notifier) { n.log = logging.OrNop(log) }
}

func New(t Tracker, opts ...Option) (*Notifier, error) {
	if t == nil {
		return nil, errors.New("notify: tracker is nil")
	}
	n := &Notifier{
		tracker:     t,
		afterDays:   DefaultAfterDays,
		registryURL: output.DefaultRegistryURL,
		now:         time.Now,
		log:         zap.NewNop(),
	}
	for _, apply := range opts {
		if apply != nil {
			apply(n)
		}
	}
	if n.afterDays < 1 {
		return nil, fmt.Errorf("notify: after-days must be >= 1, got %d", n.afterDays)
	}
	return n, nil
}

// Plan compares the snapshot and broken DB with the existing watchdog issues.
//
// A source broken for exactly afterDays consecutive days (the first day
// counts as day 1) gets a new issue, or its closed issue is reopened. Open
// issues of sources that are no longer broken are closed.
func (n *Notifier) Plan(ctx context.Context, r *report.Report, db report.BrokenDB) ([]Action, error) {
	if r == nil {
		return nil, errors.New("notify: report is nil")
	}
	issues, err := n.tracker.WatchdogIssues(ctx)
	if err != nil {
		return nil, err
	}

	today := n.now()
	broken := make(map[string]bool)
	var actions []Action

	for _, sr := range r.Sources {
		if !sr.ImageryBroken() {
			continue
		}
		whole, ok := db.DaysBroken(sr.ID, today)
		if !ok {
			continue
		}
		path := sr.RegistryPath()
		broken[path] = true

		days := whole + 1
		n.log.Debug("imagery broken", zap.String("source", sr.ID), zap.Int("days", days))
		if days != n.afterDays {
			continue
		}

		a := Action{Path: path, Name: sr.Name, Days: days, Reason: reason(sr)}
		existing, found := issues[path]
		switch {
		case !found:
			a.Kind = ActionCreate
		case existing.Open:
			continue
		default:
			a.Kind = ActionReopen
			a.Number = existing.Number
		}
		actions = append(actions, a)
	}

	var closes []Action
	for path, is := range issues {
		if is.Open && !broken[path] {
			closes = append(closes, Action{Kind: ActionClose, Path: path, Number: is.Number})
		}
	}
	sort.Slice(closes, func(i, j int) bool { return closes[i].Path < closes[j].Path })
	return append(actions, closes...), nil
}

// Apply performs the actions. A failed action is logged and does not stop the
// remaining ones; all failures are returned joined.
func (n *Notifier) Apply(ctx context.Context, actions []Action) error {
	var errs []error
	for _, a := range actions {
		if err := n.apply(ctx, a); err != nil {
			n.log.Error("notify action failed", zap.String("action", a.String()), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		n.log.Info("notify action done", zap.String("action", a.String()))
	}
	return errors.Join(errs...)
}

// Run plans and, unless in dry-run mode, applies the actions.
func (n *Notifier) Run(ctx context.Context, r *report.Report, db report.BrokenDB) ([]Action, error) {
	actions, err := n.Plan(ctx, r, db)
	if err != nil {
		return nil, err
	}
	if n.dryRun {
		return actions, nil
	}
	return actions, n.Apply(ctx, actions)
}

func (n *Notifier) apply(ctx context.Context, a Action) error {
	switch a.Kind {
	case ActionCreate:
		contributors, err := n.tracker.Contributors(ctx, a.Path)
		if err != nil {
			n.log.Warn("could not list contributors", zap.String("path", a.Path), zap.Error(err))
		}
		_, err = n.tracker.CreateIssue(ctx, IssueTitle(a.Name, a.Path), n.issueBody(a, contributors), []string{IssueLabel})
		return err
	case ActionReopen:
		comment := fmt.Sprintf("Watchdog failed again for %d consecutive days.\n\nReason:\n%s", a.Days, a.Reason)
		return n.tracker.ReopenIssue(ctx, a.Number, comment)
	case ActionClose:
		return n.tracker.CloseIssue(ctx, a.Number, RecoveredComment)
	default:
		return fmt.Errorf("unknown action %q", a.Kind)
	}
}

// IssueTitle is the watchdog issue title. The path must stay in the title:
// existing issues are matched by it.
func IssueTitle(name, path string) string {
	return fmt.Sprintf("%s Imagery %q: %s broken", gh.WatchdogTitlePrefix, name, path)
}

func (n *Notifier) issueBody(a Action, contributors []string) string {
	link := n.registryURL + strings.TrimPrefix(a.Path, "sources/")
	mentions := make([]string, 0, len(contributors))
	for _, c := range contributors {
		mentions = append(mentions, "@"+c)
	}
	lines := []string{
		fmt.Sprintf("Watchdog failed for %d consecutive days for:", a.Days),
		fmt.Sprintf("%q -> [%s](%s)", a.Name, a.Path, link),
		"",
		"Reason:",
		a.Reason,
		"",
		"CC contributors to this imagery:",
		strings.Join(mentions, ", "),
	}
	return strings.Join(lines, "\n")
}

// reason picks the imagery messages that explain the failure: those marked
// as errors when there are any, all of them otherwise.
func reason(sr report.SourceResult) string {
	msgs := sr.Outcome(checks.IDImagery).Messages
	var errs []string
	for _, m := range msgs {
		if strings.Contains(m, "Error") {
			errs = append(errs, m)
		}
	}
	if len(errs) == 0 {
		errs = msgs
	}
	return strings.Join(errs, "\n")
}
