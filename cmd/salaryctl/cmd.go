package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/warp/salary-engine/client"
	"github.com/warp/salary-engine/config"
	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/orchestrator"
	"github.com/warp/salary-engine/salary"
)

var (
	isTerminal = term.IsTerminal // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	in  io.Reader
	out io.Writer

	cfg    *config.Config
	logger *slog.Logger
	api    *client.Client
	now    func() time.Time
}

func newCommandLine(in io.Reader, out io.Writer) (*commandLine, error) {
	return &commandLine{in: in, out: out, now: time.Now}, nil
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage: salaryctl [-server URL] [-env FILE] <command> [flags]")
	fmt.Fprintln(cli.out, "  teachers                                          list teachers")
	fmt.Fprintln(cli.out, "  list     -teacher ID [-status S] [-academic-year ID]")
	fmt.Fprintln(cli.out, "  periods  -teacher ID [-year Y]                    months that can be generated")
	fmt.Fprintln(cli.out, "  preview  -teacher ID [-period YYYY-MM]")
	fmt.Fprintln(cli.out, "  generate -teacher ID [-period YYYY-MM] [-yes]")
	fmt.Fprintln(cli.out, "  approve  -teacher ID -id CALC [-amount A] [-reason R]")
	fmt.Fprintln(cli.out, "  reopen   -teacher ID -id CALC -reason R")
	fmt.Fprintln(cli.out, "  audit    -teacher ID -id CALC")
	fmt.Fprintln(cli.out, "  scenario -load NAME")
}

// setup resolves configuration and the API client from the global flags.
func (cli *commandLine) setup(args []string) ([]string, error) {
	global := flag.NewFlagSet("salaryctl", flag.ContinueOnError)
	global.SetOutput(cli.out)
	server := global.String("server", "", "API base URL")
	envFile := global.String("env", ".env", "dotenv file")
	if err := global.Parse(args); err != nil {
		return nil, errHelp
	}

	loader, err := config.NewLoader(*envFile)
	if err != nil {
		return nil, err
	}
	if *server != "" {
		loader.Set("server_url", *server)
	}
	cfg, err := loader.Resolve()
	if err != nil {
		return nil, err
	}
	cli.cfg = cfg
	cli.logger = cfg.NewLogger(os.Stderr)
	cli.api = client.New(cfg.ServerURL, client.WithTimeout(cfg.RequestTimeout))
	return global.Args(), nil
}

func (cli *commandLine) run(args []string) error {
	rest, err := cli.setup(args[1:])
	if err != nil {
		return err
	}
	if len(rest) < 1 {
		cli.printUsage()
		return errHelp
	}

	ctx := context.Background()
	cmd, cmdArgs := rest[0], rest[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	teacher := fs.String("teacher", "", "teacher ID")

	switch cmd {
	case "teachers":
		if err := fs.Parse(cmdArgs); err != nil {
			return errHelp
		}
		return cli.teachers(ctx)

	case "list":
		status := fs.String("status", "", "pending, approved or reopened")
		year := fs.String("academic-year", "", "academic year ID")
		if err := parseWithTeacher(fs, cmdArgs, teacher); err != nil {
			return err
		}
		return cli.list(ctx, *teacher, salary.ListFilter{
			Status:         salary.Status(*status),
			AcademicYearID: generic.AcademicYearID(*year),
		})

	case "periods":
		year := fs.Int("year", 0, "calendar year (default: current)")
		if err := parseWithTeacher(fs, cmdArgs, teacher); err != nil {
			return err
		}
		return cli.periods(ctx, *teacher, *year)

	case "preview":
		period := fs.String("period", "", "YYYY-MM (default: dialog default)")
		if err := parseWithTeacher(fs, cmdArgs, teacher); err != nil {
			return err
		}
		return cli.preview(ctx, *teacher, *period)

	case "generate":
		period := fs.String("period", "", "YYYY-MM (default: dialog default)")
		yes := fs.Bool("yes", false, "do not ask for confirmation")
		if err := parseWithTeacher(fs, cmdArgs, teacher); err != nil {
			return err
		}
		return cli.generate(ctx, *teacher, *period, *yes)

	case "approve":
		id := fs.String("id", "", "calculation ID")
		amount := fs.String("amount", "", "approved amount (default: calculated amount)")
		reason := fs.String("reason", "", "adjustment reason, required when the amount changes")
		if err := parseWithTeacher(fs, cmdArgs, teacher, id); err != nil {
			return err
		}
		return cli.approve(ctx, *teacher, *id, *amount, *reason)

	case "reopen":
		id := fs.String("id", "", "calculation ID")
		reason := fs.String("reason", "", "why the approved figure is reopened (10-500 characters)")
		if err := parseWithTeacher(fs, cmdArgs, teacher, id); err != nil {
			return err
		}
		return cli.reopen(ctx, *teacher, *id, *reason)

	case "audit":
		id := fs.String("id", "", "calculation ID")
		if err := parseWithTeacher(fs, cmdArgs, teacher, id); err != nil {
			return err
		}
		return cli.audit(ctx, *teacher, *id)

	case "scenario":
		name := fs.String("load", "", "scenario ID (music-school, no-rate-card, empty-schedule)")
		if err := fs.Parse(cmdArgs); err != nil {
			return errHelp
		}
		if *name == "" {
			fs.Usage()
			return errHelp
		}
		if err := cli.api.LoadScenario(ctx, *name); err != nil {
			return cli.present(err)
		}
		fmt.Fprintf(cli.out, "Loaded scenario %s\n", *name)
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}

// parseWithTeacher parses fs and requires every given string flag.
func parseWithTeacher(fs *flag.FlagSet, args []string, required ...*string) error {
	if err := fs.Parse(args); err != nil {
		return errHelp
	}
	for _, v := range required {
		if *v == "" {
			fs.Usage()
			return errHelp
		}
	}
	return nil
}

// =============================================================================
// COMMANDS
// =============================================================================

func (cli *commandLine) session(ctx context.Context, teacherID string) (*orchestrator.Session, error) {
	s := orchestrator.NewSession(cli.api, generic.TeacherID(teacherID))
	s.Now = cli.now
	s.Logger = cli.logger
	if err := s.Load(ctx); err != nil {
		return nil, cli.present(err)
	}
	return s, nil
}

func (cli *commandLine) teachers(ctx context.Context) error {
	teachers, err := cli.api.Teachers(ctx)
	if err != nil {
		return cli.present(err)
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMPLOYMENT\tBASE\tRATE CARD")
	for _, t := range teachers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.EmploymentType,
			generic.FormatMoney(t.BaseSalaryAmount), t.RateCardID)
	}
	return w.Flush()
}

func (cli *commandLine) list(ctx context.Context, teacherID string, filter salary.ListFilter) error {
	s := orchestrator.NewSession(cli.api, generic.TeacherID(teacherID))
	calcs, err := s.List(ctx, filter)
	if err != nil {
		return cli.present(err)
	}
	cli.printCalculations(calcs)
	return nil
}

func (cli *commandLine) periods(ctx context.Context, teacherID string, year int) error {
	s, err := cli.session(ctx, teacherID)
	if err != nil {
		return err
	}
	d := s.OpenGenerateDialog()
	if year != 0 {
		if err := d.SetYear(year); err != nil {
			return cli.present(err)
		}
	}

	selected := d.Selected()
	fmt.Fprintf(cli.out, "%d (years offered: %s)\n", selected.Year, joinInts(d.Years(2)))
	for _, m := range d.Months() {
		mark := " "
		if m.Month == int(selected.Month) && !d.Exhausted() {
			mark = "*"
		}
		state := "available"
		switch {
		case m.Generated:
			state = "generated"
		case m.Future:
			state = "future"
		}
		fmt.Fprintf(cli.out, " %s %-9s %s\n", mark, time.Month(m.Month), state)
	}
	if d.Exhausted() {
		fmt.Fprintln(cli.out, "Nothing left to generate in this year.")
	}
	return nil
}

// pick opens the generate dialog and applies an explicit period, if any.
func (cli *commandLine) pick(s *orchestrator.Session, period string) (*orchestrator.GenerateDialog, error) {
	d := s.OpenGenerateDialog()
	if period == "" {
		return d, nil
	}
	p, err := generic.ParsePeriodKey(period)
	if err != nil {
		return nil, cli.present(generic.NewValidationError("period", err.Error()))
	}
	if err := d.SetYear(p.Year); err != nil {
		return nil, cli.present(err)
	}
	if err := d.SetMonth(int(p.Month)); err != nil {
		return nil, cli.present(err)
	}
	return d, nil
}

func (cli *commandLine) preview(ctx context.Context, teacherID, period string) error {
	s, err := cli.session(ctx, teacherID)
	if err != nil {
		return err
	}
	d, err := cli.pick(s, period)
	if err != nil {
		return err
	}
	display, err := d.LoadPreview(ctx)
	if err != nil {
		return cli.present(err)
	}
	cli.printPreview(d.Selected(), display)
	return nil
}

func (cli *commandLine) generate(ctx context.Context, teacherID, period string, yes bool) error {
	s, err := cli.session(ctx, teacherID)
	if err != nil {
		return err
	}
	d, err := cli.pick(s, period)
	if err != nil {
		return err
	}
	if err := s.Availability().CheckSelectable(d.Selected()); err != nil {
		return cli.present(err)
	}

	if !yes && cli.interactive() {
		display, err := d.LoadPreview(ctx)
		if err != nil {
			return cli.present(err)
		}
		cli.printPreview(d.Selected(), display)
		if !cli.confirm(fmt.Sprintf("Generate %s for %s?", d.Selected(), teacherID)) {
			fmt.Fprintln(cli.out, "Cancelled.")
			return nil
		}
	}

	calc, err := d.Submit(ctx)
	if err != nil {
		return cli.present(err)
	}
	fmt.Fprintf(cli.out, "Generated %s: %s (%s)\n", calc.Period, generic.FormatMoney(calc.CalculatedAmount), calc.ID)
	cli.printCalculations(s.Calculations.All())
	return nil
}

func (cli *commandLine) approve(ctx context.Context, teacherID, id, amount, reason string) error {
	s, err := cli.session(ctx, teacherID)
	if err != nil {
		return err
	}
	d, err := s.OpenApproveDialog(generic.CalculationID(id))
	if err != nil {
		return cli.present(err)
	}
	if amount != "" {
		d.Amount = amount
	}
	d.Reason = reason

	calc, err := d.Submit(ctx)
	if err != nil {
		return cli.present(err)
	}
	fmt.Fprintf(cli.out, "Approved %s at %s\n", calc.Period, generic.FormatMoney(*calc.ApprovedAmount))
	cli.printCalculations(s.Calculations.All())
	return nil
}

func (cli *commandLine) reopen(ctx context.Context, teacherID, id, reason string) error {
	s, err := cli.session(ctx, teacherID)
	if err != nil {
		return err
	}
	d, err := s.OpenReopenDialog(generic.CalculationID(id))
	if err != nil {
		return cli.present(err)
	}
	d.Reason = reason

	calc, err := d.Submit(ctx)
	if err != nil {
		return cli.present(err)
	}
	fmt.Fprintf(cli.out, "Reopened %s\n", calc.Period)
	cli.printCalculations(s.Calculations.All())
	return nil
}

func (cli *commandLine) audit(ctx context.Context, teacherID, id string) error {
	entries, err := cli.api.AuditTrail(ctx, generic.TeacherID(teacherID), generic.CalculationID(id))
	if err != nil {
		return cli.present(err)
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "AT\tACTION\tFROM\tTO\tAMOUNT\tREASON")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", e.At, e.Action, e.FromStatus, e.ToStatus, e.Amount, e.Reason)
	}
	return w.Flush()
}

// =============================================================================
// OUTPUT
// =============================================================================

func (cli *commandLine) printCalculations(calcs []salary.Calculation) {
	if len(calcs) == 0 {
		fmt.Fprintln(cli.out, "No salary calculations.")
		return
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PERIOD\tSTATUS\tCALCULATED\tAPPROVED\tACTIONS\tID")
	for _, c := range calcs {
		approved := "-"
		if amount, ok := c.AuthoritativeAmount(); ok {
			approved = generic.FormatMoney(amount)
		} else if c.ApprovedAmount != nil {
			approved = "(" + generic.FormatMoney(*c.ApprovedAmount) + ")"
		}
		actions := make([]string, 0, 2)
		for _, a := range c.AvailableActions() {
			actions = append(actions, string(a))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", c.Period, c.Status,
			generic.FormatMoney(c.CalculatedAmount), approved, strings.Join(actions, ","), c.ID)
	}
	w.Flush()
}

func (cli *commandLine) printPreview(period generic.PeriodKey, d *salary.PreviewDisplay) {
	fmt.Fprintf(cli.out, "Preview for %s\n", period)
	if d.State == salary.PreviewNothingScheduled {
		fmt.Fprintln(cli.out, "  No classes scheduled.")
	} else {
		w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  CLASS\tLESSONS\tSTUDENTS\tRATE\tAMOUNT\t")
		for _, c := range d.Classes {
			note := ""
			if c.HasPendingEnrollmentChanges {
				note = "pending changes"
			}
			fmt.Fprintf(w, "  %s\t%d\t%d\t%s\t%s\t%s\n", c.ClassName, c.ScheduledLessons, c.ActiveStudents,
				c.RateTierDescription, generic.FormatMoney(c.EstimatedAmount), note)
		}
		w.Flush()
		fmt.Fprintf(cli.out, "  Variable: %s\n", generic.FormatMoney(d.VariableAmount))
		if d.ShowGrandTotal {
			fmt.Fprintf(cli.out, "  Base:     %s\n", generic.FormatMoney(d.BaseSalaryAmount))
			fmt.Fprintf(cli.out, "  Total:    %s\n", generic.FormatMoney(d.GrandTotal))
		}
	}
	for _, msg := range d.Warnings {
		fmt.Fprintf(cli.out, "  ! %s\n", msg)
	}
	for _, msg := range d.PendingChangeWarnings {
		fmt.Fprintf(cli.out, "  ~ %s\n", msg)
	}
}

// present prints the feedback for err and returns an error for the exit code.
func (cli *commandLine) present(err error) error {
	fb := orchestrator.Present(err)
	if fb.IsZero() {
		return nil
	}
	if len(fb.Fields) > 0 {
		fields := make([]string, 0, len(fb.Fields))
		for f := range fb.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(cli.out, "  %s: %s\n", f, fb.Fields[f])
		}
	}
	if fb.Retryable {
		return fmt.Errorf("%s (retry the command)", fb.Message)
	}
	return errors.New(fb.Message)
}

func (cli *commandLine) interactive() bool {
	f, ok := cli.in.(*os.File)
	return ok && isTerminal(int(f.Fd()))
}

func (cli *commandLine) confirm(question string) bool {
	fmt.Fprintf(cli.out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(cli.in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func joinInts(in []int) string {
	parts := make([]string, len(in))
	for i, v := range in {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
