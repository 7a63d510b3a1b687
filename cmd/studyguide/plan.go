package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dusk-indust/studyguide/internal/constraint"
	"github.com/dusk-indust/studyguide/internal/export"
	"github.com/dusk-indust/studyguide/internal/notify"
	"github.com/dusk-indust/studyguide/internal/persistence"
	"github.com/dusk-indust/studyguide/internal/plan"
)

// errInvalidPlan is returned by validate when violations remain.
var errInvalidPlan = errors.New("plan has violations")

// loadPlan reads a plan document and attaches a constraint engine. Plans
// saved without constraints get the configured default set.
func (a *app) loadPlan(path string) (*constraint.Engine, error) {
	if path == "" {
		return nil, fmt.Errorf("plan file is required")
	}
	p, err := persistence.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var defaults []plan.Constraint
	if len(p.Constraints()) == 0 {
		defaults = a.cfg.Constraints()
	}
	return a.newEngine(p, defaults)
}

func (a *app) newEngine(p *plan.Plan, constraints []plan.Constraint) (*constraint.Engine, error) {
	return constraint.NewEngine(p, constraints,
		constraint.WithLogger(a.logger.Named("engine")),
		constraint.WithMetrics(a.metrics),
	)
}

// runValidate prints the active violations of a plan.
func (a *app) runValidate(path string) error {
	engine, err := a.loadPlan(path)
	if err != nil {
		return err
	}
	defer engine.Close()

	active := engine.Active()
	if len(active) == 0 {
		fmt.Fprintf(a.out, "%s: valid (%d credits)\n", path, engine.Plan().Credits())
		return nil
	}
	for _, v := range active {
		fmt.Fprintf(a.out, "  %s\n", notify.Describe(v))
	}
	return fmt.Errorf("%w: %d", errInvalidPlan, len(active))
}

// runStatus prints the semesters of a plan with their terms and credits.
func (a *app) runStatus(path string) error {
	engine, err := a.loadPlan(path)
	if err != nil {
		return err
	}
	defer engine.Close()
	p := engine.Plan()

	terms := constraint.TermAvailability{FirstTerm: a.cfg.FirstTerm}
	for _, c := range p.Constraints() {
		if t, ok := c.(constraint.TermAvailability); ok {
			terms = t
		}
	}

	semesters := p.Semesters()
	if len(semesters) == 0 {
		fmt.Fprintln(a.out, "No semesters planned.")
		return nil
	}
	for i, s := range semesters {
		fmt.Fprintf(a.out, "%-20s %-6s %3d cr\n", s.Name(), terms.TermOf(i), s.Credits())
		for _, e := range s.Enrollments() {
			marker := " "
			if e.Completed() {
				marker = "✓"
			}
			c := e.Course()
			fmt.Fprintf(a.out, "  %s %-10s %s (%d cr)\n", marker, c.Code(), c.Name(), c.Credits())
		}
	}

	label := "valid"
	if !engine.Valid() {
		label = fmt.Sprintf("%d violation(s)", len(engine.Active()))
	}
	fmt.Fprintf(a.out, "\nTotal: %d credits, %s\n", p.Credits(), label)
	return nil
}

// runExport prints a JSON report of a plan.
func (a *app) runExport(path string) error {
	engine, err := a.loadPlan(path)
	if err != nil {
		return err
	}
	defer engine.Close()

	data := export.ExportPlan(engine.Plan(), engine.Active())
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = a.out.Write(append(out, '\n'))
	return err
}

// runInitPlan writes an empty plan with the configured constraints.
func (a *app) runInitPlan(path string) error {
	if path == "" {
		return fmt.Errorf("usage: studyguide init-plan <plan.json|plan.yaml>")
	}
	if _, err := persistence.FormatFor(path); err != nil {
		return err
	}
	if !a.flags.Force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s exists, use --force to overwrite", path)
		}
	}
	if a.flags.Semesters < 0 {
		return fmt.Errorf("--semesters must not be negative")
	}

	p := plan.New(nil)
	for _, c := range a.cfg.Constraints() {
		if err := p.AddConstraint(c); err != nil {
			return err
		}
	}
	for i := 1; i <= a.flags.Semesters; i++ {
		if _, err := p.AddSemester(fmt.Sprintf("Semester %d", i)); err != nil {
			return err
		}
	}
	if err := persistence.WriteFile(p, path); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "  created %s with %d semester(s)\n", path, a.flags.Semesters)
	return nil
}
