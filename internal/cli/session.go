package cli

import (
	"context"
	"fmt"

	"github.com/limaJavier/studyplan/internal/store"
	"github.com/limaJavier/studyplan/pkg/model"
)

// session is a saved plan replayed through a Decider.
type session struct {
	app     *App
	record  store.PlanRecord
	decider *model.Decider
}

func (app *App) newDecider() *model.Decider {
	options := []model.DeciderOption{model.WithLogger(app.Logger)}
	if app.Metrics != nil {
		options = append(options, model.WithObserver(app.Metrics))
	}
	return model.NewDecider(model.NewPlan(app.Catalog, app.PlanConfig), options...)
}

// openSession loads the plan identified by id (or a unique prefix of it) and
// replays its inputs.
func (app *App) openSession(ctx context.Context, id string) (*session, error) {
	record, err := app.Plans.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	inputs, err := app.Plans.LoadInputs(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	resolved, err := inputs.Resolve(app.Catalog)
	if err != nil {
		return nil, fmt.Errorf("plan %v no longer matches the catalogue: %w", record.Name, err)
	}

	decider := app.newDecider()
	if err := decider.Load(resolved); err != nil {
		return nil, fmt.Errorf("replaying plan %v: %w", record.Name, err)
	}
	return &session{app: app, record: record, decider: decider}, nil
}

func (s *session) plan() *model.Plan { return s.decider.Plan() }

func (s *session) save(ctx context.Context) error {
	return s.app.Plans.SaveInputs(ctx, s.record.ID, store.InputsOf(s.plan()))
}

// mutate applies change to the plan identified by id and saves the result
// when it succeeds.
func (app *App) mutate(ctx context.Context, id string, change func(*session) error) (*session, error) {
	s, err := app.openSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := change(s); err != nil {
		return nil, err
	}
	if err := s.save(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *session) lookup(code string) (model.Content, error) {
	content, ok := s.app.Catalog.Lookup(code)
	if !ok {
		return nil, fmt.Errorf("%v: %w", code, model.ErrUnknownContent)
	}
	return content, nil
}

func (s *session) lookupSubject(code string) (*model.Subject, error) {
	content, err := s.lookup(code)
	if err != nil {
		return nil, err
	}
	subject, ok := content.(*model.Subject)
	if !ok {
		return nil, fmt.Errorf("%v: %w", code, model.ErrNotSubject)
	}
	return subject, nil
}
