package cmd

import (
	"github.com/skillcreator/skillgate/internal/config"
	"github.com/skillcreator/skillgate/internal/gate"
	"github.com/skillcreator/skillgate/internal/logging"
	"github.com/skillcreator/skillgate/internal/process"
	"github.com/skillcreator/skillgate/internal/state"
	"github.com/skillcreator/skillgate/internal/transition"
)

// app holds the components a command needs, built once from configuration.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	steps  *process.Sequence
	store  *state.Store
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	steps, err := cfg.Sequence()
	if err != nil {
		return nil, err
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		// A log directory that cannot be created must not block the workflow.
		if l, err := logging.NewLogger(cfg.LogDir(), logging.ParseLevel(cfg.Logging.Level)); err == nil {
			logger = l
		}
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		steps:  steps,
		store:  state.NewStore(cfg.WorkspaceDir(), cfg.State.File),
	}, nil
}

func (a *app) runner() *gate.ScriptRunner {
	return &gate.ScriptRunner{
		WorkspaceDir: a.cfg.WorkspaceDir(),
		ProcessDir:   a.cfg.ProcessDir(),
		ScriptName:   a.cfg.Validator.Script,
		Shell:        a.cfg.Validator.Shell,
		Timeout:      a.cfg.Validator.Timeout(),
		Logger:       a.logger,
	}
}

func (a *app) engine() *transition.Engine {
	return transition.NewEngine(a.steps, a.store, a.runner(),
		transition.WithLogger(a.logger),
		transition.WithLock(a.cfg.State.Lock),
	)
}

func (a *app) Close() {
	_ = a.logger.Close()
}
