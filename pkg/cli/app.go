package cli

import (
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/harrisonrobin/cyclecal/pkg/advice"
	"github.com/harrisonrobin/cyclecal/pkg/config"
	"github.com/harrisonrobin/cyclecal/pkg/controller"
	"github.com/harrisonrobin/cyclecal/pkg/phase"
	"github.com/harrisonrobin/cyclecal/pkg/service"
	"github.com/harrisonrobin/cyclecal/pkg/storage"
	"github.com/harrisonrobin/cyclecal/pkg/tasks"
)

// app is the wiring shared by the subcommands.
type app struct {
	cfg        *config.Config
	storage    storage.Storage
	store      *tasks.Store
	classifier phase.Classifier
	service    *service.TaskService
	ctrl       *controller.Controller
}

type appOptions struct {
	noAdvice bool
}

func openApp(opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	policy, err := phase.ParsePolicy(cfg.Cycle.Policy)
	if err != nil {
		return nil, err
	}

	path := cfg.Storage.Path
	if path == "" && cfg.Storage.Backend != storage.BackendMemory {
		if path, err = storage.DefaultPath(cfg.Storage.Backend); err != nil {
			return nil, err
		}
	}
	st, err := storage.Open(cfg.Storage.Backend, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	a := &app{
		cfg:        cfg,
		storage:    st,
		store:      tasks.NewStore(st),
		classifier: phase.Classifier{Policy: policy},
	}

	svcOpts := []service.Option{
		service.WithClassifier(a.classifier),
		service.WithLocale(cfg.Advice.Locale),
		service.WithTimeout(cfg.Advice.Timeout),
	}
	if cfg.Advice.Enabled && !opts.noAdvice {
		client := advice.NewClient(cfg.Advice.URL, &http.Client{Timeout: cfg.Advice.Timeout})
		svcOpts = append(svcOpts, service.WithAdvisor(client))
	}
	a.service = service.New(a.store, svcOpts...)

	a.ctrl, err = controller.New(a.store, a.service, st, a.classifier)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	if c, ok := a.storage.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Printf("Warning: failed to close storage: %v", err)
		}
	}
}
