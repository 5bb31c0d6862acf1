package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/config"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/database"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/logger"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/options"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/services/api"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/session"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/weighment"
)

var errNotSignedIn = errors.New("not signed in, run: k2ctl login --email <email>")

// app is everything one command invocation needs.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	db      *database.DB
	sess    *session.Session
	client  *api.Client
	metrics *api.Metrics
	catalog *options.Catalog
	flow    *weighment.Workflow

	in  io.Reader
	out io.Writer
}

func newApp(cfg *config.Config, in io.Reader, out, errOut io.Writer) (*app, error) {
	log := logger.NewWithWriter(cfg.Env, errOut)

	db, err := database.Open(cfg.DataDir, log)
	if err != nil {
		return nil, err
	}

	sessOpts := []session.Option{session.WithStore(db), session.WithLogger(log)}
	if cfg.SessionKey != "" {
		sealer, err := session.NewSealer(cfg.SessionKey)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("session_key: %w", err)
		}
		sessOpts = append(sessOpts, session.WithSealer(sealer))
	}
	sess := session.New(sessOpts...)
	if err := sess.Hydrate(); err != nil {
		log.Warn("failed to restore session", "err", err)
	}

	metrics := api.NewMetrics()
	client := api.NewClient(cfg.API.BaseURL, sess,
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(log),
		api.WithMetrics(metrics),
	)

	return &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		sess:    sess,
		client:  client,
		metrics: metrics,
		catalog: options.NewCatalog(client, log),
		flow: weighment.NewWorkflow(client,
			weighment.WithJournal(db),
			weighment.WithLogger(log),
			weighment.WithRole(sess.Role),
		),
		in:  in,
		out: out,
	}, nil
}

// close flushes metrics and releases the local store.
func (a *app) close() {
	if a.cfg.MetricsFile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
			a.log.Warn("failed to write metrics", "path", a.cfg.MetricsFile, "err", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("failed to close local store", "err", err)
	}
}

func (a *app) requireSession() error {
	if !a.sess.Authenticated() {
		return errNotSignedIn
	}
	return nil
}

// locate finds an entry by id or entry number, first through the service
// search, then on the most recent page.
func (a *app) locate(ctx context.Context, ref string) (models.Entry, error) {
	for _, q := range []models.EntryQuery{
		{Search: ref, Page: 1, Limit: 100},
		{Page: 1, Limit: 100},
	} {
		a.flow.SetQuery(q)
		if err := a.flow.Refresh(ctx); err != nil {
			return models.Entry{}, err
		}
		for _, e := range a.flow.Entries() {
			if e.ID == ref || strings.EqualFold(e.EntryNumber, ref) {
				return e, nil
			}
		}
	}
	return models.Entry{}, fmt.Errorf("%s: %w", ref, weighment.ErrEntryNotFound)
}

// resolve maps a name or id typed by the operator to an option id.
// Unknown values are passed through for the service to reject.
func resolve(opts []models.Option, raw string) string {
	if id, ok := options.Resolve(opts, raw); ok {
		return id
	}
	return raw
}
