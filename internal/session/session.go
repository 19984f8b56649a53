// Package session wires the cache, state, REST client, syncer, actions,
// change feed and backups for one signed-in device.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	gosync "sync"

	"github.com/dukerupert/nestmate/internal/action"
	"github.com/dukerupert/nestmate/internal/api"
	"github.com/dukerupert/nestmate/internal/backup"
	"github.com/dukerupert/nestmate/internal/config"
	"github.com/dukerupert/nestmate/internal/database"
	"github.com/dukerupert/nestmate/internal/feed"
	"github.com/dukerupert/nestmate/internal/model"
	"github.com/dukerupert/nestmate/internal/state"
	"github.com/dukerupert/nestmate/internal/store"
	"github.com/dukerupert/nestmate/internal/sync"
)

var ErrNestChoice = errors.New("choose exactly one of creating a nest or an invite code")

type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithVersion sets the version reported in the User-Agent.
func WithVersion(v string) Option {
	return func(s *Session) { s.version = v }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Session) { s.httpClient = hc }
}

// UserAgent is sent on every request and the feed handshake.
func UserAgent(variant, version string) string {
	return fmt.Sprintf("nestmate-%s/%s", variant, version)
}

type Session struct {
	State   *state.Container
	Client  *api.Client
	Syncer  *sync.Syncer
	Actions *action.Actions

	cfg        *config.Config
	logger     *slog.Logger
	version    string
	httpClient *http.Client

	cacheMu gosync.RWMutex
	cache   *store.Cache
	backups *backup.Manager

	loopMu gosync.Mutex
	feed   *feed.Subscriber
}

// Open opens the local cache, hydrates state from it and builds every
// component. No network traffic happens until Start or an action runs.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Session, error) {
	s := &Session{
		cfg:     cfg,
		logger:  slog.Default(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "session")

	if err := s.openCache(); err != nil {
		return nil, err
	}
	snap, err := s.cache.Load()
	if err != nil {
		s.cache.DB().Close()
		return nil, err
	}

	s.State = state.New(state.WithPersister(s), state.WithLogger(s.logger))
	s.State.Hydrate(snap)

	ua := UserAgent(cfg.Variant, s.version)
	clientOpts := []api.Option{api.WithUserAgent(ua)}
	if s.httpClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(s.httpClient))
	}
	clientOpts = append(clientOpts, api.WithTimeout(cfg.API.Timeout))
	s.Client = api.NewClient(cfg.API.URL, clientOpts...)

	s.Syncer = sync.New(s.Client, s.State,
		sync.WithInterval(cfg.Sync.Interval),
		sync.WithLogger(s.logger))
	s.Actions = action.New(s.Client, s.State, action.WithLogger(s.logger))

	if u := snap.User; u != nil {
		s.logger.Info("session restored", "user_id", u.ID, "has_nest", snap.Nest != nil)
	}
	return s, nil
}

func (s *Session) openCache() error {
	path := s.cfg.Data.Path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := database.Open(path)
	if err != nil {
		return err
	}
	s.attach(db)
	return nil
}

func (s *Session) attach(db *sql.DB) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache = store.NewCache(db)
	s.backups = backup.NewManager(s.cfg.Backup.S3, db, s.cfg.Data.Path, s.cache.Backups,
		backup.WithLogger(s.logger))
}

// Persist forwards state changes to the current cache. It lets the cache be
// swapped during a restore without rebuilding state.
func (s *Session) Persist(snap state.Snapshot, r state.Resource) error {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Persist(snap, r)
}

func (s *Session) Backups() *backup.Manager {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.backups
}

// NestChoice selects how onboarding attaches the user to a nest.
type NestChoice struct {
	Create     *action.NestInput
	InviteCode string
}

// Onboard creates the profile unless one exists, then creates or joins a
// nest. Joining returns the pending request; the nest is set once a master
// approves it.
func (s *Session) Onboard(ctx context.Context, profile action.ProfileInput, choice NestChoice) (*model.JoinRequest, error) {
	if (choice.Create == nil) == (choice.InviteCode == "") {
		return nil, ErrNestChoice
	}
	if s.State.User() == nil {
		if _, err := s.Actions.CreateProfile(ctx, profile); err != nil {
			return nil, err
		}
	}
	if choice.Create != nil {
		_, err := s.Actions.CreateNest(ctx, *choice.Create)
		return nil, err
	}
	return s.Actions.JoinNest(ctx, choice.InviteCode)
}

// Start runs one full sync and then the periodic syncer and change feed.
// Without a nest it does nothing.
func (s *Session) Start(ctx context.Context) []sync.Result {
	nest := s.State.Nest()
	if nest == nil {
		return nil
	}
	results := s.Syncer.SyncAll(ctx)

	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	s.Syncer.Start(ctx)
	if s.cfg.Feed.Enabled && s.feed == nil {
		s.feed = feed.New(s.Client.FeedURL(nest.ID), s.Syncer,
			feed.WithReconnectDelay(s.cfg.Feed.ReconnectDelay),
			feed.WithUserAgent(UserAgent(s.cfg.Variant, s.version)),
			feed.WithLogger(s.logger))
		s.feed.Start(ctx)
	}
	return results
}

// Stop halts the background loops.
func (s *Session) Stop() {
	s.loopMu.Lock()
	f := s.feed
	s.feed = nil
	s.loopMu.Unlock()

	if f != nil {
		f.Stop()
	}
	s.Syncer.Stop()
}

// Backup uploads an encrypted copy of the cache for the current nest.
func (s *Session) Backup(ctx context.Context, passphrase string) (*model.Backup, error) {
	nest := s.State.Nest()
	if nest == nil {
		return nil, state.ErrNoNest
	}
	return s.Backups().RunNow(ctx, nest.ID, passphrase)
}

// Restore replaces the cache with backup key and reloads state from it.
func (s *Session) Restore(ctx context.Context, key, passphrase string) error {
	s.Stop()

	s.cacheMu.Lock()
	m := s.backups
	if err := s.cache.DB().Close(); err != nil {
		s.cacheMu.Unlock()
		return fmt.Errorf("close cache: %w", err)
	}
	s.cacheMu.Unlock()

	restoreErr := m.Restore(ctx, key, passphrase)
	// Reopen whether or not the restore succeeded; a failed restore leaves
	// the old file in place.
	if err := s.openCache(); err != nil {
		return errors.Join(restoreErr, err)
	}
	if restoreErr != nil {
		return restoreErr
	}

	snap, err := s.cache.Load()
	if err != nil {
		return err
	}
	s.State.Hydrate(snap)
	s.logger.Info("cache restored", "key", key)
	return nil
}

// Logout stops the loops, clears state and wipes the cache.
func (s *Session) Logout(ctx context.Context) error {
	s.Stop()
	s.State.Reset()

	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	if err := s.cache.Wipe(); err != nil {
		return err
	}
	s.logger.Info("logged out")
	return nil
}

// Close stops the loops and closes the cache without wiping it.
func (s *Session) Close() error {
	s.Stop()
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.cache.DB().Close()
}
