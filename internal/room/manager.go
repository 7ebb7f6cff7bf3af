package room

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/caprica/fleet-server/internal/ai"
	"github.com/caprica/fleet-server/internal/deck"
	"github.com/caprica/fleet-server/internal/game"
	"github.com/caprica/fleet-server/internal/game/rules"
	"github.com/caprica/fleet-server/internal/storage"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	tracerName   = "github.com/caprica/fleet-server/internal/room"
	computerName = "Computer"
)

var passwordCost = bcrypt.DefaultCost

// Settings bound the work a room does per request.
type Settings struct {
	AIMaxIterations int
	LogWindow       int
}

// Manager owns every room. Each room serializes its own actions; the
// manager lock only guards the room table.
type Manager struct {
	engine   *game.Engine
	settings Settings
	store    storage.Store
	replays  *game.ReplayRecorder
	notifier Notifier
	logger   *zap.Logger
	tracer   trace.Tracer

	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewManager creates a room manager. store, replays and notifier may be nil.
func NewManager(engine *game.Engine, settings Settings, store storage.Store, replays *game.ReplayRecorder, notifier Notifier, logger *zap.Logger) *Manager {
	if settings.AIMaxIterations <= 0 {
		settings.AIMaxIterations = 100
	}
	if settings.LogWindow <= 0 {
		settings.LogWindow = 50
	}
	return &Manager{
		engine:   engine,
		settings: settings,
		store:    store,
		replays:  replays,
		notifier: notifier,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		rooms:    make(map[string]*Room),
	}
}

// SetNotifier replaces the snapshot receiver.
func (m *Manager) SetNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = n
}

func (m *Manager) currentNotifier() Notifier {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notifier
}

// Create opens a room with the creator in seat 0. A room against the
// computer gets its deck built straight away.
func (m *Manager) Create(opts Options) (Info, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = "Player 1"
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	r := &Room{
		ID:         uuid.New().String(),
		name:       name + "'s table",
		aiSeat:     -1,
		seed:       seed,
		status:     StateWaiting,
		createTime: time.Now(),
	}
	r.seats[0] = seat{name: name, occupied: true}

	if opts.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), passwordCost)
		if err != nil {
			return Info{}, fmt.Errorf("failed to hash room password: %w", err)
		}
		r.passwordHash = hash
	}

	if opts.VsAI {
		sub, err := ai.BuildDeck(m.engine.Registry(), rand.New(rand.NewSource(seed)))
		if err != nil {
			return Info{}, fmt.Errorf("failed to build computer deck: %w", err)
		}
		r.aiSeat = 1
		r.seats[1] = seat{name: computerName, occupied: true, ai: true, deck: &sub}
	}

	m.mu.Lock()
	m.rooms[r.ID] = r
	m.mu.Unlock()

	m.logger.Info("room created",
		zap.String("room_id", r.ID),
		zap.String("owner", name),
		zap.Bool("vs_ai", opts.VsAI),
		zap.Bool("password", len(r.passwordHash) > 0),
	)
	return r.info(), nil
}

func (m *Manager) room(id string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, nil
}

// Join seats a second human in seat 1.
func (m *Manager) Join(roomID, name, password string) (int, error) {
	r, err := m.room(roomID)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.passwordHash) > 0 {
		if err := bcrypt.CompareHashAndPassword(r.passwordHash, []byte(password)); err != nil {
			return 0, ErrBadPassword
		}
	}
	if r.seats[1].occupied {
		return 0, ErrSeatTaken
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Player 2"
	}
	r.seats[1] = seat{name: name, occupied: true}

	m.logger.Info("player joined room", zap.String("room_id", r.ID), zap.String("player", name))
	return 1, nil
}

// Get returns a room's public details.
func (m *Manager) Get(roomID string) (Info, error) {
	r, err := m.room(roomID)
	if err != nil {
		return Info{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.info(), nil
}

// List returns every room, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	out := make([]Info, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		out = append(out, r.info())
		r.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreateTime.Before(out[j].CreateTime) })
	return out
}

// Remove drops a room.
func (m *Manager) Remove(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
	m.logger.Info("room removed", zap.String("room_id", roomID))
}

// SubmitDeck validates and stores a seat's deck. The game starts once both
// seats have legal decks. An invalid deck returns the full violation list
// together with ErrInvalidDeck.
func (m *Manager) SubmitDeck(ctx context.Context, roomID string, seatIdx int, sub deck.Submission) (deck.Result, error) {
	r, err := m.room(roomID)
	if err != nil {
		return deck.Result{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.human(seatIdx) {
		return deck.Result{}, ErrNotSeated
	}
	if r.status != StateWaiting {
		return deck.Result{}, ErrAlreadyStarted
	}

	res := deck.Validate(m.engine.Registry(), sub)
	if !res.Valid {
		m.logger.Debug("deck rejected",
			zap.String("room_id", r.ID),
			zap.Int("seat", seatIdx),
			zap.Strings("errors", res.Errors),
		)
		return res, fmt.Errorf("%w: %w", ErrInvalidDeck, res.Err())
	}
	r.seats[seatIdx].deck = &sub

	if r.seats[0].deck != nil && r.seats[1].deck != nil {
		if err := m.start(ctx, r); err != nil {
			r.seats[seatIdx].deck = nil
			return res, err
		}
	}
	return res, nil
}

func (m *Manager) start(ctx context.Context, r *Room) error {
	cfg := game.GameConfig{Seed: r.seed, FirstPlayer: int(uint64(r.seed) % 2)}
	for i, s := range r.seats {
		cfg.Players[i] = game.PlayerSetup{Name: s.name, BaseID: s.deck.BaseID, DeckCardIDs: s.deck.DeckCardIDs}
	}
	s, err := m.engine.CreateGame(cfg)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}

	now := time.Now()
	r.state = s
	r.status = StatePlaying
	r.startTime = &now
	if m.replays != nil {
		m.replays.StartRecording(r.ID, s)
	}
	m.logger.Info("game started",
		zap.String("room_id", r.ID),
		zap.Int64("seed", r.seed),
		zap.Int("first_player", cfg.FirstPlayer),
	)

	m.advance(ctx, r)
	return nil
}

// Submit applies a human action, then lets the computer act until a human
// must move again. Actions for one room never run concurrently.
func (m *Manager) Submit(ctx context.Context, roomID string, seatIdx int, action game.Action) error {
	ctx, span := m.tracer.Start(ctx, "room.Submit", trace.WithAttributes(
		attribute.String("room.id", roomID),
		attribute.Int("room.seat", seatIdx),
		attribute.String("game.action", string(action.Type)),
	))
	defer span.End()

	r, err := m.room(roomID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.human(seatIdx) {
		span.SetStatus(codes.Error, ErrNotSeated.Error())
		return ErrNotSeated
	}
	if r.state == nil {
		span.SetStatus(codes.Error, ErrNotStarted.Error())
		return ErrNotStarted
	}

	next, err := m.engine.ApplyAction(r.state, seatIdx, action)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "action rejected")
		m.logger.Warn("action rejected",
			zap.String("room_id", r.ID),
			zap.Int("seat", seatIdx),
			zap.String("action", string(action.Type)),
			zap.Error(err),
		)
		return err
	}
	m.logger.Debug("action applied",
		zap.String("room_id", r.ID),
		zap.Int("seat", seatIdx),
		zap.String("action", string(action.Type)),
	)
	m.commit(r, seatIdx, action, next)
	m.advance(ctx, r)
	span.SetAttributes(attribute.Int("game.turn", r.state.Turn), attribute.String("game.phase", r.state.Phase.String()))
	return nil
}

// Snapshot returns the current snapshot for a seat, for reconnects.
func (m *Manager) Snapshot(roomID string, seatIdx int) (Snapshot, error) {
	r, err := m.room(roomID)
	if err != nil {
		return Snapshot{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.human(seatIdx) {
		return Snapshot{}, ErrNotSeated
	}
	if r.state == nil {
		return Snapshot{}, ErrNotStarted
	}
	return m.snapshot(r, seatIdx, "")
}

// State returns a copy of the full game state, for persistence and tests.
func (m *Manager) State(roomID string) (*game.GameState, error) {
	r, err := m.room(roomID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return nil, ErrNotStarted
	}
	return r.state.Clone(), nil
}

func (m *Manager) commit(r *Room, seatIdx int, action game.Action, next *game.GameState) {
	if next == r.state {
		return
	}
	r.state = next
	if m.replays != nil {
		m.replays.Record(r.ID, seatIdx, action, next)
	}
}

// advance runs the computer, publishes snapshots and closes a finished game.
func (m *Manager) advance(ctx context.Context, r *Room) {
	warning := ""
	if err := m.runAI(ctx, r); err != nil {
		warning = err.Error()
		if errors.Is(err, ErrAILoopExceeded) {
			m.logger.Warn("computer turn limit reached",
				zap.String("room_id", r.ID),
				zap.Int("limit", m.settings.AIMaxIterations),
			)
		} else {
			m.logger.Error("computer turn failed", zap.String("room_id", r.ID), zap.Error(err))
		}
	}
	m.publish(r, warning)
	if r.state.Phase == rules.PhaseGameOver && r.status != StateFinished {
		m.finish(ctx, r)
	}
}

func (m *Manager) runAI(ctx context.Context, r *Room) error {
	if r.aiSeat < 0 {
		return nil
	}
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.state.Phase == rules.PhaseGameOver {
			return nil
		}
		valid, err := m.engine.ValidActions(r.state, r.aiSeat)
		if err != nil {
			return err
		}
		if len(valid) == 0 {
			return nil
		}
		if i >= m.settings.AIMaxIterations {
			return ErrAILoopExceeded
		}
		action, err := ai.Decide(m.engine, r.state, r.aiSeat, valid)
		if err != nil {
			return err
		}
		next, err := m.engine.ApplyAction(r.state, r.aiSeat, action)
		if err != nil {
			return fmt.Errorf("computer %s: %w", action.Type, err)
		}
		if next == r.state {
			return fmt.Errorf("computer %s had no effect", action.Type)
		}
		m.commit(r, r.aiSeat, action, next)
	}
}

func (m *Manager) snapshot(r *Room, seatIdx int, warning string) (Snapshot, error) {
	view, err := m.engine.PlayerView(r.state, seatIdx)
	if err != nil {
		return Snapshot{}, err
	}
	if n := len(view.Log); n > m.settings.LogWindow {
		view.Log = view.Log[n-m.settings.LogWindow:]
	}
	valid, err := m.engine.ValidActions(r.state, seatIdx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{RoomID: r.ID, Seat: seatIdx, View: view, ValidActions: valid, Warning: warning}, nil
}

func (m *Manager) publish(r *Room, warning string) {
	n := m.currentNotifier()
	if n == nil {
		return
	}
	for i := range r.seats {
		if !r.human(i) {
			continue
		}
		snap, err := m.snapshot(r, i, warning)
		if err != nil {
			m.logger.Error("failed to build snapshot", zap.String("room_id", r.ID), zap.Int("seat", i), zap.Error(err))
			continue
		}
		n.Publish(r.ID, i, snap)
	}
}

func (m *Manager) finish(ctx context.Context, r *Room) {
	now := time.Now()
	r.status = StateFinished
	r.endTime = &now

	winner := storage.NoWinner
	if r.state.Winner != nil {
		winner = *r.state.Winner
	}
	m.logger.Info("game over",
		zap.String("room_id", r.ID),
		zap.Int("winner", winner),
		zap.Int("turns", r.state.Turn),
	)

	if m.replays != nil {
		if _, err := m.replays.Finish(r.ID); err != nil {
			m.logger.Error("failed to save replay", zap.String("room_id", r.ID), zap.Error(err))
		}
	}
	if m.store == nil {
		return
	}

	rec := storage.MatchRecord{
		RoomID:     r.ID,
		Winner:     winner,
		Turns:      r.state.Turn,
		StartedAt:  *r.startTime,
		FinishedAt: now,
	}
	for i, p := range r.state.Players {
		rec.Players[i] = p.Name
		rec.Bases[i] = p.BaseID
		rec.Influence[i] = p.Influence
	}
	if sum, err := game.Checksum(r.state); err == nil {
		rec.Checksum = sum
	}
	if err := m.store.SaveMatch(ctx, rec); err != nil {
		m.logger.Error("failed to save match", zap.String("room_id", r.ID), zap.Error(err))
	}
}
