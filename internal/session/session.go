package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/cchalm/smart-coach/internal/ai"
	"github.com/cchalm/smart-coach/internal/registration"
)

// Options holds everything a Session depends on. Store and Gateway are required
type Options struct {
	Store   registration.Store
	Gateway ai.Gateway
	// Credential is the API key for the gateway. Empty means the coach is unavailable for the whole run
	Credential string

	Logger *zap.Logger
	Tracer trace.Tracer
	Now    func() time.Time
	NewID  func() string
}

// Session owns the conversation and the flags that drive which view is shown. All methods are safe for concurrent use
type Session struct {
	store      registration.Store
	gateway    ai.Gateway
	credential string
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
	newID      func() string

	initMu sync.Mutex // Serializes gateway session initialization

	mu                  sync.Mutex
	record              *registration.Record
	credentialAvailable bool
	initFailed          bool
	remote              ai.Session
	awaiting            bool
	lastError           string
	messages            []Message
	generation          int // Incremented on logout so that turns still in flight are discarded
	subscribers         map[int]chan Snapshot
	nextSubscriberID    int
}

// New creates a session. It performs no I/O; call Start to load the stored registration
func New(opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, errors.New("session requires a registration store")
	}
	if opts.Gateway == nil {
		return nil, errors.New("session requires an AI gateway")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	s := &Session{
		store:       opts.Store,
		gateway:     opts.Gateway,
		credential:  strings.TrimSpace(opts.Credential),
		logger:      opts.Logger,
		tracer:      opts.Tracer,
		now:         opts.Now,
		newID:       opts.NewID,
		subscribers: map[int]chan Snapshot{},
	}
	s.credentialAvailable = s.credential != ""
	if !s.credentialAvailable {
		s.lastError = missingCredentialText
	}
	return s, nil
}

// Start loads the stored registration and, if the user is registered and a credential is available, initializes the
// gateway session and greets the user
func (s *Session) Start(ctx context.Context) error {
	record, err := s.store.Load(ctx)
	if err != nil {
		// Treat an unreadable store like an empty one; the user can register again
		s.logger.Warn("failed to load registration", zap.Error(err))
		record = nil
	}

	s.mu.Lock()
	s.record = record
	s.publishLocked()
	s.mu.Unlock()

	if record != nil {
		s.logger.Info("loaded registration", zap.String("first_name", record.FirstName))
	}
	return s.ensureRemote(ctx)
}

// Register validates and persists the user's details. On a *registration.ValidationError nothing changes. When a
// credential is available the gateway session is initialized and, if the conversation is empty, the user is greeted
func (s *Session) Register(ctx context.Context, r registration.Record) (registration.Record, error) {
	saved, err := s.store.Save(ctx, r)
	if err != nil {
		return registration.Record{}, err
	}

	s.mu.Lock()
	s.record = &saved
	if s.credentialAvailable {
		s.lastError = ""
	}
	s.publishLocked()
	s.mu.Unlock()

	s.logger.Info("registered", zap.String("first_name", saved.FirstName))

	if err := s.ensureRemote(ctx); err != nil {
		return saved, err
	}
	return saved, nil
}

// ensureRemote initializes the gateway session if the user is registered, a credential is available, and no session
// exists yet. A failure is recorded as a configuration error and returned
func (s *Session) ensureRemote(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	s.mu.Lock()
	needed := s.record != nil && s.credentialAvailable && s.remote == nil
	generation := s.generation
	s.mu.Unlock()
	if !needed {
		return nil
	}

	remote, err := s.gateway.InitializeSession(ctx, s.credential)

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation || s.record == nil {
		// Logged out while initializing
		return nil
	}
	if err != nil {
		var ie *ai.InitializationError
		if !errors.As(err, &ie) {
			err = &ai.InitializationError{Err: err}
		}
		s.logger.Error("failed to initialize AI session", zap.Error(err))
		s.initFailed = true
		s.credentialAvailable = false
		s.lastError = fmt.Sprintf("failed to start the AI coach service: %s", err.Error())
		s.publishLocked()
		return err
	}

	s.remote = remote
	if len(s.messages) == 0 {
		s.messages = append(s.messages, s.newMessageLocked(ai.Greeting(s.record.FirstName), SenderAI))
	}
	s.publishLocked()
	return nil
}

// Submit sends the user's text to the coach. Blank text, and text submitted while a turn is in flight, are ignored:
// Submit returns a nil Turn and a nil error. Otherwise the user message is appended before Submit returns and the
// returned Turn completes when the coach replies or the gateway fails. A started turn is never canceled, not even by
// ctx
func (s *Session) Submit(ctx context.Context, text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case !s.credentialAvailable:
		return nil, s.rejectLocked(ErrNoCredential)
	case s.record == nil:
		return nil, s.rejectLocked(ErrNotRegistered)
	case s.remote == nil:
		return nil, s.rejectLocked(ErrNotStarted)
	case s.awaiting:
		s.logger.Debug("ignoring submit while a turn is in flight")
		return nil, nil
	}

	userMessage := s.newMessageLocked(text, SenderUser)
	s.messages = append(s.messages, userMessage)
	s.awaiting = true
	s.lastError = ""
	s.publishLocked()

	turn := newTurn(userMessage)
	go s.runTurn(context.WithoutCancel(ctx), s.remote, s.generation, len(s.messages), turn)
	return turn, nil
}

func (s *Session) rejectLocked(err error) error {
	// A missing credential keeps its configuration error text
	if s.credentialAvailable {
		s.lastError = err.Error()
		s.publishLocked()
	}
	return err
}

func (s *Session) runTurn(ctx context.Context, remote ai.Session, generation int, messageCount int, turn *Turn) {
	ctx, span := s.tracer.Start(ctx, "coach.turn", trace.WithAttributes(
		attribute.Int("coach.message_count", messageCount),
		attribute.Int("coach.user_message_length", len(turn.UserMessage.Text)),
	))
	defer span.End()

	start := s.now()
	replyText, err := remote.SendTurn(ctx, turn.UserMessage.Text)
	elapsed := s.now().Sub(start)

	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		s.logger.Debug("discarding reply for a reset conversation")
		span.SetStatus(codes.Error, ErrSessionReset.Error())
		turn.finish(Message{}, ErrSessionReset)
		return
	}

	var reply Message
	if err != nil {
		diagnostic := err.Error()
		reply = s.newMessageLocked(fmt.Sprintf(apologyFormat, diagnostic), SenderAI)
		s.lastError = diagnostic
		span.RecordError(err)
		span.SetStatus(codes.Error, diagnostic)
		s.logger.Warn("turn failed", zap.Error(err), zap.Duration("elapsed", elapsed))
	} else {
		reply = s.newMessageLocked(replyText, SenderAI)
		s.logger.Debug("turn completed", zap.Duration("elapsed", elapsed), zap.Int("reply_length", len(replyText)))
	}
	s.messages = append(s.messages, reply)
	s.awaiting = false
	s.publishLocked()
	s.mu.Unlock()

	turn.finish(reply, err)
}

// DismissError clears the last turn error. A configuration error cannot be dismissed
func (s *Session) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.credentialAvailable || s.lastError == "" {
		return
	}
	s.lastError = ""
	s.publishLocked()
}

// Logout deletes the stored registration and forgets the conversation. A turn in flight completes with
// ErrSessionReset and leaves no trace in the new conversation
func (s *Session) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear registration: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.record = nil
	s.remote = nil
	s.messages = nil
	s.awaiting = false
	if s.credentialAvailable {
		s.lastError = ""
	}
	s.generation++
	s.publishLocked()

	s.logger.Info("logged out")
	return nil
}

// Snapshot returns the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel that receives a snapshot after every state change, and a function that ends the
// subscription and closes the channel. A subscriber that falls behind receives only the most recent snapshot
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubscriberID
	s.nextSubscriberID++
	ch := make(chan Snapshot, 1)
	s.subscribers[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
	return ch, unsubscribe
}

// publishLocked delivers the current snapshot to every subscriber without blocking. Publishing under the lock keeps
// deliveries in transition order
func (s *Session) publishLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Replace the stale snapshot the subscriber has not read yet
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	var record *registration.Record
	if s.record != nil {
		r := *s.record
		record = &r
	}
	messages := make([]Message, len(s.messages))
	copy(messages, s.messages)

	return Snapshot{
		Registration:        record,
		Registered:          s.record != nil,
		CredentialAvailable: s.credentialAvailable,
		AwaitingResponse:    s.awaiting,
		LastError:           s.lastError,
		Messages:            messages,
		Phase:               s.phaseLocked(),
	}
}

func (s *Session) phaseLocked() Phase {
	switch {
	case s.initFailed:
		return PhaseConfigurationError
	case s.record == nil:
		return PhaseUnauthenticated
	case !s.credentialAvailable:
		return PhaseRegisteredNoCredential
	case s.awaiting:
		return PhaseSending
	case s.lastError != "":
		return PhaseReadyWithError
	default:
		return PhaseReady
	}
}

func (s *Session) newMessageLocked(text string, sender Sender) Message {
	return Message{
		ID:        s.newID(),
		Text:      text,
		Sender:    sender,
		Timestamp: s.now(),
	}
}
