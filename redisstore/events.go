package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mfackner/authsync"
)

// wireEvent is the pub/sub payload. The session travels inline so a Store in
// another process can adopt it without a Redis round trip.
type wireEvent struct {
	Kind    authsync.EventKind `json:"kind"`
	Session *wireSession       `json:"session,omitempty"`
}

type wireSession struct {
	ID          string    `json:"id"`
	SubjectID   string    `json:"subject_id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`

	UserID  string `json:"user_id,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Company string `json:"company,omitempty"`
}

func toWire(session *authsync.Session) *wireSession {
	if session == nil {
		return nil
	}
	out := &wireSession{
		ID:          session.ID,
		SubjectID:   session.SubjectID,
		AccessToken: session.AccessToken,
		ExpiresAt:   session.ExpiresAt,
	}
	if session.User != nil {
		out.UserID = session.User.ID
		out.Email = session.User.Email
		out.Name = session.User.Name
		out.Company = session.User.Company
	}
	return out
}

func fromWire(ws *wireSession) *authsync.Session {
	if ws == nil {
		return nil
	}
	session := &authsync.Session{
		ID:          ws.ID,
		SubjectID:   ws.SubjectID,
		AccessToken: ws.AccessToken,
		ExpiresAt:   ws.ExpiresAt,
	}
	if ws.UserID != "" || ws.Email != "" {
		session.User = &authsync.UserIdentity{
			ID:      ws.UserID,
			Email:   ws.Email,
			Name:    ws.Name,
			Company: ws.Company,
		}
	}
	return session
}

func (s *Store) eventChannel() string {
	return s.cfg.KeyPrefix + ":events:" + s.cfg.ClientID
}

// Subscribe registers fn for session-change events and starts the pub/sub
// listener on first use. fn runs on the listener goroutine; it must not block.
func (s *Store) Subscribe(fn func(kind authsync.EventKind, session *authsync.Session)) (func(), error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, authsync.ErrClosed
	}
	needListener := s.pubsub == nil
	var pubsub *redis.PubSub
	if needListener {
		pubsub = s.rdb.Subscribe(context.Background(), s.eventChannel())
		s.pubsub = pubsub
	}
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	if needListener {
		// Wait for the subscription confirmation so no event published after
		// Subscribe returns can be missed.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		confirmErr := func() error {
			defer cancel()
			_, err := pubsub.Receive(ctx)
			return err
		}()
		if confirmErr != nil {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.pubsub = nil
			s.mu.Unlock()
			_ = pubsub.Close()
			return nil, providerErr(confirmErr)
		}

		s.listenerWG.Add(1)
		go s.listen(pubsub)
	}

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}, nil
}

func (s *Store) listen(pubsub *redis.PubSub) {
	defer s.listenerWG.Done()

	for msg := range pubsub.Channel() {
		var ev wireEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			s.logger.Warn("dropping malformed session event", zap.Error(err))
			continue
		}
		session := fromWire(ev.Session)

		// Adopt the remote state so CurrentSession agrees with the stream,
		// the way a second tab adopts a sign-in from the first.
		s.mu.Lock()
		s.current = session
		fns := make([]func(authsync.EventKind, *authsync.Session), 0, len(s.subscribers))
		for _, fn := range s.subscribers {
			fns = append(fns, fn)
		}
		s.mu.Unlock()

		for _, fn := range fns {
			fn(ev.Kind, cloneSession(session))
		}
	}
}

func (s *Store) publish(ctx context.Context, kind authsync.EventKind, session *authsync.Session) {
	payload, err := json.Marshal(wireEvent{Kind: kind, Session: toWire(session)})
	if err != nil {
		s.logger.Warn("encode session event", zap.Error(err))
		return
	}
	if err := s.rdb.Publish(ctx, s.eventChannel(), payload).Err(); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("publish session event", zap.String("kind", string(kind)), zap.Error(err))
	}
}
