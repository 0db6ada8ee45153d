// Package chat turns questions into reconciled transcript entries: exactly
// one terminal, citation-annotated answer per question, whether the response
// arrived as a stream of deltas or as a single object.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/mgalkin/filechat/internal/docstore"
	"github.com/mgalkin/filechat/internal/session"
)

// ErrNoActiveIndex means the session has no index selected. Asking is a user
// error at that point, not a transport failure, and no remote call is made.
var ErrNoActiveIndex = errors.New("chat: no index selected")

const noIndexText = "Select or create an index before asking questions."

// Querier is the slice of the gateway the service needs.
type Querier interface {
	Query(ctx context.Context, q docstore.QueryRequest) (*docstore.Response, error)
	StreamQuery(ctx context.Context, q docstore.QueryRequest) (*docstore.Stream, error)
}

// AskOptions carries one question and its delivery preferences.
type AskOptions struct {
	Question   string
	Model      string
	MaxResults int
	Streaming  bool

	// OnDelta receives streamed text fragments in arrival order, for live
	// rendering only. The terminal answer never depends on what it saw.
	OnDelta func(string)
}

// Exchange is the transcript effect of one question. The caller applies it
// atomically: a user turn when Question is set, an assistant turn when
// Answer is set, a LastResponseID update when ResponseID is set. A zero
// Exchange (canceled question) touches nothing.
type Exchange struct {
	Question   string
	Answer     string
	ResponseID string
}

// Service answers questions against a session's active index.
type Service struct {
	store Querier
	log   *zap.Logger
}

// NewService builds the service. A nil logger is replaced with a no-op one.
func NewService(store Querier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log}
}

// Ask runs one question end to end. Streaming delivery and the single-shot
// path produce the same terminal answer. A stream that dies before its
// terminal event is retried once without streaming; a canceled context
// produces no retry and no transcript effect at all.
func (s *Service) Ask(ctx context.Context, sess *session.Session, opts AskOptions) (Exchange, error) {
	if sess == nil || !sess.HasActiveIndex() {
		return Exchange{Answer: noIndexText}, ErrNoActiveIndex
	}

	req := docstore.QueryRequest{
		Model:      opts.Model,
		IndexID:    sess.ActiveIndex.ID,
		Input:      opts.Question,
		MaxResults: opts.MaxResults,
	}

	var resp *docstore.Response
	var err error
	if opts.Streaming {
		resp, err = s.streamOnce(ctx, req, opts.OnDelta)
		if err != nil && ctx.Err() == nil && errors.Is(err, docstore.ErrStreamAborted) {
			s.log.Warn("stream aborted, falling back to single-shot query",
				zap.String("index_id", req.IndexID), zap.Error(err))
			resp, err = s.store.Query(ctx, req)
		}
	} else {
		resp, err = s.store.Query(ctx, req)
	}

	if err != nil {
		if ctx.Err() != nil {
			return Exchange{}, ctx.Err()
		}
		s.log.Warn("question failed", zap.Error(err))
		return Exchange{Question: opts.Question, Answer: FailureText(err)}, err
	}

	answer := Annotate(ExtractText(resp), resp, sess.Registry)
	s.log.Info("question answered",
		zap.String("response_id", resp.ID),
		zap.Int("answer_chars", len(answer)))
	return Exchange{Question: opts.Question, Answer: answer, ResponseID: resp.ID}, nil
}

// streamOnce consumes one streaming query to its end. It returns the
// terminal response from the completed event, or an ErrStreamAborted error
// when the event sequence finishes without one.
func (s *Service) streamOnce(ctx context.Context, req docstore.QueryRequest, onDelta func(string)) (*docstore.Response, error) {
	stream, err := s.store.StreamQuery(ctx, req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	for {
		ev, err := stream.Recv()
		if err == io.EOF {
			return nil, fmt.Errorf("stream ended before the terminal response: %w", docstore.ErrStreamAborted)
		}
		if err != nil {
			return nil, err
		}
		switch ev.Type {
		case docstore.EventOutputTextDelta:
			if onDelta != nil && ev.Delta != "" {
				onDelta(ev.Delta)
			}
		case docstore.EventCompleted:
			if ev.Response == nil {
				return nil, fmt.Errorf("completed event without a response: %w", docstore.ErrStreamAborted)
			}
			return ev.Response, nil
		}
	}
}

// FailureText renders a failed question as an assistant turn, so the
// transcript records what happened and the session stays usable.
func FailureText(err error) string {
	return fmt.Sprintf("The question could not be answered: %v", err)
}
