package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ancient666-pro/askit-dark-feed/internal/ledger"
	"github.com/ancient666-pro/askit-dark-feed/internal/model"
)

// PollStore is the poll side of the document store boundary.
type PollStore interface {
	List(ctx context.Context) ([]model.Poll, error)
	FindByID(ctx context.Context, pollID string) (*model.Poll, error)
	Create(ctx context.Context, question, pollType string, options []model.PollOption) (*model.Poll, error)
	CastVote(ctx context.Context, pollID, optionID, deviceID string) (*model.Poll, error)
	ClearExpiredPins(ctx context.Context) (int64, error)
	SeedSamples(ctx context.Context, samples []model.Poll) error
}

// storeQueryTimeout bounds list/fetch waits so a stalled store surfaces a
// retryable error instead of hanging the request.
const storeQueryTimeout = 5 * time.Second

type PollService struct {
	store        PollStore
	ledger       *ledger.Ledger
	cache        *CacheService
	queryTimeout time.Duration
}

func NewPollService(store PollStore, l *ledger.Ledger, cache *CacheService) *PollService {
	return &PollService{store: store, ledger: l, cache: cache, queryTimeout: storeQueryTimeout}
}

// ListFeed returns the display feed: expired pins cleared first (lazy expiry,
// pin visibility only matters at read time), active pins leading, then
// newest-first. Seeds the sample polls once when the store is empty.
func (s *PollService) ListFeed(ctx context.Context) ([]model.Poll, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if _, err := s.store.ClearExpiredPins(ctx); err != nil {
		return nil, err
	}

	polls, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	if len(polls) == 0 {
		if err := s.store.SeedSamples(ctx, SamplePolls(time.Now())); err != nil {
			return nil, err
		}
		polls, err = s.store.List(ctx)
		if err != nil {
			return nil, err
		}
	}

	return PinnedFirst(polls), nil
}

// Trending returns the top n polls by votes per hour, pinned polls leading.
func (s *PollService) Trending(ctx context.Context, n int) ([]model.Poll, error) {
	polls, err := s.ListFeed(ctx)
	if err != nil {
		return nil, err
	}
	return PinnedFirst(TopTrending(polls, n, time.Now())), nil
}

// Get returns a single poll.
func (s *PollService) Get(ctx context.Context, pollID string) (*model.Poll, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	poll, err := s.store.FindByID(ctx, pollID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return poll, nil
}

// Create validates and stores a new poll with zero-vote options.
func (s *PollService) Create(ctx context.Context, req model.CreatePollRequest) (*model.Poll, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, validationErr("question is required")
	}
	if len(question) > model.MaxQuestionLen {
		return nil, validationErr("question must be at most 280 characters")
	}

	pollType := req.Type
	if pollType == "" {
		pollType = model.PollTypeMulti
	}
	if pollType != model.PollTypeBinary && pollType != model.PollTypeMulti {
		return nil, validationErr("type must be yesNo or customOptions")
	}

	options, err := buildOptions(pollType, req.Options)
	if err != nil {
		return nil, err
	}

	poll, err := s.store.Create(ctx, question, pollType, options)
	if err != nil {
		return nil, storeWriteErr(err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateFeed(ctx); err != nil {
			log.Printf("cache: invalidate feed error: %v", err)
		}
	}
	return poll, nil
}

// buildOptions normalizes the option texts into zero-vote options. A binary
// poll with no explicit options gets the fixed Yes/No pair.
func buildOptions(pollType string, texts []string) ([]model.PollOption, error) {
	if pollType == model.PollTypeBinary && len(texts) == 0 {
		return []model.PollOption{
			{ID: "yes", Text: "Yes"},
			{ID: "no", Text: "No"},
		}, nil
	}

	if len(texts) < model.MinOptions || len(texts) > model.MaxOptions {
		return nil, validationErr("a poll needs between 2 and 6 options")
	}

	options := make([]model.PollOption, 0, len(texts))
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, validationErr("option text cannot be empty")
		}
		options = append(options, model.PollOption{ID: uuid.NewString(), Text: text})
	}
	return options, nil
}

// Vote applies the device's vote: ledger guard, atomic store increment, then
// ledger record. The ledger write happens only after the store commit, and a
// failure there is logged rather than failing an already-counted vote.
func (s *PollService) Vote(ctx context.Context, req model.VoteRequest) (*model.Poll, error) {
	if s.ledger.HasVoted(ctx, req.DeviceID, req.PollID) {
		return nil, ErrAlreadyVoted
	}

	poll, err := s.store.CastVote(ctx, req.PollID, req.OptionID, req.DeviceID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeWriteErr(err)
	}

	if err := s.ledger.RecordVote(ctx, req.DeviceID, req.PollID, req.OptionID); err != nil {
		log.Printf("ledger: record vote error for poll %s: %v", req.PollID, err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidatePoll(ctx, req.PollID); err != nil {
			log.Printf("cache: invalidate poll error: %v", err)
		}
		if err := s.cache.InvalidateFeed(ctx); err != nil {
			log.Printf("cache: invalidate feed error: %v", err)
		}
	}
	return poll, nil
}

// VotedOption reports the option a device chose on a poll, if any.
func (s *PollService) VotedOption(ctx context.Context, deviceID, pollID string) model.VotedOptionResponse {
	optionID, ok := s.ledger.VotedOption(ctx, deviceID, pollID)
	return model.VotedOptionResponse{
		PollID:   pollID,
		HasVoted: ok,
		OptionID: optionID,
	}
}

// SamplePolls is the fixed seed set for empty deployments.
func SamplePolls(now time.Time) []model.Poll {
	return []model.Poll{
		{
			ID:       uuid.NewString(),
			Question: "Should remote work be the new normal?",
			Type:     model.PollTypeBinary,
			Options: []model.PollOption{
				{ID: "yes", Text: "Yes", Votes: 42},
				{ID: "no", Text: "No", Votes: 18},
			},
			TotalVotes: 60,
			CreatedAt:  now.Add(-1 * time.Hour),
		},
		{
			ID:       uuid.NewString(),
			Question: "Which is better for productivity?",
			Type:     model.PollTypeMulti,
			Options: []model.PollOption{
				{ID: uuid.NewString(), Text: "Working from home", Votes: 24},
				{ID: uuid.NewString(), Text: "Working from office", Votes: 31},
				{ID: uuid.NewString(), Text: "Hybrid model", Votes: 45},
			},
			TotalVotes: 100,
			CreatedAt:  now.Add(-2 * time.Hour),
		},
		{
			ID:       uuid.NewString(),
			Question: "Do you prefer dark mode over light mode?",
			Type:     model.PollTypeBinary,
			Options: []model.PollOption{
				{ID: "yes", Text: "Yes", Votes: 76},
				{ID: "no", Text: "No", Votes: 12},
			},
			TotalVotes: 88,
			CreatedAt:  now.Add(-3 * time.Hour),
		},
	}
}
