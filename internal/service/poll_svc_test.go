package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ancient666-pro/askit-dark-feed/internal/ledger"
	"github.com/ancient666-pro/askit-dark-feed/internal/model"
)

// fakePollStore mirrors the store contract in memory: atomic increments under
// a mutex, newest-first listing, idempotent seeding.
type fakePollStore struct {
	mu        sync.Mutex
	polls     []*model.Poll
	seedCalls int
	nextID    int
}

func newFakePollStore() *fakePollStore {
	return &fakePollStore{}
}

func (f *fakePollStore) List(ctx context.Context) ([]model.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Poll, 0, len(f.polls))
	for _, p := range f.polls {
		out = append(out, clonePoll(p))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakePollStore) FindByID(ctx context.Context, pollID string) (*model.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.polls {
		if p.ID == pollID {
			c := clonePoll(p)
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakePollStore) Create(ctx context.Context, question, pollType string, options []model.PollOption) (*model.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p := &model.Poll{
		ID:        fmt.Sprintf("poll-%d", f.nextID),
		Question:  question,
		Type:      pollType,
		Options:   append([]model.PollOption(nil), options...),
		CreatedAt: time.Now(),
	}
	f.polls = append(f.polls, p)
	c := clonePoll(p)
	return &c, nil
}

func (f *fakePollStore) CastVote(ctx context.Context, pollID, optionID, deviceID string) (*model.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.polls {
		if p.ID != pollID {
			continue
		}
		for i := range p.Options {
			if p.Options[i].ID == optionID {
				p.Options[i].Votes++
				p.TotalVotes++
				c := clonePoll(p)
				return &c, nil
			}
		}
		return nil, pgx.ErrNoRows
	}
	return nil, pgx.ErrNoRows
}

func (f *fakePollStore) SetPinned(ctx context.Context, pollID string) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.polls {
		if p.ID == pollID {
			exp := time.Now().Add(time.Hour)
			p.IsPinned = true
			p.PinExpiresAt = &exp
			return &exp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakePollStore) ClearExpiredPins(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var cleared int64
	now := time.Now()
	for _, p := range f.polls {
		if p.IsPinned && p.PinExpiresAt != nil && !p.PinExpiresAt.After(now) {
			p.IsPinned = false
			p.PinExpiresAt = nil
			cleared++
		}
	}
	return cleared, nil
}

func (f *fakePollStore) SeedSamples(ctx context.Context, samples []model.Poll) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.polls) > 0 {
		return nil
	}
	f.seedCalls++
	for i := range samples {
		p := samples[i]
		f.polls = append(f.polls, &p)
	}
	return nil
}

func clonePoll(p *model.Poll) model.Poll {
	c := *p
	c.Options = append([]model.PollOption(nil), p.Options...)
	if p.PinExpiresAt != nil {
		exp := *p.PinExpiresAt
		c.PinExpiresAt = &exp
	}
	return c
}

func newPollService(store *fakePollStore) *PollService {
	return NewPollService(store, ledger.New(ledger.NewMemoryKV()), nil)
}

func TestListFeed_SeedsOnceWhenEmpty(t *testing.T) {
	store := newFakePollStore()
	svc := newPollService(store)
	ctx := context.Background()

	polls, err := svc.ListFeed(ctx)
	if err != nil {
		t.Fatalf("ListFeed: %v", err)
	}
	if len(polls) != 3 {
		t.Fatalf("seeded feed has %d polls, want 3", len(polls))
	}

	again, err := svc.ListFeed(ctx)
	if err != nil {
		t.Fatalf("second ListFeed: %v", err)
	}
	if len(again) != 3 {
		t.Errorf("second feed has %d polls, want 3", len(again))
	}
	if store.seedCalls != 1 {
		t.Errorf("seedCalls = %d, want 1", store.seedCalls)
	}
}

func TestListFeed_NewestFirst(t *testing.T) {
	store := newFakePollStore()
	svc := newPollService(store)
	ctx := context.Background()

	polls, err := svc.ListFeed(ctx)
	if err != nil {
		t.Fatalf("ListFeed: %v", err)
	}
	for i := 1; i < len(polls); i++ {
		if polls[i].CreatedAt.After(polls[i-1].CreatedAt) {
			t.Errorf("feed not newest-first at index %d", i)
		}
	}
}

func TestListFeed_PinnedLeads(t *testing.T) {
	store := newFakePollStore()
	svc := newPollService(store)
	ctx := context.Background()

	polls, _ := svc.ListFeed(ctx)
	oldest := polls[len(polls)-1].ID
	if _, err := store.SetPinned(ctx, oldest); err != nil {
		t.Fatalf("SetPinned: %v", err)
	}

	polls, err := svc.ListFeed(ctx)
	if err != nil {
		t.Fatalf("ListFeed: %v", err)
	}
	if polls[0].ID != oldest || !polls[0].IsPinned {
		t.Errorf("feed head = %s (pinned=%v), want the pinned poll first", polls[0].ID, polls[0].IsPinned)
	}
}

func TestListFeed_ClearsExpiredPins(t *testing.T) {
	store := newFakePollStore()
	svc := newPollService(store)
	ctx := context.Background()

	polls, _ := svc.ListFeed(ctx)
	target := polls[0].ID

	store.mu.Lock()
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(30 * time.Minute)
	store.polls[0].IsPinned = true
	store.polls[0].PinExpiresAt = &past
	store.polls[1].IsPinned = true
	store.polls[1].PinExpiresAt = &future
	stillPinned := store.polls[1].ID
	store.mu.Unlock()

	feed, err := svc.ListFeed(ctx)
	if err != nil {
		t.Fatalf("ListFeed: %v", err)
	}
	for _, p := range feed {
		if p.ID == target && p.IsPinned {
			t.Error("lapsed pin survived the feed read")
		}
		if p.ID == stillPinned && !p.IsPinned {
			t.Error("future pin was cleared")
		}
	}

	// Idempotent: a second pass changes nothing further.
	cleared, err := store.ClearExpiredPins(ctx)
	if err != nil {
		t.Fatalf("ClearExpiredPins: %v", err)
	}
	if cleared != 0 {
		t.Errorf("second ClearExpiredPins cleared %d polls, want 0", cleared)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := newPollService(newFakePollStore())
	ctx := context.Background()

	long := make([]byte, model.MaxQuestionLen+1)
	for i := range long {
		long[i] = 'q'
	}

	cases := []struct {
		name string
		req  model.CreatePollRequest
	}{
		{"empty question", model.CreatePollRequest{Question: "  ", Type: model.PollTypeMulti, Options: []string{"a", "b"}}},
		{"question too long", model.CreatePollRequest{Question: string(long), Type: model.PollTypeMulti, Options: []string{"a", "b"}}},
		{"one option", model.CreatePollRequest{Question: "Q", Type: model.PollTypeMulti, Options: []string{"a"}}},
		{"seven options", model.CreatePollRequest{Question: "Q", Type: model.PollTypeMulti, Options: []string{"a", "b", "c", "d", "e", "f", "g"}}},
		{"blank option", model.CreatePollRequest{Question: "Q", Type: model.PollTypeMulti, Options: []string{"a", "  "}}},
		{"bad type", model.CreatePollRequest{Question: "Q", Type: "ranked", Options: []string{"a", "b"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("error = %v, want *ValidationError", err)
			}
		})
	}
}

func TestCreate_BinaryDefaultsToYesNo(t *testing.T) {
	svc := newPollService(newFakePollStore())

	poll, err := svc.Create(context.Background(), model.CreatePollRequest{
		Question: "Ship on Friday?",
		Type:     model.PollTypeBinary,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(poll.Options) != 2 || poll.Options[0].ID != "yes" || poll.Options[1].ID != "no" {
		t.Errorf("options = %+v, want the fixed yes/no pair", poll.Options)
	}
	for _, o := range poll.Options {
		if o.Votes != 0 {
			t.Errorf("option %s starts with %d votes, want 0", o.ID, o.Votes)
		}
	}
}

func TestVote_DarkModeScenario(t *testing.T) {
	svc := newPollService(newFakePollStore())
	ctx := context.Background()

	poll, err := svc.Create(ctx, model.CreatePollRequest{
		Question: "Dark mode?",
		Type:     model.PollTypeMulti,
		Options:  []string{"Yes", "No"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if poll.Options[0].Votes != 0 || poll.Options[1].Votes != 0 {
		t.Fatalf("new poll has votes %d/%d, want 0/0", poll.Options[0].Votes, poll.Options[1].Votes)
	}

	yesID := poll.Options[0].ID
	updated, err := svc.Vote(ctx, model.VoteRequest{PollID: poll.ID, OptionID: yesID, DeviceID: "dev1"})
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if updated.Options[0].Votes != 1 || updated.Options[1].Votes != 0 {
		t.Errorf("after vote: %d/%d, want 1/0", updated.Options[0].Votes, updated.Options[1].Votes)
	}

	// Same device again: rejected, counts unchanged.
	_, err = svc.Vote(ctx, model.VoteRequest{PollID: poll.ID, OptionID: poll.Options[1].ID, DeviceID: "dev1"})
	if !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("second vote error = %v, want ErrAlreadyVoted", err)
	}
	after, err := svc.Get(ctx, poll.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if after.Options[0].Votes != 1 || after.Options[1].Votes != 0 {
		t.Errorf("after rejected vote: %d/%d, want 1/0", after.Options[0].Votes, after.Options[1].Votes)
	}

	voted := svc.VotedOption(ctx, "dev1", poll.ID)
	if !voted.HasVoted || voted.OptionID != yesID {
		t.Errorf("VotedOption = %+v, want hasVoted with option %s", voted, yesID)
	}
}

func TestVote_UnknownPollOrOption(t *testing.T) {
	svc := newPollService(newFakePollStore())
	ctx := context.Background()

	poll, err := svc.Create(ctx, model.CreatePollRequest{
		Question: "Q", Type: model.PollTypeMulti, Options: []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Vote(ctx, model.VoteRequest{PollID: "missing", OptionID: "x", DeviceID: "dev1"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown poll error = %v, want ErrNotFound", err)
	}
	_, err = svc.Vote(ctx, model.VoteRequest{PollID: poll.ID, OptionID: "missing", DeviceID: "dev1"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown option error = %v, want ErrNotFound", err)
	}
}

func TestVote_ConcurrentDevicesAllCounted(t *testing.T) {
	store := newFakePollStore()
	svc := newPollService(store)
	ctx := context.Background()

	poll, err := svc.Create(ctx, model.CreatePollRequest{
		Question: "Q", Type: model.PollTypeMulti, Options: []string{"a", "b", "c"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	const voters = 30
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			req := model.VoteRequest{
				PollID:   poll.ID,
				OptionID: poll.Options[n%len(poll.Options)].ID,
				DeviceID: fmt.Sprintf("device-%d", n),
			}
			if _, err := svc.Vote(ctx, req); err != nil {
				t.Errorf("vote %d: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	after, err := svc.Get(ctx, poll.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	sum := 0
	for _, o := range after.Options {
		sum += o.Votes
	}
	if sum != voters || after.TotalVotes != voters {
		t.Errorf("sum(votes) = %d, totalVotes = %d, want %d (no lost updates)", sum, after.TotalVotes, voters)
	}
}

func TestListFeed_ConcurrentFirstReadsSeedOnce(t *testing.T) {
	store := newFakePollStore()
	svc := newPollService(store)
	ctx := context.Background()

	const readers = 20
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			polls, err := svc.ListFeed(ctx)
			if err != nil {
				t.Errorf("ListFeed: %v", err)
				return
			}
			if len(polls) != 3 {
				t.Errorf("feed has %d polls, want 3", len(polls))
			}
		}()
	}
	wg.Wait()

	if store.seedCalls != 1 {
		t.Errorf("seedCalls = %d, want 1 (racing empty-store readers must not double-seed)", store.seedCalls)
	}
}

// stalledStore never answers a List call until the context gives up.
type stalledStore struct {
	*fakePollStore
}

func (s *stalledStore) List(ctx context.Context) ([]model.Poll, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *stalledStore) FindByID(ctx context.Context, pollID string) (*model.Poll, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestListFeed_BoundedWait(t *testing.T) {
	svc := newPollService(newFakePollStore())
	svc.store = &stalledStore{fakePollStore: newFakePollStore()}
	svc.queryTimeout = 30 * time.Millisecond

	start := time.Now()
	_, err := svc.ListFeed(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("ListFeed took %s, want a bounded wait", elapsed)
	}
}

func TestGet_BoundedWait(t *testing.T) {
	svc := newPollService(newFakePollStore())
	svc.store = &stalledStore{fakePollStore: newFakePollStore()}
	svc.queryTimeout = 30 * time.Millisecond

	_, err := svc.Get(context.Background(), "poll-1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}

// deniedStore rejects every write the way a locked-down database would.
type deniedStore struct {
	*fakePollStore
}

func (s *deniedStore) Create(ctx context.Context, question, pollType string, options []model.PollOption) (*model.Poll, error) {
	return nil, &pgconn.PgError{Code: "42501", Message: "permission denied for table polls"}
}

func (s *deniedStore) CastVote(ctx context.Context, pollID, optionID, deviceID string) (*model.Poll, error) {
	return nil, &pgconn.PgError{Code: "42501", Message: "permission denied for table polls"}
}

func TestCreate_StoreWriteRejection(t *testing.T) {
	svc := newPollService(newFakePollStore())
	svc.store = &deniedStore{fakePollStore: newFakePollStore()}
	ctx := context.Background()

	_, err := svc.Create(ctx, model.CreatePollRequest{Question: "Q?", Type: model.PollTypeBinary})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestVote_StoreWriteRejection(t *testing.T) {
	svc := newPollService(newFakePollStore())
	svc.store = &deniedStore{fakePollStore: newFakePollStore()}
	ctx := context.Background()

	_, err := svc.Vote(ctx, model.VoteRequest{PollID: "p", OptionID: "yes", DeviceID: "dev1"})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("err = %v, want ErrPermissionDenied", err)
	}
}
