package model

import "time"

// Poll types. Binary polls are the degenerate two-option case of the same
// option model, not a separate shape.
const (
	PollTypeBinary = "yesNo"
	PollTypeMulti  = "customOptions"
)

// MaxQuestionLen is the longest allowed poll question.
const MaxQuestionLen = 280

// Option count bounds for a poll.
const (
	MinOptions = 2
	MaxOptions = 6
)

// PollOption is a single answer choice with its running vote count.
type PollOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// Poll represents a poll document as stored.
type Poll struct {
	ID           string       `json:"id"`
	Question     string       `json:"question"`
	Type         string       `json:"type"`
	Options      []PollOption `json:"options"`
	TotalVotes   int          `json:"totalVotes"`
	TrendScore   float64      `json:"trendScore"`
	IsPinned     bool         `json:"isPinned"`
	PinExpiresAt *time.Time   `json:"pinExpiresAt,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// CreatePollRequest is the API request body for creating a poll.
type CreatePollRequest struct {
	Question string   `json:"question"`
	Type     string   `json:"type"`
	Options  []string `json:"options"`
}

// VoteRequest is the API request body for casting a vote.
type VoteRequest struct {
	PollID   string `json:"pollId"`
	OptionID string `json:"optionId"`
	DeviceID string `json:"deviceId"`
}

// VoteResponse is the API response after a vote is recorded.
type VoteResponse struct {
	Success bool  `json:"success"`
	Poll    *Poll `json:"poll"`
}

// VotedOptionResponse reports which option a device chose on a poll, if any.
type VotedOptionResponse struct {
	PollID   string `json:"pollId"`
	HasVoted bool   `json:"hasVoted"`
	OptionID string `json:"optionId,omitempty"`
}

// DeviceResponse is the API response when minting a device identifier.
type DeviceResponse struct {
	DeviceID string `json:"deviceId"`
}

// StatsResponse is the API response for aggregate statistics.
type StatsResponse struct {
	TotalPolls      int `json:"totalPolls"`
	TotalVotes      int `json:"totalVotes"`
	ActivePins      int `json:"activePins"`
	CompletedBoosts int `json:"completedBoosts"`
	Votes24h        int `json:"votes24h"`
}
