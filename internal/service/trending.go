package service

import (
	"sort"
	"time"

	"github.com/ancient666-pro/askit-dark-feed/internal/model"
)

// TrendScore is the recency-weighted popularity of a poll: total votes per
// hour since creation, with the first hour counted as a full hour so brand
// new polls are not infinitely hot.
func TrendScore(totalVotes int, createdAt, now time.Time) float64 {
	hours := now.Sub(createdAt).Hours()
	if hours < 1 {
		hours = 1
	}
	return float64(totalVotes) / hours
}

// RankTrending orders polls by trend score descending. Ties break toward the
// newer poll, which also gives zero-vote polls a deterministic recency order.
// The input slice is not modified.
func RankTrending(polls []model.Poll, now time.Time) []model.Poll {
	ranked := make([]model.Poll, len(polls))
	copy(ranked, polls)

	sort.SliceStable(ranked, func(i, j int) bool {
		si := TrendScore(ranked[i].TotalVotes, ranked[i].CreatedAt, now)
		sj := TrendScore(ranked[j].TotalVotes, ranked[j].CreatedAt, now)
		if si != sj {
			return si > sj
		}
		return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
	})
	return ranked
}

// TopTrending is the ranking with a count parameter; every trending read goes
// through this one function.
func TopTrending(polls []model.Poll, n int, now time.Time) []model.Poll {
	ranked := RankTrending(polls, now)
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

// PinnedFirst partitions polls so active pins lead the feed, preserving the
// relative order inside each partition.
func PinnedFirst(polls []model.Poll) []model.Poll {
	out := make([]model.Poll, 0, len(polls))
	for _, p := range polls {
		if p.IsPinned {
			out = append(out, p)
		}
	}
	for _, p := range polls {
		if !p.IsPinned {
			out = append(out, p)
		}
	}
	return out
}
