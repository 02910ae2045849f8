package app

import (
	"context"
	"fmt"

	"quiz-portal/internal/domain"
	"quiz-portal/internal/events"
	"quiz-portal/internal/session"

	"github.com/sirupsen/logrus"
)

// LeaderboardSize is how many rows the rankings page shows.
const LeaderboardSize = 100

// Rankings maintains the user_points leaderboard.
type Rankings struct {
	store PointsStore
	hub   *events.Hub
	log   *logrus.Entry
}

func NewRankings(store PointsStore, hub *events.Hub, log *logrus.Entry) *Rankings {
	return &Rankings{store: store, hub: hub, log: log.WithField("component", "rankings")}
}

// Leaderboard returns up to limit rows ordered by total points.
func (r *Rankings) Leaderboard(ctx context.Context, limit int) ([]domain.UserPoints, error) {
	if limit <= 0 || limit > LeaderboardSize {
		limit = LeaderboardSize
	}
	rows, err := r.store.ListUserPoints(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list user points: %w", err)
	}
	return rows, nil
}

// Record adds a finished quiz to the signed-in user's totals and pushes the
// refreshed leaderboard to subscribers.
func (r *Rankings) Record(ctx context.Context, sess session.Reader, points int, accuracy float64) (domain.UserPoints, error) {
	user := sess.User()
	if user == nil {
		return domain.UserPoints{}, domain.ErrNotAuthenticated
	}

	row, err := r.store.RecordUserPoints(ctx, user.Email, points, accuracy)
	if err != nil {
		return domain.UserPoints{}, fmt.Errorf("record user points: %w", err)
	}

	if r.hub != nil && r.hub.Subscribers(events.TopicRankings) > 0 {
		board, err := r.Leaderboard(ctx, LeaderboardSize)
		if err != nil {
			r.log.WithError(err).Warn("leaderboard refresh failed")
		} else {
			r.hub.Publish(events.TopicRankings, events.TypeRankings, board)
		}
	}
	return row, nil
}
