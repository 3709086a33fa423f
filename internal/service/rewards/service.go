package rewards

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"

	"github.com/sehatsathi/sehatsathi-api/internal/model"
	apperrors "github.com/sehatsathi/sehatsathi-api/pkg/errors"
)

var (
	ErrRewardNotFound     = apperrors.NotFound("reward", nil)
	ErrRewardUnavailable  = apperrors.Unprocessable("reward is not available", nil)
	ErrInsufficientPoints = apperrors.Unprocessable("Insufficient points", nil)
)

//go:embed data/rewards.yaml
var rewardsYAML []byte

type rewardsFile struct {
	Ledger struct {
		Points         int    `yaml:"points"`
		Tier           string `yaml:"tier"`
		NextTier       string `yaml:"next_tier"`
		NextTierPoints int    `yaml:"next_tier_points"`
	} `yaml:"ledger"`
	Tasks       []model.Task             `yaml:"tasks"`
	Rewards     []model.Reward           `yaml:"rewards"`
	Leaderboard []model.LeaderboardEntry `yaml:"leaderboard"`
}

// Service keeps one points ledger per session. Ledgers are not persisted
// and expire with ttl of inactivity.
type Service struct {
	data    rewardsFile
	ledgers *cache.Cache
	mu      sync.Mutex
}

func NewService(ttl time.Duration) (*Service, error) {
	var data rewardsFile
	if err := yaml.Unmarshal(rewardsYAML, &data); err != nil {
		return nil, fmt.Errorf("failed to parse rewards: %w", err)
	}

	expiration := cache.NoExpiration
	if ttl > 0 {
		expiration = ttl
	}
	return &Service{data: data, ledgers: cache.New(expiration, 10*time.Minute)}, nil
}

func (s *Service) Overview(sessionID string) model.RewardsOverview {
	s.mu.Lock()
	ledger := s.ledger(sessionID)
	s.mu.Unlock()

	return model.RewardsOverview{
		Ledger:      ledger,
		Tasks:       append([]model.Task{}, s.data.Tasks...),
		Rewards:     append([]model.Reward{}, s.data.Rewards...),
		Leaderboard: append([]model.LeaderboardEntry{}, s.data.Leaderboard...),
	}
}

// Redeem spends the reward's cost from the session ledger.
func (s *Service) Redeem(sessionID string, rewardID int) (*model.RedeemResult, error) {
	reward, err := s.reward(rewardID)
	if err != nil {
		return nil, err
	}
	if !reward.Available {
		return nil, fmt.Errorf("%d: %w", rewardID, ErrRewardUnavailable)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ledger := s.ledger(sessionID)
	if ledger.Points < reward.Cost {
		return nil, &apperrors.AppError{
			Code:    apperrors.ErrUnprocessable,
			Message: fmt.Sprintf("You need %d more points to redeem this reward.", reward.Cost-ledger.Points),
			Err:     ErrInsufficientPoints,
		}
	}

	ledger.Points -= reward.Cost
	ledger.PointsToNext = pointsToNext(ledger)
	ledger.Redeemed = append(ledger.Redeemed, reward)
	s.ledgers.Set(sessionID, ledger, cache.DefaultExpiration)

	return &model.RedeemResult{
		Reward:      reward,
		Remaining:   ledger.Points,
		Message:     "Redeemed: " + reward.Title,
		Description: fmt.Sprintf("%d points used. Remaining: %d points", reward.Cost, ledger.Points),
	}, nil
}

// ledger must be called with mu held.
func (s *Service) ledger(sessionID string) model.RewardsLedger {
	if v, ok := s.ledgers.Get(sessionID); ok {
		l := v.(model.RewardsLedger)
		l.Redeemed = append([]model.Reward{}, l.Redeemed...)
		return l
	}

	l := model.RewardsLedger{
		Points:         s.data.Ledger.Points,
		Tier:           s.data.Ledger.Tier,
		NextTier:       s.data.Ledger.NextTier,
		NextTierPoints: s.data.Ledger.NextTierPoints,
		Redeemed:       []model.Reward{},
	}
	l.PointsToNext = pointsToNext(l)
	s.ledgers.Set(sessionID, l, cache.DefaultExpiration)
	return l
}

func (s *Service) reward(id int) (model.Reward, error) {
	for _, r := range s.data.Rewards {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Reward{}, fmt.Errorf("%d: %w", id, ErrRewardNotFound)
}

func pointsToNext(l model.RewardsLedger) int {
	if l.Points >= l.NextTierPoints {
		return 0
	}
	return l.NextTierPoints - l.Points
}
