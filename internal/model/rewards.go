package model

type Task struct {
	ID          int    `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	TitleHi     string `json:"title_hi" yaml:"title_hi"`
	Description string `json:"description" yaml:"description"`
	Points      int    `json:"points" yaml:"points"`
	Completed   bool   `json:"completed" yaml:"completed"`
	Progress    int    `json:"progress,omitempty" yaml:"progress"`
	Total       int    `json:"total,omitempty" yaml:"total"`
}

type Reward struct {
	ID        int    `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	TitleHi   string `json:"title_hi" yaml:"title_hi"`
	Cost      int    `json:"cost" yaml:"cost"`
	Type      string `json:"type" yaml:"type"`
	Icon      string `json:"icon" yaml:"icon"`
	Available bool   `json:"available" yaml:"available"`
}

type LeaderboardEntry struct {
	Rank    int    `json:"rank" yaml:"rank"`
	Name    string `json:"name" yaml:"name"`
	Village string `json:"village" yaml:"village"`
	Points  int    `json:"points" yaml:"points"`
}

// RewardsLedger is the per-session points balance.
type RewardsLedger struct {
	Points         int      `json:"points"`
	Tier           string   `json:"tier"`
	NextTier       string   `json:"next_tier"`
	NextTierPoints int      `json:"next_tier_points"`
	PointsToNext   int      `json:"points_to_next"`
	Redeemed       []Reward `json:"redeemed"`
}

type RewardsOverview struct {
	Ledger      RewardsLedger      `json:"ledger"`
	Tasks       []Task             `json:"tasks"`
	Rewards     []Reward           `json:"rewards"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

type RedeemResult struct {
	Reward      Reward `json:"reward"`
	Remaining   int    `json:"remaining"`
	Message     string `json:"message"`
	Description string `json:"description"`
}
