package models

// RankEntry is one row of the local leaderboard cache.
type RankEntry struct {
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	Matches int    `json:"matches"`
	Wins    int    `json:"wins"`
	Rating  int    `json:"rating"`
}
