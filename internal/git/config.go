package git

import "time"

type TaggerConfig struct {
	Name  string
	Email string
}

type Config struct {
	// Path to the repository holding the tag store.
	RepoPath string
	// Remote to sync tags with. Empty means the repository itself is
	// the tag store (no fetch before reads, no push after writes).
	Remote  string
	Timeout time.Duration
	Tagger  TaggerConfig
}
