package registry

import "time"

// NetworkProfile carries the finality-aware timing budgets for one chain
// network. Mainnet finalizes slower than testnet, so its submit timeout and
// probe window are wider.
type NetworkProfile struct {
	Name              string
	SubmitTimeout     time.Duration
	ProbeInitialDelay time.Duration
	ProbeMaxDelay     time.Duration
	ProbeAttempts     int
}

var (
	Mainnet = NetworkProfile{
		Name:              "mainnet",
		SubmitTimeout:     90 * time.Second,
		ProbeInitialDelay: 3 * time.Second,
		ProbeMaxDelay:     30 * time.Second,
		ProbeAttempts:     8,
	}
	Testnet = NetworkProfile{
		Name:              "testnet",
		SubmitTimeout:     45 * time.Second,
		ProbeInitialDelay: 2 * time.Second,
		ProbeMaxDelay:     15 * time.Second,
		ProbeAttempts:     6,
	}
)

// ProfileFor maps a network name onto its profile, defaulting to testnet.
func ProfileFor(network string) NetworkProfile {
	if network == Mainnet.Name {
		return Mainnet
	}
	return Testnet
}
