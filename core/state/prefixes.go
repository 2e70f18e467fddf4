package state

// Key layout for the stake ledger. Every record lives under a readable
// prefix so offline inspection of the store stays tractable.
const (
	stakePositionPrefix = "staking/pos/"
	stakeClaimPrefix    = "staking/claim/"
	stakePoolKey        = "staking/pool"
	accountPrefix       = "accounts/"
	tokenPrefix         = "token/"
)

func stakePositionKey(addr [20]byte) []byte {
	return append([]byte(stakePositionPrefix), addr[:]...)
}

func stakeClaimKey(addr [20]byte) []byte {
	return append([]byte(stakeClaimPrefix), addr[:]...)
}

func accountKey(addr [20]byte) []byte {
	return append([]byte(accountPrefix), addr[:]...)
}

func tokenBalanceKey(symbol string, addr [20]byte) []byte {
	key := append([]byte(tokenPrefix), symbol...)
	key = append(key, "/bal/"...)
	return append(key, addr[:]...)
}

func tokenSupplyKey(symbol string) []byte {
	key := append([]byte(tokenPrefix), symbol...)
	return append(key, "/supply"...)
}
