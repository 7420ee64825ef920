package quota

import "errors"

var (
	ErrFailedToLoadTiers = errors.New("failed to load quota tiers")
	ErrFailedToCount     = errors.New("failed to count quota entities")
	ErrNoGraceWindow     = errors.New("no quota grace window open")
	ErrGraceStoreFailure = errors.New("quota grace store failure")
	ErrInvalidTierConfig = errors.New("invalid quota tier configuration")
)
