package slack

// Export internal functions for testing
var (
	ToAccount = toAccount
	ToChannel = toChannel
)
