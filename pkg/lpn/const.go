package lpn

import "time"

// waitOfferMaxRetries is the budget named in spec §4.4: "WaitOffer to
// first Friend Update tolerates up to 6 retries before declaring failure."
const waitOfferMaxRetries = 6

// pollTimeoutSegmentedClamp is the poll timeout clamp applied while a segmented
// transmission is in progress (spec §4.4).
const pollTimeoutSegmentedClamp = 1 * time.Second

// pollTimeoutInitial is the Poll Timeout value installed on first
// successful Friend Update (spec §4.4): min(POLL_TIMEOUT_MAX, 1s).
const pollTimeoutInitial = 1 * time.Second

// reqAttemptsBudget implements spec §4.4's REQ_ATTEMPTS rule: 2 if
// POLL_TIMEOUT_MAX < 3s, else 4.
func reqAttemptsBudget(pollTimeoutMax time.Duration) int {
	if pollTimeoutMax < 3*time.Second {
		return 2
	}
	return 4
}
