package agent

import "regexp"

// Any digit counts as potentially sensitive: balances, account numbers,
// card numbers. The PDP decides whether a caution note is attached.
var sensitiveRe = regexp.MustCompile(`\d`)

// ContainsSensitiveData reports whether text contains potentially sensitive
// financial figures.
func ContainsSensitiveData(text string) bool {
	return sensitiveRe.MatchString(text)
}
