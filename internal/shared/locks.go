package shared

import "fmt"

// JobLockKey builds redis keys guarding single-runner background jobs.
func JobLockKey(task string) string {
	return fmt.Sprintf("ledger:job:%s:lock", task)
}
