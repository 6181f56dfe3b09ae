package usage

import "time"

const periodLength = 30 * 24 * time.Hour

func defaultUsage() Usage {
	return Usage{
		Plan:              "Starter",
		AnalysisLimit:     10,
		AnalysesUsed:      0,
		StorageLimitBytes: 2 << 30, // 2 GiB
		StorageUsedBytes:  0,
		ResetsAt:          time.Now().UTC().Add(periodLength),
	}
}
