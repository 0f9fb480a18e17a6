package core

const (
	OneKilobyte = 1024
	OneMegabyte = 1024 * OneKilobyte // 1024 (1KB) * 1024 => 1MB

	LogFileName = "kvs.log" // Name of the log file inside a store directory

	// Stale bytes that trigger compaction in the kvs command; the library
	// itself only compacts when asked to via WithCompactThreshold
	DefaultCompactThreshold = 1 * OneMegabyte
	MinimumCompactThreshold = 4 * OneKilobyte
)
