package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"structural-break-lab/internal/domain"
)

// ShortHashLen is the length of truncated hashes used for run IDs and
// digests. 16 hex characters keep report tables readable while leaving
// collision odds negligible at this record volume.
const ShortHashLen = 16

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(series_id|config_digest|data_digest)
// Returns hex-encoded hash truncated to ShortHashLen characters.
func ComputeRunID(seriesID, configDigest, dataDigest string) string {
	data := fmt.Sprintf("%s|%s|%s", seriesID, configDigest, dataDigest)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:ShortHashLen]
}

// ComputeConfigDigest fingerprints an analysis configuration.
// Every tunable participates, so any parameter change yields a new
// run_id even over identical input data.
func ComputeConfigDigest(cfg domain.AnalysisConfig) string {
	data := fmt.Sprintf("%d|%.9g|%d|%.9g|%d|%d|%d|%d",
		cfg.Window,
		cfg.Threshold,
		cfg.MinBaselineSample,
		cfg.VarianceEpsilon,
		cfg.Baseline.StartMs,
		cfg.Baseline.EndMs,
		cfg.Crisis.StartMs,
		cfg.Crisis.EndMs,
	)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:ShortHashLen]
}
