package jobs

// CRF and cpu_used bounds for the software AV1 (libaom) encoder path,
// per the transcode request's validated override ranges. Hardware
// paths accept crf as a quality-equivalent parameter in the same range
// and silently ignore cpu_used.
const (
	MinCRF = 0
	MaxCRF = 63

	MinCPUUsed = 0
	MaxCPUUsed = 8
)

// ValidCRF reports whether crf is within the accepted range. Requests
// outside the range are rejected at the HTTP layer as BadRequest rather
// than silently clamped.
func ValidCRF(crf int) bool {
	return crf >= MinCRF && crf <= MaxCRF
}

// ValidCPUUsed reports whether cpu_used is within the accepted range.
func ValidCPUUsed(cpuUsed int) bool {
	return cpuUsed >= MinCPUUsed && cpuUsed <= MaxCPUUsed
}
