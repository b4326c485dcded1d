package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for HTTP requests and job outcomes.
// This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	jobsTotal         = make(map[jobKey]int64)
	gateOutcomesTotal = make(map[string]int64)
	poolAcquiresTotal = make(map[string]int64)

	retentionJobsDeleted = make(map[string]int64)
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

type jobKey struct {
	Type   string
	Status string
}

// RecordRequest increments the request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordJob counts one job reaching a terminal status.
func RecordJob(jobType, status string) {
	mu.Lock()
	defer mu.Unlock()
	jobsTotal[jobKey{Type: jobType, Status: status}]++
}

// RecordGateOutcome counts post-submission gate outcomes.
func RecordGateOutcome(outcome string) {
	mu.Lock()
	defer mu.Unlock()
	gateOutcomesTotal[outcome]++
}

// RecordPoolAcquire counts session pool acquire results
// (ok, exhausted, closed, error).
func RecordPoolAcquire(result string) {
	mu.Lock()
	defer mu.Unlock()
	poolAcquiresTotal[result]++
}

// RecordRetentionJobs increments the counter of jobs deleted by TTL
// for a given job type.
func RecordRetentionJobs(jobType string, deleted int64) {
	if deleted <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	retentionJobsDeleted[jobType] += deleted
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP mdac_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE mdac_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		v := requestsTotal[k]
		fmt.Fprintf(&b, "mdac_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, v)
	}

	b.WriteString("# HELP mdac_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE mdac_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP mdac_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE mdac_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		sum := latencyMsSum[k]
		cnt := latencyMsCount[k]
		fmt.Fprintf(&b, "mdac_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, sum)
		fmt.Fprintf(&b, "mdac_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, cnt)
	}

	// Job outcome metrics
	b.WriteString("# HELP mdac_jobs_total Total jobs by type and terminal status\n")
	b.WriteString("# TYPE mdac_jobs_total counter\n")

	var jobKeys []jobKey
	for k := range jobsTotal {
		jobKeys = append(jobKeys, k)
	}
	sort.Slice(jobKeys, func(i, j int) bool {
		if jobKeys[i].Type != jobKeys[j].Type {
			return jobKeys[i].Type < jobKeys[j].Type
		}
		return jobKeys[i].Status < jobKeys[j].Status
	})

	for _, k := range jobKeys {
		fmt.Fprintf(&b, "mdac_jobs_total{type=\"%s\",status=\"%s\"} %d\n",
			k.Type, k.Status, jobsTotal[k])
	}

	b.WriteString("# HELP mdac_gate_outcomes_total Gate waiter outcomes\n")
	b.WriteString("# TYPE mdac_gate_outcomes_total counter\n")

	var gateKeys []string
	for k := range gateOutcomesTotal {
		gateKeys = append(gateKeys, k)
	}
	sort.Strings(gateKeys)
	for _, k := range gateKeys {
		fmt.Fprintf(&b, "mdac_gate_outcomes_total{outcome=\"%s\"} %d\n", k, gateOutcomesTotal[k])
	}

	b.WriteString("# HELP mdac_pool_acquires_total Session pool acquire results\n")
	b.WriteString("# TYPE mdac_pool_acquires_total counter\n")

	var poolKeys []string
	for k := range poolAcquiresTotal {
		poolKeys = append(poolKeys, k)
	}
	sort.Strings(poolKeys)
	for _, k := range poolKeys {
		fmt.Fprintf(&b, "mdac_pool_acquires_total{result=\"%s\"} %d\n", k, poolAcquiresTotal[k])
	}

	// Retention metrics
	b.WriteString("# HELP mdac_retention_jobs_deleted_total Total jobs deleted by TTL\n")
	b.WriteString("# TYPE mdac_retention_jobs_deleted_total counter\n")

	var jobTypes []string
	for t := range retentionJobsDeleted {
		jobTypes = append(jobTypes, t)
	}
	sort.Strings(jobTypes)
	for _, t := range jobTypes {
		fmt.Fprintf(&b, "mdac_retention_jobs_deleted_total{job_type=\"%s\"} %d\n", t, retentionJobsDeleted[t])
	}

	return b.String()
}
