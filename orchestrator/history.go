package orchestrator

import "time"

// Statistics is the running counter set §4.10 requires: "tasks_executed,
// tasks_completed, tasks_failed, total_execution_time, escalations".
type Statistics struct {
	TasksExecuted       int
	TasksCompleted      int
	TasksFailed         int
	TotalExecutionTime  time.Duration
	Escalations         int
}

// finish records result into the capped history and updates the
// running Statistics. Called once at the end of every ExecuteTask call,
// success or failure.
func (o *Orchestrator) finish(result TaskExecutionResult) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stats.TasksExecuted++
	if result.Success {
		o.stats.TasksCompleted++
	} else {
		o.stats.TasksFailed++
	}
	o.stats.TotalExecutionTime += result.Duration
	o.stats.Escalations += result.Escalations

	o.history = append(o.history, result)
	if o.maxHistory > 0 && len(o.history) > o.maxHistory {
		o.history = o.history[len(o.history)-o.maxHistory:]
	}

	status := "success"
	if !result.Success {
		status = "failure"
	}
	o.telemetry.RecordMetric("orchestrator.tasks.total", 1, map[string]string{"status": status})
	o.telemetry.RecordMetric("orchestrator.tasks.duration_ms", float64(result.Duration.Milliseconds()), nil)
}

// GetStatus returns the most recent execution result recorded for
// taskID, if any.
func (o *Orchestrator) GetStatus(taskID string) (TaskExecutionResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := len(o.history) - 1; i >= 0; i-- {
		if o.history[i].TaskID == taskID {
			return o.history[i], true
		}
	}
	return TaskExecutionResult{}, false
}

// GetHistory returns up to limit of the most recent execution results,
// newest last. limit <= 0 returns the full retained history.
func (o *Orchestrator) GetHistory(limit int) []TaskExecutionResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	if limit <= 0 || limit >= len(o.history) {
		out := make([]TaskExecutionResult, len(o.history))
		copy(out, o.history)
		return out
	}
	out := make([]TaskExecutionResult, limit)
	copy(out, o.history[len(o.history)-limit:])
	return out
}

// GetStatistics returns a snapshot of the running Statistics struct.
func (o *Orchestrator) GetStatistics() Statistics {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// CleanupOldData drops history entries older than maxAge and purges the
// error tracker's own retention window (§4.10's Contract: CleanupOldData).
// Returns the number of history entries dropped.
func (o *Orchestrator) CleanupOldData(maxAge time.Duration) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	kept := o.history[:0]
	dropped := 0
	for _, r := range o.history {
		if r.CompletedAt.Before(cutoff) {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	o.history = kept

	o.errTracker.Cleanup()
	return dropped
}
