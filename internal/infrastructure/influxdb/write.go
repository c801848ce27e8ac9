package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteRunProgress records a single executed playback step.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - runID: Run identifier (tag, low cardinality per retention window)
//   - cycle: Zero-based cycle index
//   - step: Zero-based step index within the cycle
//   - elapsedMS: Milliseconds since the run started
func (c *Client) WriteRunProgress(runID string, cycle, step int, elapsedMS int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"run_progress",
		map[string]string{
			"run_id": runID,
		},
		map[string]interface{}{
			"cycle":      cycle,
			"step":       step,
			"elapsed_ms": elapsedMS,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRunStats records cumulative run counters, written after each
// completed cycle and once more when the run terminates.
//
// Parameters:
//   - runID: Run identifier
//   - successCount: Actions injected without error so far
//   - errorCount: Actions that failed so far
//   - cyclesCompleted: Full sequence traversals so far
//   - elapsedMS: Milliseconds since the run started
func (c *Client) WriteRunStats(runID string, successCount, errorCount, cyclesCompleted int, elapsedMS int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"run_stats",
		map[string]string{
			"run_id": runID,
		},
		map[string]interface{}{
			"success_count":    successCount,
			"error_count":      errorCount,
			"cycles_completed": cyclesCompleted,
			"elapsed_ms":       elapsedMS,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRunState records an engine lifecycle transition.
//
// Parameters:
//   - runID: Run identifier
//   - state: Engine state name (running, paused, completed, ...)
func (c *Client) WriteRunState(runID string, state string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"run_state",
		map[string]string{
			"run_id": runID,
			"state":  state,
		},
		map[string]interface{}{
			"value": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("daemon_stats",
//	    map[string]string{"host": "desk-01"},
//	    map[string]interface{}{"active_profiles": 12})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., backfilled data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
