package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/sparkgrid/grid-core/internal/measurement"
)

// RecordPower mirrors a stored smart-meter reading to InfluxDB.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Satisfies measurement.Recorder alongside RecordTransformer.
func (c *Client) RecordPower(deviceID int64, power float64, at time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"power",
		map[string]string{
			"device_id": strconv.FormatInt(deviceID, 10),
		},
		map[string]interface{}{
			"power_w": power,
		},
		at,
	)

	c.writeAPI.WritePoint(point)
}

// RecordTransformer mirrors a stored transformer snapshot to InfluxDB.
//
// All phase currents and voltages land in one point so dashboards can
// plot per-phase load without joins.
func (c *Client) RecordTransformer(m *measurement.TransformerMeasurement) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"transformer",
		map[string]string{
			"device_id": strconv.FormatInt(m.DeviceID, 10),
		},
		map[string]interface{}{
			"state":     m.State,
			"current_a": m.Ia,
			"current_b": m.Ib,
			"current_c": m.Ic,
			"voltage_a": m.Va,
			"voltage_b": m.Vb,
			"voltage_c": m.Vc,
		},
		m.RecordedAt,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for operational metrics that don't fit the telemetry helpers.
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "grid-01"},
//	    map[string]interface{}{"observed_devices": 42})
func (c *Client) WritePoint(measurementName string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurementName, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
