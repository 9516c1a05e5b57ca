// Package influxdb provides the optional telemetry mirror for SparkGrid Core.
//
// It wraps the official influxdb-client-go v2 library with SparkGrid-specific
// patterns for connection management, measurement mirroring, and health
// monitoring. SQLite remains the system of record; InfluxDB carries a copy
// of every stored measurement for long-range dashboards and capacity
// planning.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "sparkgrid",
//	    Bucket:  "telemetry",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.RecordPower(7, 6500.0, time.Now())
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via
// the SetOnError callback. Connection and health check errors are
// returned directly.
//
// # Performance
//
// Writes are batched according to config settings (batch_size,
// flush_interval). This keeps network overhead flat under high-frequency
// observe notifications.
package influxdb
