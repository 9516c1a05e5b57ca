// Package mqtt provides the outbound event bus for SparkGrid Core.
//
// SparkGrid publishes stored telemetry and registration events so
// downstream consumers (dashboards, alerting, billing exports) can
// follow the grid without polling the database. Publishing is strictly
// fire-and-forget: a broker outage never blocks telemetry ingestion.
//
// This package manages:
//   - Connection to the broker with auto-reconnect and backoff
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Topic naming for all SparkGrid events
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	bus := mqtt.NewEventBus(client, byte(cfg.MQTT.QoS))
//	bus.PublishPower(&m)
package mqtt
