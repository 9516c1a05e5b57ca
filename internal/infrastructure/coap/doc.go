// Package coap provides the CoAP transport for SparkGrid Core.
//
// This package manages:
//   - The UDP server devices register against (mux-routed resources)
//   - The client used to command devices and observe their resources
//
// Domain packages never import the CoAP library directly; they see the
// local Request/Response types and small interfaces, and cmd/sparkgrid
// wires this package in behind them. That keeps handler and coordinator
// tests free of network setup.
//
// Usage:
//
//	srv := coap.NewServer(coap.ServerConfig{Host: "0.0.0.0", Port: 5683})
//	srv.Handle("registration", registerHandler)
//	go srv.ListenAndServe()
//	defer srv.Stop()
package coap
