// Package senml implements the measurement envelope codec used by Spark Grid
// devices (a SenML-JSON subset).
//
// An envelope is a self-describing batch of named readings sharing a base
// name, time and unit. Constrained devices cannot transmit floating point,
// so numeric values travel as integers pre-multiplied by 100; the codec
// stores them exactly as received and leaves the conversion back to decimal
// to the consumer (see Decimal and Scale).
//
// Decoding is best-effort per optional field: a missing or malformed base
// field yields that field's zero value, and a missing or malformed record
// array yields an envelope with no records. Callers must treat an empty
// record list as "nothing to dispatch", not as an error.
package senml
