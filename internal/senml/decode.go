package senml

import (
	"encoding/json"
	"math"
)

// Decode parses a measurement envelope from its JSON wire form.
//
// Decoding never fails, and every field degrades independently: a
// malformed bt still leaves a valid e array decodable, and vice versa.
// A missing, empty or malformed record array yields an envelope with no
// records. Each record is decoded with the same per-field discipline, so
// one malformed field does not affect its siblings.
func Decode(data []byte) Envelope {
	var env Envelope

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return env
	}

	decodeField(fields["bn"], &env.BaseName)
	decodeField(fields["bt"], &env.BaseTime)
	decodeField(fields["bu"], &env.BaseUnit)
	decodeField(fields["ver"], &env.Version)

	var records []json.RawMessage
	decodeField(fields["e"], &records)
	for _, raw := range records {
		env.Records = append(env.Records, decodeRecord(raw))
	}

	return env
}

// decodeField unmarshals one optional field, leaving *dst untouched when
// the field is missing or malformed. Absence is a result, not a fault.
func decodeField[T any](raw json.RawMessage, dst *T) {
	if raw == nil {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return
	}
	*dst = v
}

// decodeRecord parses a single record. Exactly one of v/sv/bv is
// expected; a record carrying none, or more than one, decodes as Absent
// (the wire format leaves that input undefined and guessing an ordering
// would replicate an accident, not a contract).
func decodeRecord(raw json.RawMessage) Record {
	var rec Record

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return rec
	}

	decodeField(fields["n"], &rec.Name)
	decodeField(fields["u"], &rec.Unit)
	decodeField(fields["t"], &rec.Time)

	var (
		num  *float64
		str  *string
		bval *bool
	)
	decodeField(fields["v"], &num)
	decodeField(fields["sv"], &str)
	decodeField(fields["bv"], &bval)

	present := 0
	if num != nil {
		present++
	}
	if str != nil {
		present++
	}
	if bval != nil {
		present++
	}
	if present != 1 {
		return rec
	}

	switch {
	case num != nil:
		rec.Kind = Numeric
		// Devices send scaled integers; tolerate a fractional wire value by
		// rounding rather than dropping the record.
		rec.Value = int64(math.Round(*num))
	case str != nil:
		rec.Kind = StringValue
		rec.StringVal = *str
	case bval != nil:
		rec.Kind = BoolValue
		rec.BoolVal = *bval
	}

	return rec
}
