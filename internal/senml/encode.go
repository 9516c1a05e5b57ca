package senml

import "encoding/json"

// Encode serialises an envelope back to its JSON wire form.
//
// It is the inverse of Decode: optional base fields equal to their zero
// value are omitted, numeric record values are written as the raw scaled
// integers the caller supplied (pre-scale decimals with Scale), and Absent
// records are written without a value field.
func Encode(env Envelope) ([]byte, error) {
	var wire struct {
		BaseName *string           `json:"bn,omitempty"`
		BaseTime *int64            `json:"bt,omitempty"`
		BaseUnit *string           `json:"bu,omitempty"`
		Version  *int              `json:"ver,omitempty"`
		Records  []json.RawMessage `json:"e"`
	}

	if env.BaseName != "" {
		wire.BaseName = &env.BaseName
	}
	if env.BaseTime != 0 {
		wire.BaseTime = &env.BaseTime
	}
	if env.BaseUnit != "" {
		wire.BaseUnit = &env.BaseUnit
	}
	if env.Version != 0 {
		wire.Version = &env.Version
	}

	for i := range env.Records {
		raw, err := encodeRecord(&env.Records[i])
		if err != nil {
			return nil, err
		}
		wire.Records = append(wire.Records, raw)
	}

	return json.Marshal(wire)
}

func encodeRecord(rec *Record) (json.RawMessage, error) {
	wire := struct {
		Name      string   `json:"n,omitempty"`
		Unit      string   `json:"u,omitempty"`
		Value     *int64   `json:"v,omitempty"`
		StringVal *string  `json:"sv,omitempty"`
		BoolVal   *bool    `json:"bv,omitempty"`
		Time      int64    `json:"t,omitempty"`
	}{
		Name: rec.Name,
		Unit: rec.Unit,
		Time: rec.Time,
	}

	switch rec.Kind {
	case Numeric:
		wire.Value = &rec.Value
	case StringValue:
		wire.StringVal = &rec.StringVal
	case BoolValue:
		wire.BoolVal = &rec.BoolVal
	case Absent:
		// No value field on the wire.
	}

	return json.Marshal(wire)
}
