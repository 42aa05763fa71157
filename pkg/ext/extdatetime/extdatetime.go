// Package extdatetime provides commands over timestamps carried by temporal
// values.
//
// A timestamp is read from the "timestamp" meta entry of a temporal domain
// (see `|> temporal`) or parsed from a date string in any layout accepted by
// github.com/oarkflow/date. All comparisons use the evaluator clock, so
// results are reproducible under a fake clock.
package extdatetime

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/oarkflow/date"

	"github.com/sandrolain/gorei/pkg/ext/extutil"
	"github.com/sandrolain/gorei/pkg/functions"
	"github.com/sandrolain/gorei/pkg/types"
)

// All returns all date/time command definitions.
func All() []functions.Entry {
	return extutil.Entries(
		Since,
		Age,
		Stamp,
	)
}

// Since returns the definition for `v |> since`: a human-readable distance
// between the timestamp of v and now, such as "3 hours ago".
func Since() functions.Entry {
	return functions.Entry{
		Name: "since",
		Handler: func(name string, v types.Value, inv functions.Invocation) (types.Value, error) {
			ts, err := Timestamp(v)
			if err != nil {
				return nil, extutil.Wrap(name, err)
			}
			return types.String(humanize.RelTime(ts, inv.Now(), "ago", "from now")), nil
		},
	}
}

// Age returns the definition for `v |> age`: seconds elapsed since the
// timestamp of v. Negative for future timestamps.
func Age() functions.Entry {
	return functions.Entry{
		Name: "age",
		Handler: func(name string, v types.Value, inv functions.Invocation) (types.Value, error) {
			ts, err := Timestamp(v)
			if err != nil {
				return nil, extutil.Wrap(name, err)
			}
			return types.Number(inv.Now().Sub(ts).Seconds()), nil
		},
	}
}

// Stamp returns the definition for `"2024-03-01" |> stamp`: the timestamp
// normalized to RFC 3339 in UTC.
func Stamp() functions.Entry {
	return functions.Entry{
		Name: "stamp",
		Handler: func(name string, v types.Value, _ functions.Invocation) (types.Value, error) {
			ts, err := Timestamp(v)
			if err != nil {
				return nil, extutil.Wrap(name, err)
			}
			return types.String(ts.UTC().Format(time.RFC3339Nano)), nil
		},
	}
}

// Timestamp extracts the instant carried by v.
func Timestamp(v types.Value) (time.Time, error) {
	switch x := v.(type) {
	case types.Domain:
		raw, ok := x.Meta["timestamp"]
		if !ok {
			return time.Time{}, types.Errorf(types.ErrCodeTypeMismatch, "domain %q carries no timestamp", x.Label)
		}
		return Timestamp(raw)
	case types.Sealed:
		return x.SealedAt, nil
	case types.String:
		if t, err := time.Parse(time.RFC3339Nano, string(x)); err == nil {
			return t, nil
		}
		t, err := date.Parse(string(x))
		if err != nil {
			return time.Time{}, types.Errorf(types.ErrCodeTypeMismatch, "cannot parse date %q", string(x)).WithCause(err)
		}
		return t, nil
	default:
		return time.Time{}, types.Errorf(types.ErrCodeTypeMismatch, "%s carries no timestamp", v.Kind())
	}
}
