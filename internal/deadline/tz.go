package deadline

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// TZ records where a deadline's wall-clock time came from. New tasks
// store the creator's numeric UTC offset in hours (fractional offsets
// like India's 5.5 included); documents written by older versions
// stored an IANA zone name instead. Both shapes decode into this one
// type.
type TZ struct {
	Hours float64
	Name  string
}

func OffsetTZ(hours float64) TZ {
	return TZ{Hours: hours}
}

// Location projects the stored value back onto a concrete zone. A bare
// offset maps to the first canonical zone matching it at the given
// instant; several zones share most offsets, so the label may differ
// from the creator's actual zone. That imprecision is accepted.
func (tz TZ) Location(at time.Time) *time.Location {
	if tz.Name != "" {
		loc, err := time.LoadLocation(tz.Name)
		if err != nil {
			return time.UTC
		}
		return loc
	}
	return locationForOffset(tz.Hours, at)
}

func (tz TZ) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if tz.Name != "" {
		return bson.MarshalValue(tz.Name)
	}
	return bson.MarshalValue(tz.Hours)
}

func (tz *TZ) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		tz.Name = rv.StringValue()
	case bsontype.Double:
		tz.Hours = rv.Double()
	case bsontype.Int32:
		tz.Hours = float64(rv.Int32())
	case bsontype.Int64:
		tz.Hours = float64(rv.Int64())
	case bsontype.Null:
		*tz = TZ{}
	default:
		return fmt.Errorf("unsupported deadline_tz type %s", t)
	}
	return nil
}

// DisplayFormat is the wall-clock rendering used everywhere a deadline
// is shown to a user.
const DisplayFormat = "02-Jan-2006 15:04 MST"

// Display re-localizes a stored UTC deadline for presentation.
func Display(deadline time.Time, tz TZ) time.Time {
	return deadline.In(tz.Location(deadline))
}
