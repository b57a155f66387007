package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Money is an exact decimal amount. It is persisted as BSON Decimal128 and
// rendered as a JSON string.
type Money struct {
	d decimal.Decimal
}

func Zero() Money { return Money{} }

func NewMoney(units int64, exp int32) Money {
	return Money{d: decimal.New(units, exp)}
}

func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: invalid amount %q", ErrValidation, s)
	}
	return Money{d: d}, nil
}

// MustMoney panics on malformed input; meant for fixtures and seed data.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(other Money) Money   { return Money{d: m.d.Add(other.d)} }
func (m Money) Times(quantity int) Money { return Money{d: m.d.Mul(decimal.NewFromInt(int64(quantity)))} }
func (m Money) Equal(other Money) bool   { return m.d.Equal(other.d) }
func (m Money) IsNegative() bool         { return m.d.IsNegative() }
func (m Money) IsZero() bool             { return m.d.IsZero() }
func (m Money) String() string           { return m.d.String() }

func (m Money) MarshalJSON() ([]byte, error) {
	return m.d.MarshalJSON()
}

func (m *Money) UnmarshalJSON(data []byte) error {
	return m.d.UnmarshalJSON(data)
}

func (m Money) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d128, err := primitive.ParseDecimal128(m.d.String())
	if err != nil {
		return 0, nil, fmt.Errorf("encode amount %s: %w", m.d.String(), err)
	}
	return bson.MarshalValue(d128)
}

func (m *Money) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Decimal128:
		d128, ok := raw.Decimal128OK()
		if !ok {
			return fmt.Errorf("decode amount: malformed decimal128")
		}
		d, err := decimal.NewFromString(d128.String())
		if err != nil {
			return fmt.Errorf("decode amount: %w", err)
		}
		m.d = d
	case bsontype.Double:
		m.d = decimal.NewFromFloat(raw.Double())
	case bsontype.Int32:
		m.d = decimal.NewFromInt32(raw.Int32())
	case bsontype.Int64:
		m.d = decimal.NewFromInt(raw.Int64())
	case bsontype.String:
		d, err := decimal.NewFromString(raw.StringValue())
		if err != nil {
			return fmt.Errorf("decode amount: %w", err)
		}
		m.d = d
	case bsontype.Null, bsontype.Undefined:
		m.d = decimal.Zero
	default:
		return fmt.Errorf("decode amount: unsupported bson type %s", t)
	}
	return nil
}
