/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package size defines a byte-size type with human-readable parsing and
// formatting (1K, 2.5MB, 10GB, ...), arithmetic helpers that saturate at the
// type's bounds instead of wrapping, and marshalling support for JSON, YAML,
// text, binary, CBOR and viper/mapstructure decoding.
package size

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Size represents a number of bytes.
type Size uint64

// Common byte-size constants, binary (1024-based) progression.
const (
	SizeNul  Size = 0
	SizeUnit Size = 1
	SizeKilo Size = SizeUnit << 10
	SizeMega Size = SizeUnit << 20
	SizeGiga Size = SizeUnit << 30
	SizeTera Size = SizeUnit << 40
	SizePeta Size = SizeUnit << 50
	SizeExa  Size = SizeUnit << 60
)

// Format is a printf-style numeric format string used by Size.Format. It is
// an alias of string, so plain string values are accepted as well.
type Format = string

// Common rounding formats for Size.Format.
const (
	FormatRound0 Format = "%.0f"
	FormatRound1 Format = "%.1f"
	FormatRound2 Format = "%.2f"
	FormatRound3 Format = "%.3f"
)

var units = []struct {
	prefix string
	size   Size
}{
	{"E", SizeExa},
	{"P", SizePeta},
	{"T", SizeTera},
	{"G", SizeGiga},
	{"M", SizeMega},
	{"K", SizeKilo},
}

// prefixAndDivisor returns the binary-prefix letter and divisor matching s,
// or ("", 1) for a plain byte value.
func (s Size) prefixAndDivisor() (string, Size) {
	for _, u := range units {
		if s >= u.size {
			return u.prefix, u.size
		}
	}
	return "", SizeUnit
}

// Unit returns the unit suffix for s, e.g. "B", "KB", "MB". A non-zero suffix
// rune replaces the trailing "B" (e.g. Unit('i') on a kilobyte returns "Ki",
// and on a plain byte value returns "i").
func (s Size) Unit(suffix rune) string {
	prefix, _ := s.prefixAndDivisor()
	if suffix == 0 {
		return prefix + "B"
	}
	return prefix + string(suffix)
}

// Format renders s, scaled to its largest whole unit, using the given
// printf-style float format. The unit suffix is not included: callers combine
// Format() and Unit() or use String() for a ready-to-display value.
func (s Size) Format(f Format) string {
	_, div := s.prefixAndDivisor()
	return fmt.Sprintf(string(f), float64(s)/float64(div))
}

// String renders s as a human-readable value with its unit, e.g. "5.00MB".
func (s Size) String() string {
	return s.Format(FormatRound2) + s.Unit(0)
}

// Uint64 returns s as a uint64.
func (s Size) Uint64() uint64 { return uint64(s) }

// Uint32 returns s as a uint32, saturating at math.MaxUint32.
func (s Size) Uint32() uint32 {
	if s > Size(math.MaxUint32) {
		return math.MaxUint32
	}
	return uint32(s)
}

// Uint returns s as a uint, saturating at math.MaxUint32 on 32-bit platforms.
func (s Size) Uint() uint {
	if uint64(s) > math.MaxUint32 && strconv.IntSize == 32 {
		return math.MaxUint32
	}
	return uint(s)
}

// Int64 returns s as an int64, saturating at math.MaxInt64.
func (s Size) Int64() int64 {
	if s > Size(math.MaxInt64) {
		return math.MaxInt64
	}
	return int64(s)
}

// Int32 returns s as an int32, saturating at math.MaxInt32.
func (s Size) Int32() int32 {
	if s > Size(math.MaxInt32) {
		return math.MaxInt32
	}
	return int32(s)
}

// Int returns s as an int, saturating at math.MaxInt32 on 32-bit platforms.
func (s Size) Int() int {
	if strconv.IntSize == 32 && s > Size(math.MaxInt32) {
		return math.MaxInt32
	}
	return int(s.Int64())
}

// Float64 returns s as a float64.
func (s Size) Float64() float64 { return float64(s) }

// Float32 returns s as a float32.
func (s Size) Float32() float32 { return float32(s) }

// KiloBytes returns s expressed as a whole number of kilobytes, floored.
func (s Size) KiloBytes() uint64 { return uint64(s / SizeKilo) }

// MegaBytes returns s expressed as a whole number of megabytes, floored.
func (s Size) MegaBytes() uint64 { return uint64(s / SizeMega) }

// GigaBytes returns s expressed as a whole number of gigabytes, floored.
func (s Size) GigaBytes() uint64 { return uint64(s / SizeGiga) }

// TeraBytes returns s expressed as a whole number of terabytes, floored.
func (s Size) TeraBytes() uint64 { return uint64(s / SizeTera) }

// PetaBytes returns s expressed as a whole number of petabytes, floored.
func (s Size) PetaBytes() uint64 { return uint64(s / SizePeta) }

// ExaBytes returns s expressed as a whole number of exabytes, floored.
func (s Size) ExaBytes() uint64 { return uint64(s / SizeExa) }

// defaultUnit is the suffix rune used by Code when called with 0.
var defaultUnit rune

// SetDefaultUnit sets the package-wide default suffix rune used by Code.
// Passing 0 or 'B' restores the plain "B" suffix.
func SetDefaultUnit(r rune) {
	defaultUnit = r
}

// Code returns the unit suffix for s like Unit, but falls back to the
// package-wide default suffix (see SetDefaultUnit) when suffix is 0.
func (s Size) Code(suffix rune) string {
	if suffix == 0 {
		suffix = defaultUnit
	}
	return s.Unit(suffix)
}

// ParseUint64 builds a Size from a uint64 byte count.
func ParseUint64(v uint64) Size { return Size(v) }

// ParseInt64 builds a Size from an int64 byte count; a negative count is
// taken as its absolute value.
func ParseInt64(v int64) Size {
	if v < 0 {
		return Size(uint64(-v))
	}
	return Size(v)
}

// ParseFloat64 builds a Size from a float64 byte count: the value is floored,
// a negative result is taken as its absolute value, and magnitudes beyond the
// type's range saturate at math.MaxUint64.
func ParseFloat64(v float64) Size {
	v = math.Floor(v)
	if v < 0 {
		v = -v
	}
	if v >= float64(math.MaxUint64) {
		return Size(math.MaxUint64)
	}
	return Size(v)
}

// Mul multiplies s in place by f, saturating at math.MaxUint64. Negative
// factors are treated as 0.
func (s *Size) Mul(f float64) {
	_ = s.MulErr(f)
}

// MulErr multiplies s in place by f, returning an error (and saturating at
// math.MaxUint64) if the result overflows.
func (s *Size) MulErr(f float64) error {
	if f < 0 {
		*s = SizeNul
		return nil
	}

	r := float64(*s) * f
	if r > float64(math.MaxUint64) {
		*s = Size(math.MaxUint64)
		return fmt.Errorf("size: multiplication overflow")
	}

	*s = Size(math.Ceil(r))
	return nil
}

// Div divides s in place by f, saturating at 0 for invalid divisors.
func (s *Size) Div(f float64) {
	_ = s.DivErr(f)
}

// DivErr divides s in place by f, returning an error for a zero or negative
// divisor (s is left unchanged in that case, other than integer rounding).
func (s *Size) DivErr(f float64) error {
	if f <= 0 {
		return fmt.Errorf("invalid diviser: %v", f)
	}

	*s = Size(math.Ceil(float64(*s) / f))
	return nil
}

// Add adds v to s in place.
func (s *Size) Add(v uint64) {
	_ = s.AddErr(v)
}

// AddErr adds v to s in place, returning an error (and saturating at
// math.MaxUint64) if the result overflows.
func (s *Size) AddErr(v uint64) error {
	if v > math.MaxUint64-uint64(*s) {
		*s = Size(math.MaxUint64)
		return fmt.Errorf("size: addition overflow")
	}

	*s += Size(v)
	return nil
}

// Sub subtracts v from s in place, saturating at 0.
func (s *Size) Sub(v uint64) {
	_ = s.SubErr(v)
}

// SubErr subtracts v from s in place, returning an error (and saturating at
// 0) if v is larger than s.
func (s *Size) SubErr(v uint64) error {
	if v > uint64(*s) {
		cur := uint64(*s)
		*s = SizeNul
		return fmt.Errorf("invalid substractor: %d is bigger than current size %d", v, cur)
	}

	*s -= Size(v)
	return nil
}

// Parse converts a human-readable size string ("5MB", "1.5 GiB", "100") into
// a Size. Leading/trailing whitespace and surrounding quotes are ignored; the
// unit is case-insensitive and its trailing "B"/"iB" is optional; a value
// with no unit is a byte count. Values that do not fit in a Size are rejected.
func Parse(s string) (Size, error) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	s = strings.TrimSpace(s)

	if s == "" {
		return SizeNul, fmt.Errorf("size: invalid size: empty value")
	}

	if s[0] == '+' {
		s = s[1:]
	} else if s[0] == '-' {
		return SizeNul, fmt.Errorf("size: negative value not allowed: %q", s)
	}

	i := 0
	for i < len(s) && (s[i] == '.' || (s[i] >= '0' && s[i] <= '9')) {
		i++
	}

	if i == 0 {
		return SizeNul, fmt.Errorf("size: missing numeric value in %q", s)
	}

	num, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return SizeNul, fmt.Errorf("size: invalid numeric value %q: %w", s[:i], err)
	}

	unit := strings.TrimSpace(s[i:])
	unit = strings.ToUpper(unit)
	unit = strings.TrimSuffix(unit, "IB")
	unit = strings.TrimSuffix(unit, "B")

	var mul Size
	switch unit {
	case "":
		mul = SizeUnit
	case "K":
		mul = SizeKilo
	case "M":
		mul = SizeMega
	case "G":
		mul = SizeGiga
	case "T":
		mul = SizeTera
	case "P":
		mul = SizePeta
	case "E":
		mul = SizeExa
	default:
		return SizeNul, fmt.Errorf("size: unknown unit %q", unit)
	}

	v := num * float64(mul)
	if v >= float64(math.MaxUint64) {
		return SizeNul, fmt.Errorf("size: value %q overflows", s)
	}

	return ParseFloat64(v), nil
}

// ParseByte parses a human-readable size held in a byte slice.
func ParseByte(b []byte) (Size, error) {
	if len(b) == 0 {
		return SizeNul, fmt.Errorf("size: empty value")
	}
	return Parse(string(b))
}

// ParseSize is a deprecated alias for Parse.
func ParseSize(s string) (Size, error) {
	return Parse(s)
}

// ParseByteAsSize is a deprecated alias for ParseByte.
func ParseByteAsSize(b []byte) (Size, error) {
	return ParseByte(b)
}

// GetSize is a deprecated alias for Parse returning an ok boolean instead of
// an error.
func GetSize(s string) (Size, bool) {
	v, err := Parse(s)
	if err != nil {
		return SizeNul, false
	}
	return v, true
}

// SizeFromInt64 is an alias for ParseInt64.
func SizeFromInt64(v int64) Size {
	return ParseInt64(v)
}

// SizeFromFloat64 is an alias for ParseFloat64.
func SizeFromFloat64(v float64) Size {
	return ParseFloat64(v)
}

// MarshalText implements encoding.TextMarshaler.
func (s Size) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Size) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Size) MarshalJSON() ([]byte, error) {
	b, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return []byte(strconv.Quote(string(b))), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Size) UnmarshalJSON(b []byte) error {
	txt, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("size: invalid json value %q: %w", b, err)
	}
	return s.UnmarshalText([]byte(txt))
}

// MarshalYAML implements yaml.Marshaler.
func (s Size) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Size) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var txt string
	if err := unmarshal(&txt); err != nil {
		return err
	}
	return s.UnmarshalText([]byte(txt))
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s Size) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	v := uint64(s)
	for i := 0; i < 8; i++ {
		buf.WriteByte(byte(v >> (56 - 8*i)))
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *Size) UnmarshalBinary(b []byte) error {
	if len(b) != 8 {
		return fmt.Errorf("size: invalid binary length %d", len(b))
	}

	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	*s = Size(v)
	return nil
}

// MarshalTOML implements the toml.Marshaler convention used by
// github.com/BurntSushi/toml and github.com/pelletier/go-toml.
func (s Size) MarshalTOML() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// UnmarshalTOML implements the toml.Unmarshaler convention: it accepts a
// string or a byte slice holding a human-readable size value.
func (s *Size) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	default:
		return fmt.Errorf("size: value %v is not in valid format for a size", data)
	}
}

// MarshalCBOR implements cbor.Marshaler.
func (s Size) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(uint64(s))
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (s *Size) UnmarshalCBOR(b []byte) error {
	var v uint64
	if err := cbor.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = Size(v)
	return nil
}

// ViperDecoderHook returns a mapstructure.DecodeHookFuncType suitable for
// viper.Unmarshal, converting strings, integers, floats and byte slices into
// Size values.
func ViperDecoderHook() func(reflect.Type, reflect.Type, interface{}) (interface{}, error) {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(Size(0)) {
			return data, nil
		}

		switch from.Kind() {
		case reflect.String:
			return Parse(data.(string))

		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return ParseInt64(reflect.ValueOf(data).Int()), nil

		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return ParseUint64(reflect.ValueOf(data).Uint()), nil

		case reflect.Float32, reflect.Float64:
			return ParseFloat64(reflect.ValueOf(data).Float()), nil

		case reflect.Slice:
			if b, ok := data.([]byte); ok {
				return Parse(string(b))
			}
		}

		return data, nil
	}
}
