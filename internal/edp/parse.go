package edp

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"2006/01/02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
	"02-01-2006 15:04",
}

// Spreadsheet serial day zero.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const maxSerial = 2958465 // 9999-12-31

func isBlank(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "-", "—", "n/a", "na", "nan", "nat", "null", "none":
		return true
	}
	return false
}

// parseMoney accepts typed numbers as-is and strips currency formatting from
// strings: "$1.234.567" and "1,234,567" both read as 1234567.
func parseMoney(v any) (decimal.NullDecimal, error) {
	switch val := v.(type) {
	case nil:
		return decimal.NullDecimal{}, nil
	case decimal.Decimal:
		return decimal.NewNullDecimal(val), nil
	case decimal.NullDecimal:
		return val, nil
	case *decimal.Decimal:
		if val == nil {
			return decimal.NullDecimal{}, nil
		}
		return decimal.NewNullDecimal(*val), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.NullDecimal{}, fmt.Errorf("%w: non-finite amount", ErrMalformedValue)
		}
		return decimal.NewNullDecimal(decimal.NewFromFloat(val)), nil
	case float32:
		return parseMoney(float64(val))
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(val))), nil
	case int32:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(val))), nil
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(val)), nil
	case json.Number:
		return parseMoney(val.String())
	case string:
		return parseMoneyString(val)
	default:
		return parseMoneyString(fmt.Sprint(val))
	}
}

func parseMoneyString(raw string) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(raw)
	if isBlank(s) {
		return decimal.NullDecimal{}, nil
	}
	if strings.ContainsAny(s, "$,.") {
		var b strings.Builder
		for _, r := range s {
			switch {
			case r >= '0' && r <= '9':
				b.WriteRune(r)
			case r == '-' && b.Len() == 0:
				// a sign counts only ahead of the first digit
				b.WriteRune(r)
			}
		}
		s = b.String()
	} else {
		s = strings.ReplaceAll(s, " ", "")
	}
	if s == "" || s == "-" {
		return decimal.NullDecimal{}, fmt.Errorf("%w: amount %q", ErrMalformedValue, raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: amount %q", ErrMalformedValue, raw)
	}
	return decimal.NewNullDecimal(d), nil
}

// dateOnly drops the clock and zone, keeping the calendar date in UTC.
func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseDate(v any) (time.Time, error) {
	t, err := parseTimestamp(v)
	if err != nil {
		return time.Time{}, err
	}
	return dateOnly(t), nil
}

func parseTimestamp(v any) (time.Time, error) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return val, nil
	case *time.Time:
		if val == nil {
			return time.Time{}, nil
		}
		return *val, nil
	case float64:
		return fromSerial(val)
	case int:
		return fromSerial(float64(val))
	case int64:
		return fromSerial(float64(val))
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: date %q", ErrMalformedValue, val.String())
		}
		return fromSerial(f)
	case string:
		return parseDateString(val)
	default:
		return time.Time{}, fmt.Errorf("%w: date of type %T", ErrMalformedValue, v)
	}
}

func parseDateString(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if isBlank(s) {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromSerial(f)
	}
	return time.Time{}, fmt.Errorf("%w: date %q", ErrMalformedValue, raw)
}

func fromSerial(serial float64) (time.Time, error) {
	if math.IsNaN(serial) || serial < 1 || serial > maxSerial {
		return time.Time{}, fmt.Errorf("%w: date serial %v", ErrMalformedValue, serial)
	}
	days := int(math.Floor(serial))
	seconds := int(math.Round((serial - float64(days)) * 86400))
	return serialEpoch.AddDate(0, 0, days).Add(time.Duration(seconds) * time.Second), nil
}

func parseBool(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	case string:
		switch Fold(val) {
		case "si", "s", "yes", "y", "true", "1", "x", "enviada", "enviado":
			return true
		}
	}
	return false
}

func parseText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format("2006-01-02")
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

func parseInt64(v any) (int64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case float64:
		if math.IsNaN(val) || val != math.Trunc(val) {
			return 0, fmt.Errorf("%w: id %v", ErrMalformedValue, val)
		}
		return int64(val), nil
	case json.Number:
		return parseInt64(val.String())
	case string:
		s := strings.TrimSpace(val)
		if isBlank(s) {
			return 0, nil
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			if f, ferr := strconv.ParseFloat(s, 64); ferr == nil && f == math.Trunc(f) {
				return int64(f), nil
			}
			return 0, fmt.Errorf("%w: id %q", ErrMalformedValue, val)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("%w: id of type %T", ErrMalformedValue, v)
	}
}
