package normalize

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    string
		wantErr bool
	}{
		{"trims and lowercases", " Foo@Bar.com ", "foo@bar.com", false},
		{"already canonical", "a@b.io", "a@b.io", false},
		{"missing at", "foobar.com", "", true},
		{"two ats", "a@@b.com", "", true},
		{"empty local part", "@b.com", "", true},
		{"empty domain", "a@", "", true},
		{"empty", "", "", true},
		{"nil", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Email(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Email(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidEmail) {
				t.Fatalf("Email(%v) error = %v, want ErrInvalidEmail", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("Email(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		name     string
		in       any
		want     string // calendar date, YYYY-MM-DD
		wantTime bool
		wantErr  bool
	}{
		{"iso datetime", "2024-01-15T14:32:00Z", "2024-01-15", true, false},
		{"iso datetime no zone", "2024-01-15T14:32:00", "2024-01-15", true, false},
		{"iso datetime space", "2024-01-15 14:32:00", "2024-01-15", true, false},
		{"iso date", "2024-01-15", "2024-01-15", false, false},
		{"day month year", "15/01/2024", "2024-01-15", false, false},
		{"day month year with time", "15/01/2024 09:30:00", "2024-01-15", true, false},
		{"garbage", "not-a-date", "", false, true},
		{"empty", "", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hasTime, err := Date(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Date(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrUnparsableDate) {
					t.Fatalf("Date(%v) error = %v, want ErrUnparsableDate", tt.in, err)
				}
				return
			}
			if d := got.Format("2006-01-02"); d != tt.want {
				t.Fatalf("Date(%v) = %s, want %s", tt.in, d, tt.want)
			}
			if hasTime != tt.wantTime {
				t.Fatalf("Date(%v) hasTime = %v, want %v", tt.in, hasTime, tt.wantTime)
			}
		})
	}
}

func TestDateExtraLayouts(t *testing.T) {
	got, _, err := Date("Jan 2, 2024", "Jan 2, 2006")
	if err != nil {
		t.Fatalf("Date with extra layout: %v", err)
	}
	if d := got.Format("2006-01-02"); d != "2024-01-02" {
		t.Fatalf("got %s, want 2024-01-02", d)
	}
}

func TestDateAmbiguousPrefersBuiltinOrder(t *testing.T) {
	// 05/01/2024 is day/month/year per the builtin table: 5 January.
	got, _, err := Date("05/01/2024")
	if err != nil {
		t.Fatal(err)
	}
	if got.Day() != 5 || got.Month() != time.January {
		t.Fatalf("got %v, want 5 January 2024", got)
	}
}

func TestMoney(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    string
		wantErr bool
	}{
		{"plain", "10.00", "10", false},
		{"currency symbol", "$1,234.50", "1234.5", false},
		{"json number", json.Number("99.999"), "100", false}, // rounds to 2dp
		{"rounding", "10.005", "10.01", false},
		{"negative", "-5.00", "", true},
		{"negative behind symbol", "$-5.00", "", true},
		{"negative before symbol", "-$5.00", "", true},
		{"zero", "0", "", true},
		{"garbage", "abc", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Money(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Money(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("Money(%v) error = %v, want ErrInvalidAmount", tt.in, err)
				}
				return
			}
			if got.String() != tt.want {
				t.Fatalf("Money(%v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestEnum(t *testing.T) {
	allowed := []string{"completed", "pending", "cancelled", "refunded"}

	if got, err := Enum("pending", allowed); err != nil || got != "pending" {
		t.Fatalf("Enum(pending) = %q, %v", got, err)
	}
	if got, err := Enum(" completed ", allowed); err != nil || got != "completed" {
		t.Fatalf("Enum with whitespace = %q, %v", got, err)
	}
	// membership is case-sensitive
	if _, err := Enum("Pending", allowed); !errors.Is(err, ErrInvalidEnumValue) {
		t.Fatalf("Enum(Pending) error = %v, want ErrInvalidEnumValue", err)
	}
	if _, err := Enum("shipped", allowed); !errors.Is(err, ErrInvalidEnumValue) {
		t.Fatalf("Enum(shipped) error = %v, want ErrInvalidEnumValue", err)
	}
}

func TestInt(t *testing.T) {
	tests := []struct {
		in      any
		want    int64
		wantErr bool
	}{
		{json.Number("4"), 4, false},
		{"3", 3, false},
		{float64(5), 5, false},
		{float64(4.5), 0, true},
		{int64(2), 2, false},
		{"x", 0, true},
		{nil, 0, true},
	}
	for _, tt := range tests {
		got, err := Int(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("Int(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("Int(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
