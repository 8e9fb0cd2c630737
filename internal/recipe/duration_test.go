package recipe

import (
	"errors"
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want time.Duration
	}{
		{name: "go syntax", in: "1h30m", want: 90 * time.Minute},
		{name: "seconds go syntax", in: "5s", want: 5 * time.Second},
		{name: "english minutes", in: "15 minutes", want: 15 * time.Minute},
		{name: "english mixed", in: "1 hour 30 mins", want: 90 * time.Minute},
		{name: "abbreviated hours", in: "2 hrs", want: 2 * time.Hour},
		{name: "chinese minutes", in: "40分钟", want: 40 * time.Minute},
		{name: "chinese compound", in: "1小时30分钟", want: 90 * time.Minute},
		{name: "chinese seconds", in: "30秒", want: 30 * time.Second},
		{name: "fractional", in: "1.5 hours", want: 90 * time.Minute},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDuration(tc.in)
			if err != nil {
				t.Fatalf("ParseDuration(%q): unexpected err %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ParseDuration(%q): got %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseDuration_Rejects(t *testing.T) {
	cases := []struct {
		in      string
		wantErr error
	}{
		{in: "", wantErr: ErrMissingDuration},
		{in: "   ", wantErr: ErrMissingDuration},
		{in: "a while", wantErr: ErrBadDuration},
		{in: "10 fortnights", wantErr: ErrBadDuration},
		{in: "0s", wantErr: ErrBadDuration},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			_, err := ParseDuration(tc.in)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ParseDuration(%q): want %v, got %v", tc.in, tc.wantErr, err)
			}
		})
	}
}

func TestBlockDuration_MissingRequirement(t *testing.T) {
	st := Step{Number: 1, Description: "simmer", Blockable: true}
	if _, err := st.BlockDuration(); !errors.Is(err, ErrMissingDuration) {
		t.Fatalf("want ErrMissingDuration, got %v", err)
	}
}
