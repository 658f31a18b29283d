package db

import (
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestDescribe(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"postgres://sync:s3cret@db:5432/attendance", "sync@db:5432/attendance"},
		{"postgres://sync@db:5432/attendance", "sync@db:5432/attendance"},
		{"host=db port=5433 user=hr password=s3cret dbname=att", "hr@db:5433/att"},
	}
	for _, tc := range cases {
		in, want := tc.in, tc.want
		cfg, err := pgxpool.ParseConfig(in)
		if err != nil {
			t.Fatalf("ParseConfig(%q): %v", in, err)
		}
		got := describe(cfg)
		if got != want {
			t.Errorf("describe(%q): expected %q, got %q", in, want, got)
		}
		if strings.Contains(got, "s3cret") {
			t.Errorf("describe(%q) leaked the password: %q", in, got)
		}
	}
}
