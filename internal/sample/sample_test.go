package sample

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/toeirei/includeguard/internal/db"
	"github.com/toeirei/includeguard/internal/i18n"
)

func TestSortNumbers(t *testing.T) {
	in := []int{5, 2, 8, 1, 9}
	got := SortNumbers(in)
	if want := []int{1, 2, 5, 8, 9}; !reflect.DeepEqual(got, want) {
		t.Fatalf("SortNumbers = %v want %v", got, want)
	}
	if !reflect.DeepEqual(in, []int{5, 2, 8, 1, 9}) {
		t.Fatalf("input was modified: %v", in)
	}
	if got := SortNumbers(nil); len(got) != 0 {
		t.Fatalf("nil input should give empty output, got %v", got)
	}
}

func TestRun(t *testing.T) {
	i18n.Init("en")
	var buf bytes.Buffer
	if err := Run(context.Background(), &buf, "sqlite", "file:sample_run?mode=memory&cache=shared"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := "Query rows:\n1\nSorted numbers:\n1 2 5 8 9\n"
	if buf.String() != want {
		t.Fatalf("output = %q want %q", buf.String(), want)
	}
}

func TestRun_UnsupportedType(t *testing.T) {
	var buf bytes.Buffer
	if err := Run(context.Background(), &buf, "oracle", ""); !errors.Is(err, db.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}
