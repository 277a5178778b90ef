package sheets

import (
	"reflect"
	"testing"

	"beersync/internal"
)

func TestParseRows(t *testing.T) {
	values := [][]any{
		{"Зоркий - Гроза", "0100000000000022222"},
		{},
		{"4Пивовара - Вброс", "0100000000000011111"},
		{""},
		{"Barista Chocolate Quad"},
		{"Anchor - Steam", "0100000000000033333"},
	}

	rows := parseRows(values)

	// Whole-row lexicographic order: blanks first (then dropped), short rows
	// before longer rows sharing a prefix.
	want := []internal.CorrespondenceRow{
		{Name: "4Пивовара - Вброс", Code: "0100000000000011111"},
		{Name: "Anchor - Steam", Code: "0100000000000033333"},
		{Name: "Barista Chocolate Quad", Code: ""},
		{Name: "Зоркий - Гроза", Code: "0100000000000022222"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("got %+v\nwant %+v", rows, want)
	}
}

func TestRowLess(t *testing.T) {
	cases := []struct {
		name string
		a, b []any
		want bool
	}{
		{name: "blank before anything", a: []any{}, b: []any{"A"}, want: true},
		{name: "first cell decides", a: []any{"A", "2"}, b: []any{"B", "1"}, want: true},
		{name: "prefix row first", a: []any{"A"}, b: []any{"A", "1"}, want: true},
		{name: "equal rows", a: []any{"A", "1"}, b: []any{"A", "1"}, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rowLess(tc.a, tc.b); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}
