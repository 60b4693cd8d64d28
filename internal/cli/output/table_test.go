package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type intervalRow struct {
	IntervalID int64  `json:"intervalId"`
	CreatedAt  int64  `json:"createdAt" table:"millis"`
	SizeBytes  int64  `json:"sizeBytes" table:"bytes"`
	Items      int    `json:"items" table:"count"`
	Checksum   string `json:"checksum" table:"wide"`
	internal   string
}

func sampleRows() []intervalRow {
	return []intervalRow{
		{IntervalID: 1, CreatedAt: fixedNow.Add(-3 * time.Minute).UnixMilli(), SizeBytes: 1536, Items: 12, Checksum: "aa11"},
		{IntervalID: 2, CreatedAt: fixedNow.Add(-2 * time.Hour).UnixMilli(), SizeBytes: 5 << 20, Items: 1200, Checksum: "bb22"},
	}
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestTableFormatter_Slice(t *testing.T) {
	var buf bytes.Buffer
	f := &TableFormatter{Now: func() time.Time { return fixedNow }}
	if err := f.Format(&buf, sampleRows()); err != nil {
		t.Fatal(err)
	}

	got := lines(buf.String())
	if len(got) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(got), buf.String())
	}
	if fields := strings.Fields(got[0]); strings.Join(fields, " ") != "INTERVAL_ID CREATED_AT SIZE_BYTES ITEMS" {
		t.Errorf("headers = %q", got[0])
	}
	for _, want := range []string{"3 minutes ago", "1.5 KiB", "12"} {
		if !strings.Contains(got[1], want) {
			t.Errorf("row 1 %q missing %q", got[1], want)
		}
	}
	for _, want := range []string{"2 hours ago", "5.0 MiB", "1,200"} {
		if !strings.Contains(got[2], want) {
			t.Errorf("row 2 %q missing %q", got[2], want)
		}
	}
	if strings.Contains(buf.String(), "aa11") {
		t.Error("wide column shown without Wide")
	}
	if strings.Contains(buf.String(), "INTERNAL") {
		t.Error("unexported field shown")
	}
}

func TestTableFormatter_SliceWide(t *testing.T) {
	var buf bytes.Buffer
	f := &TableFormatter{Wide: true, Now: func() time.Time { return fixedNow }}
	if err := f.Format(&buf, sampleRows()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "CHECKSUM") || !strings.Contains(buf.String(), "bb22") {
		t.Errorf("wide output missing checksum column:\n%s", buf.String())
	}
}

func TestTableFormatter_PointerSlice(t *testing.T) {
	rows := sampleRows()
	var buf bytes.Buffer
	f := &TableFormatter{NoHeaders: true, Now: func() time.Time { return fixedNow }}
	if err := f.Format(&buf, []*intervalRow{&rows[0], nil, &rows[1]}); err != nil {
		t.Fatal(err)
	}
	got := lines(buf.String())
	if len(got) != 2 {
		t.Fatalf("got %d lines, want 2 (nil skipped, no headers):\n%s", len(got), buf.String())
	}
	if !strings.HasPrefix(got[0], "1 ") {
		t.Errorf("first row = %q", got[0])
	}
}

func TestTableFormatter_EmptySlice(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, []intervalRow{}); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("output = %q, want empty", buf.String())
	}
}

func TestTableFormatter_Nil(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("output = %q, want empty", buf.String())
	}
}

func TestTableFormatter_SingleStruct(t *testing.T) {
	var buf bytes.Buffer
	f := &TableFormatter{Now: func() time.Time { return fixedNow }}
	if err := f.Format(&buf, &sampleRows()[0]); err != nil {
		t.Fatal(err)
	}
	got := lines(buf.String())
	if strings.Join(strings.Fields(got[0]), " ") != "FIELD VALUE" {
		t.Errorf("headers = %q", got[0])
	}
	want := map[string]string{
		"intervalId": "1",
		"createdAt":  "3 minutes ago",
		"sizeBytes":  "1.5 KiB",
	}
	for _, line := range got[1:] {
		name, value, _ := strings.Cut(line, " ")
		if w, ok := want[name]; ok && strings.TrimSpace(value) != w {
			t.Errorf("%s = %q, want %q", name, strings.TrimSpace(value), w)
		}
	}
	if strings.Contains(buf.String(), "checksum") {
		t.Error("wide field shown in narrow struct view")
	}
}

func TestTableFormatter_Map(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, map[string]any{"status": "healthy"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "KEY") || !strings.Contains(buf.String(), "healthy") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestTableFormatter_Table(t *testing.T) {
	table := &Table{}
	table.SetHeaders("OVERLAY", "NODES")
	table.AddRow("ov-a", "3")
	table.AddRow("ov-bb", "12")

	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, table); err != nil {
		t.Fatal(err)
	}
	want := "OVERLAY  NODES\nov-a     3\nov-bb    12\n"
	if buf.String() != want {
		t.Errorf("output =\n%q\nwant\n%q", buf.String(), want)
	}

	buf.Reset()
	if err := (&TableFormatter{NoHeaders: true}).Format(&buf, *table); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "OVERLAY") {
		t.Error("headers rendered with NoHeaders")
	}
}

func TestTableFormatter_FallbackToJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, []byte(`raw`)); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), `"`) {
		t.Errorf("raw bytes should fall back to JSON, got %q", buf.String())
	}

	buf.Reset()
	if err := (&TableFormatter{}).Format(&buf, 42); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "42\n" {
		t.Errorf("scalar fallback = %q, want %q", buf.String(), "42\n")
	}
}

type label string

func (l label) String() string { return "label:" + string(l) }

func TestFormatValue(t *testing.T) {
	var nilPtr *int
	n := 7
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "abc", "abc"},
		{"empty string", "", "-"},
		{"int", int64(-3), "-3"},
		{"uint", uint16(9), "9"},
		{"float", 1.5, "1.5"},
		{"bool", true, "true"},
		{"bytes", []byte("hello"), "5 B"},
		{"slice", []int{1, 2}, "[2 items]"},
		{"empty slice", []int{}, "-"},
		{"map", map[string]int{"a": 1}, "{1 keys}"},
		{"time", time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC), "2026-01-02 03:04"},
		{"zero time", time.Time{}, "-"},
		{"stringer", label("x"), "label:x"},
		{"pointer", &n, "7"},
		{"nil pointer", nilPtr, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatValue(reflectValue(tt.in)); got != tt.want {
				t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"intervalId": "interval_Id",
		"IntervalID": "Interval_I_D",
		"items":      "items",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
