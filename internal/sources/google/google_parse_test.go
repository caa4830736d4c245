package google

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"ledgerbook/internal/core"
)

func TestParseRows(t *testing.T) {
	values := [][]interface{}{
		{"transId", "title", "originalAmount", "transDate", "", "userId", "groupbId"},
		{1.0, "점심", 12000.0, "2024-03-15", "ignored", "1"},
		{},
		{"", " "},
		{2.0, "장보기", 84000.0, "24/03/16", nil, "1", 10.0, "overflow"},
	}
	got := parseRows(values)
	want := []core.RawRecord{
		{"transId": 1.0, "title": "점심", "originalAmount": 12000.0, "transDate": "2024-03-15", "userId": "1"},
		{"transId": 2.0, "title": "장보기", "originalAmount": 84000.0, "transDate": "24/03/16", "userId": "1", "groupbId": 10.0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRowsEmpty(t *testing.T) {
	if got := parseRows(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	if got := parseRows([][]interface{}{{"transId"}}); len(got) != 0 {
		t.Fatalf("header only should yield no records, got %v", got)
	}
}
