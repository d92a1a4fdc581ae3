package statecache

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/kbukum/statekit/errors"
)

func TestNewSchema_Errors(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
	}{
		{"empty name", []Field{StringField("")}},
		{"reserved name", []Field{BoolField(ClearedKey, false)}},
		{"duplicate", []Field{StringField("a"), IntField("a")}},
		{"json without type", []Field{{Name: "doc", Kind: KindJSON}}},
		{"bad default", []Field{StringField("a").WithDefault(true)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSchema(tt.fields...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDefaultSchema(t *testing.T) {
	s := DefaultSchema()

	if got := len(s.Names()); got != 15 {
		t.Errorf("expected 15 fields, got %d", got)
	}
	if got := s.Preserved(); !reflect.DeepEqual(got, []string{FieldHasCompletedOnboarding}) {
		t.Errorf("Preserved = %v", got)
	}

	defaults := s.Defaults()
	for _, name := range []string{FieldPlaidConnected, FieldGoogleAuthenticated, FieldSyncInProgress, FieldHasCompletedOnboarding} {
		if defaults[name] != false {
			t.Errorf("default of %s = %v, want false", name, defaults[name])
		}
	}
	if _, ok := defaults[FieldSheetID]; ok {
		t.Error("string fields have no default")
	}
}

func TestSchema_Normalize(t *testing.T) {
	s := MustSchema(
		StringField("s"),
		BoolField("b", false),
		IntField("i"),
		TimeField("t"),
		JSONField[[]Spreadsheet]("docs"),
		JSONField[map[string]int]("counts"),
	)
	ts := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	tests := []struct {
		name    string
		field   string
		in      any
		want    any
		wantErr bool
	}{
		{"string", "s", "x", "x", false},
		{"string from number", "s", 5, nil, true},
		{"bool", "b", true, true, false},
		{"bool from string", "b", "true", nil, true},
		{"int from int", "i", 7, int64(7), false},
		{"int from float", "i", float64(7), int64(7), false},
		{"int from fraction", "i", 7.25, nil, true},
		{"int from float 2^63", "i", float64(1 << 63), nil, true},
		{"int from float -2^63", "i", -float64(1 << 63), int64(math.MinInt64), false},
		{"int from time", "i", ts, nil, true},
		{"time from time", "t", ts, ts.UnixMilli(), false},
		{"time from int64", "t", int64(42), int64(42), false},
		{"json typed", "docs", []Spreadsheet{{ID: "1"}}, []Spreadsheet{{ID: "1"}}, false},
		{"json from decoded body", "docs", []any{map[string]any{"id": "2", "name": "B"}}, []Spreadsheet{{ID: "2", Name: "B"}}, false},
		{"json map", "counts", map[string]any{"a": float64(1)}, map[string]int{"a": 1}, false},
		{"json mismatch", "docs", "nope", nil, true},
		{"nil", "s", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Normalize(Values{tt.field: tt.in})
			if tt.wantErr {
				if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
					t.Errorf("expected INVALID_INPUT, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got[tt.field], tt.want) {
				t.Errorf("got %#v, want %#v", got[tt.field], tt.want)
			}
		})
	}
}

func TestSchema_Decode(t *testing.T) {
	s := DefaultSchema()

	v, err := s.Decode(FieldAccounts, []byte(`[{"account_id":"a1","name":"Checking","balances":{"iso_currency_code":"USD"}}]`))
	if err != nil {
		t.Fatal(err)
	}
	accounts := v.([]Account)
	if accounts[0].AccountID != "a1" || accounts[0].Balances.ISOCurrencyCode != "USD" {
		t.Errorf("decoded %+v", accounts)
	}

	if v, err := s.Decode(FieldSheetID, []byte("null")); err != nil || v != nil {
		t.Errorf("null should decode to nil, got %v, %v", v, err)
	}
	if _, err := s.Decode(FieldSyncInProgress, []byte(`"yes"`)); err == nil {
		t.Error("expected decode error")
	}
	if _, err := s.Decode("bogus", []byte("1")); !errors.HasCode(err, errors.ErrCodeUnknownField) {
		t.Errorf("expected UNKNOWN_FIELD, got %v", err)
	}
}

func TestSchema_EncodeRoundTrip(t *testing.T) {
	s := DefaultSchema()
	data, err := s.Encode(FieldLastSyncTime, int64(1700000000000))
	if err != nil {
		t.Fatal(err)
	}
	v, err := s.Decode(FieldLastSyncTime, data)
	if err != nil || v != int64(1700000000000) {
		t.Errorf("round trip = %v, %v", v, err)
	}
}

func TestValues_Clone(t *testing.T) {
	inner := map[string]any{"k": "v"}
	list := []any{"a"}
	v := Values{"m": inner, "l": list, "s": "x", "typed": []Spreadsheet{{ID: "1"}}}

	cp := v.Clone()
	cp["m"].(map[string]any)["k"] = "changed"
	cp["l"].([]any)[0] = "changed"
	cp["typed"].([]Spreadsheet)[0].ID = "changed"

	if inner["k"] != "v" || list[0] != "a" || v["typed"].([]Spreadsheet)[0].ID != "1" {
		t.Error("Clone must not share maps or slices")
	}
	if got := v.Keys(); !reflect.DeepEqual(got, []string{"l", "m", "s", "typed"}) {
		t.Errorf("Keys = %v", got)
	}
	if Values(nil).Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestKind_String(t *testing.T) {
	if KindTime.String() != "time" || Kind(99).String() != "Kind(99)" {
		t.Error("unexpected Kind names")
	}
}
