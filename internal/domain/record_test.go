package domain

import (
	"errors"
	"testing"
)

func TestRecord_Name(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{"event key", Record{"event": "signup"}, "signup"},
		{"missing", Record{"$set": map[string]any{}}, ""},
		{"not a string", Record{"event": 42}, ""},
		{"nil record", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Name(); got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecord_IsAutomatic(t *testing.T) {
	if !(Record{"event": "$ae_session"}).IsAutomatic() {
		t.Error("$ae_session should be automatic")
	}
	if (Record{"event": "$app_open"}).IsAutomatic() {
		t.Error("$app_open should not be automatic")
	}
	if (Record{"event": "ae_session"}).IsAutomatic() {
		t.Error("ae_session should not be automatic")
	}
}

func TestQueue_Clone(t *testing.T) {
	if Queue(nil).Clone() != nil {
		t.Error("Clone of nil should be nil")
	}

	q := Queue{{"event": "a"}, {"event": "b"}}
	c := q.Clone()
	c[0] = Record{"event": "x"}
	if q[0].Name() != "a" {
		t.Errorf("Clone shares backing array: q[0] = %q", q[0].Name())
	}
}

func TestQueue_Partition(t *testing.T) {
	q := Queue{
		{"event": "$ae_1"}, {"event": "a"}, {"event": "$ae_2"}, {"event": "b"},
	}
	auto, rest := q.Partition(Record.IsAutomatic)

	if len(auto) != 2 || auto[0].Name() != "$ae_1" || auto[1].Name() != "$ae_2" {
		t.Errorf("automatic = %v", auto)
	}
	if len(rest) != 2 || rest[0].Name() != "a" || rest[1].Name() != "b" {
		t.Errorf("rest = %v", rest)
	}
}

func TestCategory(t *testing.T) {
	paths := map[Category]string{
		CategoryEvents: "/track",
		CategoryPeople: "/engage",
		CategoryGroups: "/groups",
	}
	for _, c := range Categories() {
		if c.Path() != paths[c] {
			t.Errorf("%s.Path() = %q, want %q", c, c.Path(), paths[c])
		}
		got, err := ParseCategory(string(c))
		if err != nil || got != c {
			t.Errorf("ParseCategory(%q) = %q, %v", c, got, err)
		}
	}

	if Category("sessions").Valid() {
		t.Error("sessions should not be valid")
	}
	if _, err := ParseCategory("sessions"); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("ParseCategory error = %v, want ErrUnknownCategory", err)
	}
}

func TestParseAutoEvents(t *testing.T) {
	tests := []struct {
		in      string
		want    AutoEvents
		wantErr bool
	}{
		{"", AutoEventsUnknown, false},
		{"unknown", AutoEventsUnknown, false},
		{"true", AutoEventsEnabled, false},
		{" 1 ", AutoEventsEnabled, false},
		{"Enabled", AutoEventsEnabled, false},
		{"false", AutoEventsDisabled, false},
		{"0", AutoEventsDisabled, false},
		{"maybe", AutoEventsUnknown, true},
	}
	for _, tt := range tests {
		got, err := ParseAutoEvents(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseAutoEvents(%q) = %v, %v; want %v, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}

	if AutoEventsFromBool(true) != AutoEventsEnabled || AutoEventsFromBool(false) != AutoEventsDisabled {
		t.Error("AutoEventsFromBool mapping is wrong")
	}
	if AutoEventsUnknown.String() != "unknown" {
		t.Errorf("String() = %q", AutoEventsUnknown.String())
	}
}
