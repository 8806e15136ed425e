package midi

import "testing"

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		kind    uint8
		channel uint8
		d1, d2  uint8
		want    Message
	}{
		{"note on ch0", NoteOn, 0, 60, 127, Message{0x90, 60, 127}},
		{"note off ch9", NoteOff, 9, 64, 0, Message{0x89, 64, 0}},
		{"cc ch15", ControlChange, 15, 7, 100, Message{0xBF, 7, 100}},
		{"channel masked", NoteOn, 0x13, 60, 1, Message{0x93, 60, 1}},
		{"data masked", NoteOn, 0, 0xFF, 0x80, Message{0x90, 0x7F, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewMessage(tt.kind, tt.channel, tt.d1, tt.d2)
			if got != tt.want {
				t.Fatalf("NewMessage = %v, want %v", got[:], tt.want[:])
			}
			if !got.Valid() {
				t.Errorf("message %v not valid", got[:])
			}
		})
	}
}

func TestMessageNibbles(t *testing.T) {
	m := NewMessage(NoteOn, 5, 60, 127)
	if m.Kind() != NoteOn {
		t.Errorf("Kind = %#x, want %#x", m.Kind(), NoteOn)
	}
	if m.Channel() != 5 {
		t.Errorf("Channel = %d, want 5", m.Channel())
	}
	d1, d2 := m.Data()
	if d1 != 60 || d2 != 127 {
		t.Errorf("Data = %d,%d, want 60,127", d1, d2)
	}
}

func TestMessageValid(t *testing.T) {
	invalid := []Message{
		{0xF0, 0, 0},   // sysex
		{0xC0, 1, 0},   // program change is two bytes
		{0x90, 200, 1}, // data byte with high bit
	}
	for _, m := range invalid {
		if m.Valid() {
			t.Errorf("%v reported valid", m[:])
		}
		if m.String() == "" {
			t.Errorf("empty string for %v", m[:])
		}
	}
}

func TestMessageGomidi(t *testing.T) {
	m := NewMessage(NoteOn, 2, 64, 127)

	var ch, key, vel uint8
	if !m.Gomidi().GetNoteOn(&ch, &key, &vel) {
		t.Fatalf("gomidi does not see a note on in %v", m[:])
	}
	if ch != 2 || key != 64 || vel != 127 {
		t.Errorf("got ch=%d key=%d vel=%d", ch, key, vel)
	}
	if m.String() == "" {
		t.Error("empty String()")
	}
}
