package platform

import "testing"

func TestProfileByName_Known(t *testing.T) {
	p := ProfileByName("pi-hat-3")
	if p.Name != "pi-hat-3" {
		t.Errorf("ProfileByName(\"pi-hat-3\").Name = %q, want \"pi-hat-3\"", p.Name)
	}
	if len(p.Slots) != 3 {
		t.Fatalf("Expected 3 slots, got %d", len(p.Slots))
	}
	if !p.Slots[0].HasUART() {
		t.Error("Slot 0 should have a UART")
	}
	if p.Slots[1].HasUART() {
		t.Error("Slot 1 should not have a UART")
	}
	if !p.Slots[2].HasUART() {
		t.Error("Slot 2 should have a UART")
	}
}

func TestProfileByName_UnknownFallsBack(t *testing.T) {
	p := ProfileByName("no-such-board")
	if p.Name != DefaultProfileName {
		t.Errorf("Unknown profile should fall back to %q, got %q", DefaultProfileName, p.Name)
	}
}

func TestProfileSlots_ContiguousChannels(t *testing.T) {
	for _, name := range ProfileNames() {
		p := ProfileByName(name)
		for i, slot := range p.Slots {
			if slot.Channel != i {
				t.Errorf("Profile %q slot %d has channel %d, want %d", name, i, slot.Channel, i)
			}
		}
	}
}

func TestSerialMode(t *testing.T) {
	m := serialMode(PortMode{Baud: 250000, TwoStopBits: true})
	if m.BaudRate != 250000 {
		t.Errorf("BaudRate = %d, want 250000", m.BaudRate)
	}
	if m.DataBits != 8 {
		t.Errorf("DataBits = %d, want 8", m.DataBits)
	}

	m = serialMode(PortMode{Baud: 57600})
	if m.BaudRate != 57600 {
		t.Errorf("BaudRate = %d, want 57600", m.BaudRate)
	}
}
