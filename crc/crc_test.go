package crc

import "testing"

func TestHeartbeatCRC(t *testing.T) {
	// HEARTBEAT payload + crc_extra from the scenario in spec.md §8.1:
	// bytes 1..10+P-1 of "FD 09 00 00 00 FD 01 00 00 00 04 00 00 00 01 02 03 05 06"
	// followed by crc_extra 0x32 (50) must produce CRC16 LE bytes 77 53.
	frame := []byte{0x09, 0x00, 0x00, 0x00, 0xFD, 0x01, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03, 0x05, 0x06}
	c := New()
	c.AccumulateBytes(frame)
	c.Accumulate(50) // crc_extra for the example HEARTBEAT layout used in the scenario
	got := c.CRC16()
	want := uint16(0x53)<<8 | 0x77
	if got != want {
		t.Errorf("CRC16() = %#04x, want %#04x", got, want)
	}
}

func TestCRC8Fold(t *testing.T) {
	// Fields accumulated in size-descending order, as the schema builder
	// would present them for the spec.md §8.1 HEARTBEAT layout.
	c := New()
	c.AccumulateString("HEARTBEAT ")
	c.AccumulateString("uint32_t custom_mode ")
	c.AccumulateString("uint8_t type ")
	c.AccumulateString("uint8_t autopilot ")
	c.AccumulateString("uint8_t base_mode ")
	c.AccumulateString("uint8_t system_status ")
	c.AccumulateString("uint8_t mavlink_version ")
	if got := c.CRC8(); got != 50 {
		t.Errorf("CRC8() = %d, want 50", got)
	}
}

func TestIncrementalEqualsBulk(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 250, 251, 252}

	bulk := New()
	bulk.AccumulateBytes(data)

	incremental := New()
	for _, b := range data {
		incremental.Accumulate(b)
	}

	if bulk.CRC16() != incremental.CRC16() {
		t.Errorf("bulk CRC16 %#04x != incremental CRC16 %#04x", bulk.CRC16(), incremental.CRC16())
	}
}
