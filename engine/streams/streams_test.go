package streams

import (
	"strings"
	"testing"
)

func TestSaltedStringRoundTrip(t *testing.T) {
	w := NewMemoryWriteStream(64)
	w.WriteString("Root.Hips_L", 172)
	w.WriteString("", 13)
	w.WriteString("ねこ", 172) // non-ASCII survives the UTF-16 encoding

	r := NewMemoryReadStream(w.Bytes())
	for _, want := range []string{"Root.Hips_L", "", "ねこ"} {
		salt := uint16(172)
		if want == "" {
			salt = 13
		}
		got, err := r.ReadString(salt)
		if err != nil {
			t.Fatalf("read %q: %v", want, err)
		}
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
	if r.Remaining() != 0 {
		t.Errorf("remaining = %d, want 0", r.Remaining())
	}
}

func TestSaltedStringMismatchedSaltGarbles(t *testing.T) {
	w := NewMemoryWriteStream(32)
	w.WriteString("spine", 172)

	r := NewMemoryReadStream(w.Bytes())
	got, err := r.ReadString(13)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == "spine" {
		t.Error("mismatched salt produced the original string")
	}
}

func TestAnsiStringRoundTrip(t *testing.T) {
	w := NewMemoryWriteStream(32)
	w.WriteStringAnsi("AnimEvent", 17)
	w.WriteStringAnsi("", 13)

	r := NewMemoryReadStream(w.Bytes())
	if got, err := r.ReadStringAnsi(17); err != nil || got != "AnimEvent" {
		t.Errorf("got (%q, %v), want AnimEvent", got, err)
	}
	if got, err := r.ReadStringAnsi(13); err != nil || got != "" {
		t.Errorf("got (%q, %v), want empty", got, err)
	}
}

func TestScalarRoundTrip(t *testing.T) {
	w := NewMemoryWriteStream(64)
	w.WriteUint8(0xFE)
	w.WriteBool(true)
	w.WriteBool(false)
	w.WriteUint16(54321)
	w.WriteInt32(-7)
	w.WriteUint32(0xDEADBEEF)
	w.WriteFloat(1.5)
	w.WriteDouble(-0.25)

	r := NewMemoryReadStream(w.Bytes())
	if v, _ := r.ReadUint8(); v != 0xFE {
		t.Errorf("uint8 = %d", v)
	}
	if v, _ := r.ReadBool(); !v {
		t.Error("bool true lost")
	}
	if v, _ := r.ReadBool(); v {
		t.Error("bool false lost")
	}
	if v, _ := r.ReadUint16(); v != 54321 {
		t.Errorf("uint16 = %d", v)
	}
	if v, _ := r.ReadInt32(); v != -7 {
		t.Errorf("int32 = %d", v)
	}
	if v, _ := r.ReadUint32(); v != 0xDEADBEEF {
		t.Errorf("uint32 = %#x", v)
	}
	if v, _ := r.ReadFloat(); v != 1.5 {
		t.Errorf("float = %f", v)
	}
	if v, _ := r.ReadDouble(); v != -0.25 {
		t.Errorf("double = %f", v)
	}
	if r.Remaining() != 0 {
		t.Errorf("remaining = %d, want 0", r.Remaining())
	}
}

func TestPeekInt32DoesNotAdvance(t *testing.T) {
	w := NewMemoryWriteStream(8)
	w.WriteInt32(101)
	r := NewMemoryReadStream(w.Bytes())

	for i := 0; i < 3; i++ {
		v, err := r.PeekInt32()
		if err != nil || v != 101 {
			t.Fatalf("peek %d: (%d, %v)", i, v, err)
		}
	}
	if r.Position() != 0 {
		t.Errorf("position = %d, want 0", r.Position())
	}
	if v, _ := r.ReadInt32(); v != 101 {
		t.Errorf("read after peek = %d", v)
	}
}

func TestReadPastEndFails(t *testing.T) {
	r := NewMemoryReadStream([]byte{1, 2})
	if _, err := r.ReadInt32(); err == nil {
		t.Error("short int32 read succeeded")
	}
	if _, err := r.PeekInt32(); err == nil {
		t.Error("short peek succeeded")
	}
	if _, err := r.ReadDouble(); err == nil {
		t.Error("short double read succeeded")
	}
}

func TestMalformedLengthPrefixesRejected(t *testing.T) {
	// Negative length.
	w := NewMemoryWriteStream(8)
	w.WriteInt32(-1)
	if _, err := NewMemoryReadStream(w.Bytes()).ReadString(172); err == nil {
		t.Error("negative string length accepted")
	}
	if _, err := NewMemoryReadStream(w.Bytes()).ReadBytes(); err == nil {
		t.Error("negative blob length accepted")
	}

	// Length far beyond the payload and the sanity cap.
	w = NewMemoryWriteStream(8)
	w.WriteInt32(1 << 30)
	if _, err := NewMemoryReadStream(w.Bytes()).ReadStringAnsi(17); err == nil {
		t.Error("oversized length accepted")
	}

	// Length claims more bytes than the payload holds.
	w = NewMemoryWriteStream(8)
	w.WriteInt32(16)
	if _, err := NewMemoryReadStream(w.Bytes()).ReadBytes(); err == nil {
		t.Error("truncated blob accepted")
	}
}

func TestReadBytesReturnsCopy(t *testing.T) {
	w := NewMemoryWriteStream(16)
	w.WriteBytes([]byte{1, 2, 3})
	payload := w.Bytes()

	blob, err := NewMemoryReadStream(payload).ReadBytes()
	if err != nil {
		t.Fatal(err)
	}
	blob[0] = 99
	if payload[4] == 99 {
		t.Error("ReadBytes aliases the payload buffer")
	}
}

func TestWriteBytesNil(t *testing.T) {
	w := NewMemoryWriteStream(8)
	w.WriteBytes(nil)
	r := NewMemoryReadStream(w.Bytes())
	blob, err := r.ReadBytes()
	if err != nil {
		t.Fatal(err)
	}
	if len(blob) != 0 {
		t.Errorf("blob = %v, want empty", blob)
	}
}

func TestLongStringRoundTrip(t *testing.T) {
	long := strings.Repeat("bone_", 500)
	w := NewMemoryWriteStream(8)
	w.WriteString(long, 13)
	got, err := NewMemoryReadStream(w.Bytes()).ReadString(13)
	if err != nil {
		t.Fatal(err)
	}
	if got != long {
		t.Error("long string did not survive the round trip")
	}
}
