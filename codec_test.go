package memo

import "testing"

func TestJSONCodecRoundTripAndEmpty(t *testing.T) {
	type row struct {
		Name  string
		Count int
	}
	codec := JSONCodec[row]()
	payload, err := codec.Encode(row{Name: "a", Count: 2})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if codec.empty(payload) {
		t.Fatalf("expected populated struct to be cacheable")
	}
	got, err := codec.Decode(payload)
	if err != nil || got.Name != "a" || got.Count != 2 {
		t.Fatalf("unexpected decode: %+v err=%v", got, err)
	}

	ptr := JSONCodec[*row]()
	nilPayload, err := ptr.Encode(nil)
	if err != nil {
		t.Fatalf("encode nil failed: %v", err)
	}
	if !ptr.empty(nilPayload) {
		t.Fatalf("expected nil pointer to be empty, payload=%q", nilPayload)
	}

	str := JSONCodec[string]()
	emptyString, _ := str.Encode("")
	if !str.empty(emptyString) {
		t.Fatalf("expected empty string to be empty")
	}
	zero, _ := JSONCodec[int]().Encode(0)
	if JSONCodec[int]().empty(zero) {
		t.Fatalf("expected zero int to be cacheable")
	}
}

func TestRawCodecs(t *testing.T) {
	bytesCodec := BytesCodec()
	if !bytesCodec.empty(nil) || !bytesCodec.empty([]byte{}) {
		t.Fatalf("expected zero-length bytes to be empty")
	}
	if bytesCodec.empty([]byte("null")) {
		t.Fatalf("expected raw bytes \"null\" to be cacheable")
	}
	src := []byte("abc")
	out, _ := bytesCodec.Decode(src)
	out[0] = 'X'
	if string(src) != "abc" {
		t.Fatalf("expected decode to clone, source now %q", src)
	}

	stringCodec := StringCodec()
	payload, _ := stringCodec.Encode("")
	if !stringCodec.empty(payload) {
		t.Fatalf("expected empty string to be empty")
	}
	payload, _ = stringCodec.Encode(`""`)
	if stringCodec.empty(payload) {
		t.Fatalf("expected quoted string to be cacheable under the raw codec")
	}
}
