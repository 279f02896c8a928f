package hash

import "testing"

func TestSHA256Hex(t *testing.T) {
	tests := map[string]string{
		"hello": "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		"":      "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
	}
	for in, want := range tests {
		if got := SHA256Hex(in); got != want {
			t.Errorf("SHA256Hex(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestIteratedSHA256(t *testing.T) {
	const in = "198.51.100.7"
	if got, want := IteratedSHA256(in, 1), SHA256Hex(in); got != want {
		t.Errorf("one round = %s, want %s", got, want)
	}
	if got := IteratedSHA256(in, 0); got == SHA256Hex(in) {
		t.Error("zero rounds should not hash")
	}
	many := IteratedSHA256(in, ipHashIterations)
	if many == SHA256Hex(in) {
		t.Error("many rounds should differ from one")
	}
	if many != IteratedSHA256(in, ipHashIterations) {
		t.Error("not deterministic")
	}
}

func TestHashIP(t *testing.T) {
	const ip, salt = "203.0.113.9", "pepper"
	addr := HashIP(ip, salt)

	if len(addr) != 64 {
		t.Fatalf("len = %d, want 64", len(addr))
	}
	if addr != IteratedSHA256(salt+ip, ipHashIterations) {
		t.Error("HashIP must salt then iterate")
	}
	if addr != HashIP(ip, salt) {
		t.Error("same caller must map to the same address")
	}
	if addr == HashIP(ip, "other") {
		t.Error("salt must change the address")
	}
	if addr == HashIP("203.0.113.10", salt) {
		t.Error("distinct IPs must not collide")
	}
}
