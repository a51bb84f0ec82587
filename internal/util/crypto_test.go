package util

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	password := "MyPassword123"

	hashed, err := HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hashed, "$2") {
		t.Errorf("expected bcrypt hash, got %q", hashed)
	}

	if _, err := HashPassword("", bcrypt.MinCost); err == nil {
		t.Error("empty password should fail")
	}

	hashed2, _ := HashPassword(password, bcrypt.MinCost)
	if hashed == hashed2 {
		t.Error("same password should hash differently")
	}
}

func TestHashPassword_CostOutOfRangeFallsBack(t *testing.T) {
	hashed, err := HashPassword("pw", 99)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hashed))
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want %d", cost, bcrypt.DefaultCost)
	}
}

func TestCheckPassword(t *testing.T) {
	password := "TestPass456"
	hashed, _ := HashPassword(password, bcrypt.MinCost)

	if !CheckPassword(password, hashed) {
		t.Error("correct password rejected")
	}
	if CheckPassword("WrongPass", hashed) {
		t.Error("wrong password accepted")
	}
	if CheckPassword("", hashed) {
		t.Error("empty password accepted")
	}
	if CheckPassword(password, "") {
		t.Error("empty hash accepted")
	}
	if CheckPassword(password, "invalid-format") {
		t.Error("malformed hash accepted")
	}
}

func TestRandomString(t *testing.T) {
	str, err := RandomString(32)
	if err != nil {
		t.Fatalf("RandomString: %v", err)
	}
	if len(str) != 32 {
		t.Errorf("len = %d, want 32", len(str))
	}

	str2, _ := RandomString(32)
	if str == str2 {
		t.Error("expected distinct strings")
	}

	for _, n := range []int{0, -5} {
		if _, err := RandomString(n); err == nil {
			t.Errorf("RandomString(%d) should fail", n)
		}
	}
}

func TestEncryptDecryptAES(t *testing.T) {
	key := "test-encryption-key"

	cases := []string{
		"Hello World",
		"Honorários advocatícios",
		"",
		"Special!@#$%^&*()",
		strings.Repeat("A", 1000),
	}

	for _, plaintext := range cases {
		encrypted, err := EncryptAES(key, []byte(plaintext))
		if err != nil {
			t.Fatalf("encrypt %q: %v", plaintext, err)
		}
		decrypted, err := DecryptAES(key, encrypted)
		if err != nil {
			t.Fatalf("decrypt %q: %v", plaintext, err)
		}
		if string(decrypted) != plaintext {
			t.Errorf("round trip mismatch: want %q, got %q", plaintext, decrypted)
		}
	}
}

func TestDecryptAES_WrongKey(t *testing.T) {
	encrypted, _ := EncryptAES("correct-key", []byte("Data"))

	if _, err := DecryptAES("wrong-key", encrypted); err == nil {
		t.Error("wrong key should fail")
	}
}

func TestDecryptAES_InvalidData(t *testing.T) {
	for _, data := range [][]byte{{1, 2, 3}, {}} {
		if _, err := DecryptAES("test-key", data); err == nil {
			t.Errorf("DecryptAES(%v) should fail", data)
		}
	}
}

func TestEncryptString(t *testing.T) {
	enc, err := EncryptString("k", "smtp-secret")
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	if enc == "smtp-secret" {
		t.Error("value stored in clear")
	}

	plain, err := DecryptString("k", enc)
	if err != nil {
		t.Fatalf("DecryptString: %v", err)
	}
	if plain != "smtp-secret" {
		t.Errorf("got %q", plain)
	}

	if enc, _ := EncryptString("k", ""); enc != "" {
		t.Errorf("empty input should stay empty, got %q", enc)
	}
	if _, err := DecryptString("k", "not base64!"); err == nil {
		t.Error("bad base64 should fail")
	}
}

func BenchmarkEncryptAES(b *testing.B) {
	key := "bench-key"
	data := []byte("Benchmark data")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = EncryptAES(key, data)
	}
}
