package sync

import "testing"

func TestDeriveKeyIsDeterministic(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}

	k1, err := DeriveKey("correct horse battery staple", salt)
	if err != nil {
		t.Fatalf("derive 1: %v", err)
	}
	k2, err := DeriveKey("correct horse battery staple", salt)
	if err != nil {
		t.Fatalf("derive 2: %v", err)
	}
	if k1 != k2 {
		t.Fatalf("expected the same passphrase+salt to derive the same key, got %q and %q", k1, k2)
	}

	k3, err := DeriveKey("a different passphrase", salt)
	if err != nil {
		t.Fatalf("derive 3: %v", err)
	}
	if k3 == k1 {
		t.Fatal("expected a different passphrase to derive a different key")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	salt, _ := NewSalt()
	key, err := DeriveKey("hunter2hunter2", salt)
	if err != nil {
		t.Fatalf("derive key: %v", err)
	}

	plaintext := []byte(`[{"role":"user","content":"hello"}]`)
	blob, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	decrypted, err := Decrypt(key, blob)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if string(decrypted) != string(plaintext) {
		t.Fatalf("round trip mismatch: got %q", decrypted)
	}
}

func TestEncryptNoncesAreUnique(t *testing.T) {
	salt, _ := NewSalt()
	key, _ := DeriveKey("passphrase", salt)

	a, err := Encrypt(key, []byte("same plaintext"))
	if err != nil {
		t.Fatalf("encrypt a: %v", err)
	}
	b, err := Encrypt(key, []byte("same plaintext"))
	if err != nil {
		t.Fatalf("encrypt b: %v", err)
	}
	if string(a) == string(b) {
		t.Fatal("expected distinct ciphertexts for the same plaintext due to random nonces")
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	salt, _ := NewSalt()
	key, _ := DeriveKey("passphrase", salt)

	blob, err := Encrypt(key, []byte("sensitive"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	blob[len(blob)-1] ^= 0xFF

	if _, err := Decrypt(key, blob); err == nil {
		t.Fatal("expected decryption of tampered ciphertext to fail")
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	salt, _ := NewSalt()
	key1, _ := DeriveKey("passphrase-one", salt)
	key2, _ := DeriveKey("passphrase-two", salt)

	blob, err := Encrypt(key1, []byte("sensitive"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := Decrypt(key2, blob); err == nil {
		t.Fatal("expected decryption with the wrong key to fail")
	}
}
