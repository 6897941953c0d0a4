package checksum

import (
	"testing"
)

func TestGenerateRecordHash(t *testing.T) {
	gen := NewGenerator()

	url := "https://www.indexsante.ca/chsld/a.php"
	fields := []string{"CHSLD A", "Laval", "123 Rue Exemple", "Laval", "H7A 1A1"}

	hash1 := gen.GenerateRecordHash(url, fields...)
	hash2 := gen.GenerateRecordHash(url, fields...)

	if hash1 != hash2 {
		t.Errorf("Hash not deterministic: %s != %s", hash1, hash2)
	}

	if len(hash1) != 64 {
		t.Errorf("Hash wrong length: %d, expected 64", len(hash1))
	}

	hash3 := gen.GenerateRecordHash(url, "CHSLD A", "Montréal", "123 Rue Exemple", "Laval", "H7A 1A1")
	if hash1 == hash3 {
		t.Errorf("Hash should change when a field changes")
	}

	// Field boundaries matter.
	if gen.GenerateRecordHash(url, "ab", "c") == gen.GenerateRecordHash(url, "a", "bc") {
		t.Errorf("Hash should depend on field boundaries")
	}
}

func TestVerifyRecordHash(t *testing.T) {
	gen := NewGenerator()

	url := "https://www.indexsante.ca/chsld/a.php"
	hash := gen.GenerateRecordHash(url, "CHSLD A", "Laval")

	if !gen.VerifyRecordHash(hash, url, "CHSLD A", "Laval") {
		t.Errorf("VerifyRecordHash failed for correct data")
	}

	if gen.VerifyRecordHash(hash, url, "CHSLD B", "Laval") {
		t.Errorf("VerifyRecordHash should fail for wrong name")
	}
}
