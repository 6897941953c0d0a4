package checksum

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Generator считает контрольные суммы записей для обнаружения изменений
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateRecordHash генерирует SHA256 хеш записи
// Формула: SHA256(url|field1|field2|...)
func (g *Generator) GenerateRecordHash(url string, fields ...string) string {
	content := url + "|" + strings.Join(fields, "|")
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", hash)
}

// VerifyRecordHash проверяет соответствие хеша
func (g *Generator) VerifyRecordHash(expectedHash, url string, fields ...string) bool {
	return g.GenerateRecordHash(url, fields...) == expectedHash
}
